package telegramchannel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basimtrading/auth-gate/internal/models"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantID   string
		wantDec  models.Decision
		wantOK   bool
	}{
		{
			name:    "approve with days",
			text:    "approve req-1 30",
			wantID:  "req-1",
			wantDec: models.Decision{Status: models.DecisionApproved, GrantedDays: 30},
			wantOK:  true,
		},
		{
			name:    "approve without days",
			text:    "approve req-1",
			wantID:  "req-1",
			wantDec: models.Decision{Status: models.DecisionApproved},
			wantOK:  true,
		},
		{
			name:    "reject",
			text:    "reject req-2",
			wantID:  "req-2",
			wantDec: models.Decision{Status: models.DecisionRejected},
			wantOK:  true,
		},
		{
			name:   "case insensitive verb",
			text:   "  APPROVE req-3 7 ",
			wantID: "req-3",
			wantDec: models.Decision{
				Status: models.DecisionApproved, GrantedDays: 7,
			},
			wantOK: true,
		},
		{name: "zero days invalid", text: "approve req-1 0"},
		{name: "negative days invalid", text: "approve req-1 -5"},
		{name: "non-numeric days invalid", text: "approve req-1 many"},
		{name: "unknown verb", text: "grant req-1 30"},
		{name: "missing id", text: "approve"},
		{name: "plain chatter", text: "hello there"},
		{name: "empty text", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, d, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.wantDec, d)
			}
		})
	}
}

func TestParseCallbackData(t *testing.T) {
	id, d, ok := ParseCallbackData("approve_req-9")
	require.True(t, ok)
	assert.Equal(t, "req-9", id)
	assert.Equal(t, models.DecisionApproved, d.Status)

	id, d, ok = ParseCallbackData("reject_req-9")
	require.True(t, ok)
	assert.Equal(t, "req-9", id)
	assert.Equal(t, models.DecisionRejected, d.Status)

	_, _, ok = ParseCallbackData("approve_")
	assert.False(t, ok)
	_, _, ok = ParseCallbackData("something_else")
	assert.False(t, ok)
}

type resolverRecorder struct {
	mu        sync.Mutex
	requestID string
	decision  models.Decision
	calls     int
}

func (r *resolverRecorder) HandleDecision(_ context.Context, requestID string, d models.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestID = requestID
	r.decision = d
	r.calls++
}

type seenAll struct{ fresh bool }

func (s seenAll) MarkSeen(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return s.fresh, nil
}

func TestClient_NotifyBuildsOperatorMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottoken-123/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient("token-123", 42)
	client.apiURL = srv.URL

	err := client.Notify(context.Background(), &models.PendingApprovalRequest{
		RequestID: "req-1",
		Kind:      models.KindNewAccount,
		Subject:   "newcomer",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ChatID)
	assert.Contains(t, got.Text, "newcomer")
	assert.Contains(t, got.Text, "approve req-1")
	require.NotNil(t, got.ReplyMarkup)
	require.Len(t, got.ReplyMarkup.InlineKeyboard, 1)
	// Для новой учётной записи кнопки одобрения нет, только отказ.
	row := got.ReplyMarkup.InlineKeyboard[0]
	require.Len(t, row, 1)
	assert.Equal(t, "reject_req-1", row[0].CallbackData)
}

func TestClient_NotifySuperuserKeyboard(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient("token-123", 42)
	client.apiURL = srv.URL

	err := client.Notify(context.Background(), &models.PendingApprovalRequest{
		RequestID: "req-2",
		Kind:      models.KindSuperuserLogin,
		Subject:   "root",
	})
	require.NoError(t, err)

	row := got.ReplyMarkup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "approve_req-2", row[0].CallbackData)
	assert.Equal(t, "reject_req-2", row[1].CallbackData)
}

func TestClient_NotifyServerErrorIsChannelUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("token-123", 42)
	client.apiURL = srv.URL

	err := client.Notify(context.Background(), &models.PendingApprovalRequest{
		RequestID: "req-3",
		Kind:      models.KindRenewal,
		Subject:   "trader",
	})
	require.Error(t, err)
}

func TestListener_PollDeliversDecisions(t *testing.T) {
	updates := []update{
		{
			UpdateID: 1,
			Message:  &message{Text: "approve req-1 30", Chat: chat{ID: 42}},
		},
		{
			UpdateID: 2,
			CallbackQuery: &callbackQuery{
				ID:      "cb-1",
				Data:    "reject_req-2",
				Message: &message{Chat: chat{ID: 42}},
			},
		},
		{
			// Чужой чат игнорируется.
			UpdateID: 3,
			Message:  &message{Text: "approve req-3 30", Chat: chat{ID: 99}},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken-123/getUpdates":
			_ = json.NewEncoder(w).Encode(getUpdatesResponse{OK: true, Result: updates})
		case "/bottoken-123/answerCallbackQuery":
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient("token-123", 42)
	client.apiURL = srv.URL

	rec := &resolverRecorder{}
	l := NewListener(client, rec, seenAll{fresh: true},
		time.Second, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, l.poll(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.calls)
	// Последним обработан отказ из callback-кнопки.
	assert.Equal(t, "req-2", rec.requestID)
	assert.Equal(t, models.DecisionRejected, rec.decision.Status)
	// Смещение сдвинуто за последний update.
	assert.Equal(t, int64(4), l.offset)
}

func TestListener_SeenUpdatesSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(getUpdatesResponse{OK: true, Result: []update{
			{UpdateID: 7, Message: &message{Text: "approve req-1 30", Chat: chat{ID: 42}}},
		}})
	}))
	defer srv.Close()

	client := NewClient("token-123", 42)
	client.apiURL = srv.URL

	rec := &resolverRecorder{}
	l := NewListener(client, rec, seenAll{fresh: false},
		time.Second, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, l.poll(context.Background()))
	assert.Equal(t, 0, rec.calls)
}
