package result

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/basimtrading/auth-gate/internal/lib/jwt"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/services/approval"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) AwaitDecision(ctx context.Context, requestID string) (models.Outcome, string, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(models.Outcome), args.String(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(t *testing.T, handler *Handler, requestID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/login/result/"+requestID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("request_id", requestID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestResultHandler_ServeHTTP(t *testing.T) {
	maker := jwt.NewJWTMaker("test_secret_key", time.Minute)
	requestID := uuid.NewString()

	tests := []struct {
		name           string
		outcome        models.Outcome
		subject        string
		awaitErr       error
		wantStatusCode int
		wantReason     string
	}{
		{
			name:           "approved login returns token",
			outcome:        models.Success(models.RoleSuperuser),
			subject:        "root",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "rejected",
			outcome:        models.Failure(models.ReasonApprovalRejected),
			wantStatusCode: http.StatusUnauthorized,
			wantReason:     "approval_rejected",
		},
		{
			name:           "timed out",
			outcome:        models.Failure(models.ReasonApprovalTimeout),
			wantStatusCode: http.StatusUnauthorized,
			wantReason:     "approval_timeout",
		},
		{
			name:           "storage failure while applying",
			outcome:        models.Failure(models.ReasonStorageFailure),
			wantStatusCode: http.StatusInternalServerError,
			wantReason:     "storage_failure",
		},
		{
			name:           "unknown request",
			awaitErr:       approval.ErrUnknownRequest,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "client cancelled",
			awaitErr:       context.Canceled,
			wantStatusCode: http.StatusRequestTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("AwaitDecision", mock.Anything, requestID).
				Return(tt.outcome, tt.subject, tt.awaitErr).Once()

			handler := New(newNoopLogger(), svc, maker)
			rec := doRequest(t, handler, requestID)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			if tt.wantStatusCode == http.StatusOK {
				data := resp["data"].(map[string]any)
				assert.NotEmpty(t, data["token"])
				assert.Equal(t, models.RoleSuperuser, data["role"])
				assert.Equal(t, "root", data["username"])
			}
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, resp["reason"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestResultHandler_RejectsMalformedID(t *testing.T) {
	svc := new(ServiceMock)
	handler := New(newNoopLogger(), svc, jwt.NewJWTMaker("test_secret_key", time.Minute))

	rec := doRequest(t, handler, "not-a-uuid")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertNotCalled(t, "AwaitDecision", mock.Anything, mock.Anything)
}
