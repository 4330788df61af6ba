package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/basimtrading/auth-gate/internal/http/middlewarectx"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/services/subscription"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

type AccountsMock struct {
	mock.Mock
}

func (m *AccountsMock) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) GetStatus(ctx context.Context, accountUID string) (*subscription.Status, error) {
	args := m.Called(ctx, accountUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Status), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func intptr(v int) *int { return &v }

func TestStatusHandler_ServeHTTP(t *testing.T) {
	endDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	account := &models.Account{UID: "uid-1", Username: "trader", Role: models.RoleUser, Status: models.StatusActive}

	tests := []struct {
		name           string
		username       string
		accountErr     error
		ledgerStatus   *subscription.Status
		ledgerErr      error
		wantStatusCode int
		wantDays       float64
	}{
		{
			name:     "active subscription",
			username: "trader",
			ledgerStatus: &subscription.Status{
				DaysRemaining:       intptr(4),
				EndDate:             &endDate,
				ShouldPromptRenewal: true,
				DiscountPercent:     10,
			},
			wantStatusCode: http.StatusOK,
			wantDays:       4,
		},
		{
			name:           "account not found",
			username:       "ghost",
			accountErr:     repository.ErrAccountNotFound,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "storage error on account lookup",
			username:       "trader",
			accountErr:     errors.New("connection refused"),
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "storage error on ledger",
			username:       "trader",
			ledgerErr:      errors.New("connection refused"),
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "missing username in context",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(AccountsMock)
			ledger := new(LedgerMock)
			if tt.username != "" {
				if tt.accountErr != nil {
					accounts.On("GetAccountByUsername", mock.Anything, tt.username).
						Return(nil, tt.accountErr).Once()
				} else {
					accounts.On("GetAccountByUsername", mock.Anything, tt.username).
						Return(account, nil).Once()
					ledger.On("GetStatus", mock.Anything, account.UID).
						Return(tt.ledgerStatus, tt.ledgerErr).Once()
				}
			}
			handler := New(newNoopLogger(), accounts, ledger)

			req := httptest.NewRequest(http.MethodGet, "/subscription/status", nil)
			if tt.username != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.User, tt.username))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			if tt.wantStatusCode == http.StatusOK {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				data := resp["data"].(map[string]any)
				assert.Equal(t, tt.wantDays, data["days_remaining"])
				assert.Equal(t, true, data["should_prompt_renewal"])
				assert.Equal(t, float64(10), data["discount_percent"])
			}
			accounts.AssertExpectations(t)
			ledger.AssertExpectations(t)
		})
	}
}
