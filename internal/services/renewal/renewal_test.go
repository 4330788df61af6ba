package renewal_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/services/approval"
	"github.com/basimtrading/auth-gate/internal/services/renewal"
)

type CoordinatorMock struct {
	mock.Mock
}

func (m *CoordinatorMock) Open(req *models.PendingApprovalRequest) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func (m *CoordinatorMock) Abort(requestID string) {
	m.Called(requestID)
}

type ChannelMock struct {
	mock.Mock
}

func (m *ChannelMock) Notify(ctx context.Context, req *models.PendingApprovalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func matchRenewalRequest(username, txid string) any {
	return mock.MatchedBy(func(req *models.PendingApprovalRequest) bool {
		return req.Kind == models.KindRenewal && req.Subject == username && req.TxID == txid
	})
}

func TestRequest_OpensAndNotifies(t *testing.T) {
	coord := new(CoordinatorMock)
	channel := new(ChannelMock)
	coord.On("Open", matchRenewalRequest("trader", "tx-abc")).Return("req-1", nil).Once()
	channel.On("Notify", mock.Anything, matchRenewalRequest("trader", "tx-abc")).Return(nil).Once()

	out := renewal.New(coord, channel, newNoopLogger()).Request(context.Background(), "trader", "tx-abc")

	assert.Equal(t, models.OutcomeAwaitingApproval, out.Status)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, models.KindRenewal, out.Kind)
	coord.AssertExpectations(t)
	channel.AssertExpectations(t)
}

func TestRequest_ReusesOutstandingRequest(t *testing.T) {
	coord := new(CoordinatorMock)
	channel := new(ChannelMock)
	coord.On("Open", mock.Anything).Return("req-1", approval.ErrDuplicateRequest).Once()

	out := renewal.New(coord, channel, newNoopLogger()).Request(context.Background(), "trader", "tx-abc")

	assert.Equal(t, models.OutcomeAwaitingApproval, out.Status)
	assert.Equal(t, "req-1", out.RequestID)
	// Оператор не получает второе уведомление по той же заявке
	channel.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRequest_ChannelDownAbortsRequest(t *testing.T) {
	coord := new(CoordinatorMock)
	channel := new(ChannelMock)
	coord.On("Open", mock.Anything).Return("req-1", nil).Once()
	channel.On("Notify", mock.Anything, mock.Anything).Return(errors.New("telegram is down")).Once()
	coord.On("Abort", "req-1").Return().Once()

	out := renewal.New(coord, channel, newNoopLogger()).Request(context.Background(), "trader", "tx-abc")

	assert.Equal(t, models.OutcomeFail, out.Status)
	assert.Equal(t, models.ReasonChannelUnavailable, out.Reason)
	coord.AssertExpectations(t)
}
