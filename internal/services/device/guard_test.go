package device_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/basimtrading/auth-gate/internal/services/device"
)

// Мок для Repository
type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) BindDeviceIfUnbound(ctx context.Context, username, fingerprint string) (bool, error) {
	args := m.Called(ctx, username, fingerprint)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) GetDeviceFingerprint(ctx context.Context, username string) (*string, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func strptr(s string) *string { return &s }

func TestGuard_CheckAndBind(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		want       device.BindResult
		wantErr    bool
	}{
		{
			name: "first login binds fingerprint",
			setupMocks: func(r *RepoMock) {
				r.On("BindDeviceIfUnbound", mock.Anything, "trader", "fp-1").Return(true, nil).Once()
			},
			want: device.BindFirst,
		},
		{
			name: "same device accepted",
			setupMocks: func(r *RepoMock) {
				r.On("BindDeviceIfUnbound", mock.Anything, "trader", "fp-1").Return(false, nil).Once()
				r.On("GetDeviceFingerprint", mock.Anything, "trader").Return(strptr("fp-1"), nil).Once()
			},
			want: device.BindOK,
		},
		{
			name: "other device rejected",
			setupMocks: func(r *RepoMock) {
				r.On("BindDeviceIfUnbound", mock.Anything, "trader", "fp-1").Return(false, nil).Once()
				r.On("GetDeviceFingerprint", mock.Anything, "trader").Return(strptr("fp-other"), nil).Once()
			},
			want: device.BindMismatch,
		},
		{
			name: "storage error",
			setupMocks: func(r *RepoMock) {
				r.On("BindDeviceIfUnbound", mock.Anything, "trader", "fp-1").
					Return(false, errors.New("connection refused")).Once()
			},
			want:    device.BindMismatch,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)

			guard := device.New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
			got, err := guard.CheckAndBind(context.Background(), "trader", "fp-1")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}
