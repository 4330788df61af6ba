package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basimtrading/auth-gate/internal/http/middlewarectx"
	"github.com/basimtrading/auth-gate/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test_secret_key", time.Minute)
	validToken, err := maker.GenerateToken("trader", "user")
	require.NoError(t, err)

	expiredMaker := jwt.NewJWTMaker("test_secret_key", -time.Minute)
	expiredToken, err := expiredMaker.GenerateToken("trader", "user")
	require.NoError(t, err)

	foreignMaker := jwt.NewJWTMaker("another_secret", time.Minute)
	foreignToken, err := foreignMaker.GenerateToken("trader", "user")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantUsername   string
		wantRole       string
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer " + validToken,
			wantStatusCode: http.StatusOK,
			wantUsername:   "trader",
			wantRole:       "user",
		},
		{
			name:           "missing header",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "header without bearer prefix",
			authHeader:     validToken,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			authHeader:     "Bearer not.a.token",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer " + expiredToken,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "token signed with another key",
			authHeader:     "Bearer " + foreignToken,
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUsername, gotRole string
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotUsername, _ = r.Context().Value(middlewarectx.User).(string)
				gotRole, _ = r.Context().Value(middlewarectx.Role).(string)
				w.WriteHeader(http.StatusOK)
			})

			handler := middlewarectx.JWTMiddleware(maker, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/subscription/status", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantStatusCode == http.StatusOK {
				assert.True(t, nextCalled)
				assert.Equal(t, tt.wantUsername, gotUsername)
				assert.Equal(t, tt.wantRole, gotRole)
			} else {
				assert.False(t, nextCalled)
			}
		})
	}
}
