package middlewarectx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	jwtmaker "github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"

	"io"
	"log/slog"
)

// AuthServiceMock реализует middlewarectx.Service
type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*jwtmaker.CustomClaims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*jwtmaker.CustomClaims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		authHeader     string
		mockClaims     *jwtmaker.CustomClaims
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "без заголовка Authorization",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "неверный префикс заголовка",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "невалидный токен",
			authHeader:     "Bearer badtoken",
			mockErr:        errors.New("token is expired"),
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:       "валидный токен",
			authHeader: "Bearer goodtoken",
			mockClaims: &jwtmaker.CustomClaims{
				Username: "testuser",
				Role:     "user",
				UserUID:  "uid-1",
			},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if tt.mockClaims != nil || tt.mockErr != nil {
				token := "goodtoken"
				if tt.mockErr != nil {
					token = "badtoken"
				}
				authMock.On("ValidateToken", mock.Anything, token).Return(tt.mockClaims, tt.mockErr)
			}

			handlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				assert.Equal(t, "testuser", r.Context().Value(middlewarectx.User))
				assert.Equal(t, "user", r.Context().Value(middlewarectx.Role))
				uid, ok := middlewarectx.UserUIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "uid-1", uid)
				w.WriteHeader(http.StatusOK)
			})

			middleware := middlewarectx.JWTMiddleware(authMock, logger)(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/recordings", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			middleware.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatusCode, w.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			authMock.AssertExpectations(t)
		})
	}
}
