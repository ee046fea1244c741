package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/transcribe-hub/internal/lib/cycle"
	jwtmaker "github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/password"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetPlanByCode(ctx context.Context, code string) (*models.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *UserRepoMock) CreateSubscription(ctx context.Context, userUID string, plan *models.Plan, window cycle.Window) (string, error) {
	args := m.Called(ctx, userUID, plan, window)
	return args.String(0), args.Error(1)
}

func TestRegister_CreatesUserWithDefaultSubscription(t *testing.T) {
	repo := new(UserRepoMock)
	maker := jwtmaker.NewJWTMaker("secret", time.Hour)
	service := NewAuthService(repo, maker, "FREE")

	freePlan := &models.Plan{ID: "plan-1", Code: "FREE", Name: "Free", MonthlyMinutes: 30, MonthlyUsageLimit: 10}
	repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Username == "alice" && u.Role == "user" && u.PasswordHash != "secretpass"
	})).Return("uid-1", nil)
	repo.On("GetPlanByCode", mock.Anything, "FREE").Return(freePlan, nil)
	repo.On("CreateSubscription", mock.Anything, "uid-1", freePlan, mock.Anything).Return("sub-1", nil)

	uid, err := service.Register(context.Background(), "alice@example.com", "alice", "secretpass")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	repo.AssertExpectations(t)
}

func TestRegister_SubscriptionCreationFails(t *testing.T) {
	repo := new(UserRepoMock)
	maker := jwtmaker.NewJWTMaker("secret", time.Hour)
	service := NewAuthService(repo, maker, "FREE")

	repo.On("CreateUser", mock.Anything, mock.Anything).Return("uid-1", nil)
	repo.On("GetPlanByCode", mock.Anything, "FREE").Return(nil, errors.New("plan missing"))

	_, err := service.Register(context.Background(), "alice@example.com", "alice", "secretpass")
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	hashed, err := password.GetHash("correct-password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid credentials", password: "correct-password"},
		{name: "wrong password", password: "wrong", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			maker := jwtmaker.NewJWTMaker("secret", time.Hour)
			service := NewAuthService(repo, maker, "FREE")

			repo.On("GetUserByUsername", mock.Anything, "alice").Return(&models.User{
				UID:          "uid-1",
				Username:     "alice",
				PasswordHash: hashed,
				Role:         "user",
			}, nil)

			token, role, err := service.Login(context.Background(), "alice", tt.password)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user", role)

			claims, err := service.ValidateToken(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, "uid-1", claims.UserUID)
			assert.Equal(t, "alice", claims.Username)
		})
	}
}
