// Package services содержит логику регистрации, авторизации и валидации JWT.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/lib/cycle"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/password"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// UserRepository описывает контракт для работы с пользователями и подписками в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его uid.
	CreateUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetPlanByCode возвращает активный план по коду.
	GetPlanByCode(ctx context.Context, code string) (*models.Plan, error)
	// CreateSubscription создаёт подписку со снапшотом плана.
	CreateSubscription(ctx context.Context, userUID string, plan *models.Plan, window cycle.Window) (string, error)
}

// Clock возвращает текущее время; в тестах подменяется.
type Clock func() time.Time

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
// Регистрация сразу подключает пользователя к плану по умолчанию:
// пользователей без подписки в системе не бывает.
type AuthService struct {
	users           UserRepository
	jwtMaker        jwt.Maker
	defaultPlanCode string
	now             Clock
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, defaultPlanCode string) *AuthService {
	return &AuthService{
		users:           users,
		jwtMaker:        jwtMaker,
		defaultPlanCode: defaultPlanCode,
		now:             time.Now,
	}
}

// Register создает нового пользователя с хэшированием пароля, ролью "user"
// и подпиской на план по умолчанию с текущим биллинговым окном.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "services.auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user",
	}
	uid, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	plan, err := s.users.GetPlanByCode(ctx, s.defaultPlanCode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	window := cycle.Current(s.now())
	if _, err := s.users.CreateSubscription(ctx, uid, plan, window); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", errors.New("invalid credentials")
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает claims пользователя.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}
