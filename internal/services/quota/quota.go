// Package services содержит бизнес-логику учёта квот подписки.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/cache"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// SubscriptionRepository определяет методы чтения подписки из хранилища.
type SubscriptionRepository interface {
	// GetSubscription возвращает подписку пользователя со снапшотом плана.
	GetSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	// ListActivePlans возвращает активные тарифные планы.
	ListActivePlans(ctx context.Context) ([]*models.Plan, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// QuotaService отдаёт статистику использования квот. Резервации и списания
// идут через слой хранилища атомарно, здесь только чтение и кэш.
type QuotaService struct {
	repo  SubscriptionRepository
	cache Cache
	log   *slog.Logger
}

// NewQuotaService создает новый экземпляр QuotaService.
func NewQuotaService(repo SubscriptionRepository, c Cache, log *slog.Logger) *QuotaService {
	return &QuotaService{repo: repo, cache: c, log: log}
}

// Usage возвращает статистику использования квот пользователя.
// Кэш короткоживущий: счётчики меняются при каждой резервации и списании.
func (s *QuotaService) Usage(ctx context.Context, userUID string) (*models.UsageStats, error) {
	cacheKey := cache.UsageKey(userUID)

	var cached models.UsageStats
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read usage from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	sub, err := s.repo.GetSubscription(ctx, userUID)
	if err != nil {
		return nil, err
	}
	stats := models.BuildUsageStats(sub)

	if err := s.cache.Set(ctx, cacheKey, stats, 30*time.Second); err != nil {
		s.log.Warn("failed to cache usage", slog.String("key", cacheKey), sl.Err(err))
	}
	return &stats, nil
}

// InvalidateUsage сбрасывает кэш статистики после изменения счётчиков.
func (s *QuotaService) InvalidateUsage(ctx context.Context, userUID string) {
	if err := s.cache.Invalidate(ctx, cache.UsageKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate usage cache", slog.String("user_uid", userUID), sl.Err(err))
	}
}

// Plans возвращает список активных тарифных планов.
func (s *QuotaService) Plans(ctx context.Context) ([]*models.Plan, error) {
	return s.repo.ListActivePlans(ctx)
}
