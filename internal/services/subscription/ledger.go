// Package subscription содержит логику бизнес-уровня для окон подписки:
// проверку действительности, остаток дней, открытие и продление окна,
// порог напоминания о продлении.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

// Repository описывает контракт хранилища окон подписки.
type Repository interface {
	GetActiveSubscription(ctx context.Context, accountUID string) (*models.Subscription, error)
	OpenSubscription(ctx context.Context, accountUID string, start, end time.Time) error
	ExtendSubscription(ctx context.Context, subscriptionID, extraDays int) error
}

// Cache описывает методы для кэширования сводки подписки.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Время жизни кэшированной сводки. Короткое: остаток дней зависит от времени.
const statusCacheTTL = 5 * time.Minute

// Status — сводка состояния подписки для вызывающей стороны.
//
// DiscountPercent — информационный флаг скидки за раннее продление;
// на решение автомата входа он не влияет.
type Status struct {
	DaysRemaining       *int       `json:"days_remaining"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	ShouldPromptRenewal bool       `json:"should_prompt_renewal"`
	DiscountPercent     int        `json:"discount_percent,omitempty"`
}

// LedgerService отвечает за бухгалтерию окон подписки.
type LedgerService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger

	promptThresholdDays int
	discountPercent     int

	now func() time.Time // подменяется в тестах
}

// NewLedgerService создаёт LedgerService.
func NewLedgerService(repo Repository, cache Cache, log *slog.Logger, promptThresholdDays, discountPercent int) *LedgerService {
	return &LedgerService{
		repo:                repo,
		cache:               cache,
		log:                 log,
		promptThresholdDays: promptThresholdDays,
		discountPercent:     discountPercent,
		now:                 time.Now,
	}
}

// IsValid сообщает, действует ли окно подписки учётной записи сейчас.
//
// Проверка включительная с обеих сторон: start_date <= now <= end_date.
// Отсутствие окна — не ошибка, а невалидность.
func (s *LedgerService) IsValid(ctx context.Context, accountUID string) (bool, error) {
	const op = "subscription.IsValid"
	sub, err := s.repo.GetActiveSubscription(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	return !now.Before(sub.StartDate) && !now.After(sub.EndDate), nil
}

// DaysRemaining возвращает остаток дней до конца окна, округлённый вверх.
//
// nil — окна нет вовсе; ноль или отрицательное значение — окно истекло.
func (s *LedgerService) DaysRemaining(ctx context.Context, accountUID string) (*int, error) {
	const op = "subscription.DaysRemaining"
	sub, err := s.repo.GetActiveSubscription(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	days := int(math.Ceil(sub.EndDate.Sub(s.now()).Hours() / 24))
	return &days, nil
}

// Open открывает новое окно на days дней начиная с текущего момента.
func (s *LedgerService) Open(ctx context.Context, accountUID string, days int) error {
	const op = "subscription.Open"
	start := s.now()
	if err := s.repo.OpenSubscription(ctx, accountUID, start, start.AddDate(0, 0, days)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateStatus(accountUID)
	s.log.Info("subscription window opened",
		slog.String("account_uid", accountUID), slog.Int("days", days))
	return nil
}

// Renew продлевает окно на extraDays.
//
// Пока окно не истекло, продление прибавляет дни к его текущему концу:
// раннее продление не сжигает оставшиеся дни. Если окна нет или оно уже
// истекло, открывается новое окно от текущего момента.
func (s *LedgerService) Renew(ctx context.Context, accountUID string, extraDays int) error {
	const op = "subscription.Renew"
	sub, err := s.repo.GetActiveSubscription(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return s.Open(ctx, accountUID, extraDays)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub.EndDate.Before(s.now()) {
		return s.Open(ctx, accountUID, extraDays)
	}
	if err := s.repo.ExtendSubscription(ctx, sub.ID, extraDays); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateStatus(accountUID)
	s.log.Info("subscription window extended",
		slog.String("account_uid", accountUID), slog.Int("extra_days", extraDays))
	return nil
}

// ShouldPromptRenewal сообщает, пора ли предлагать продление:
// осталось больше нуля, но не больше порога дней.
func (s *LedgerService) ShouldPromptRenewal(ctx context.Context, accountUID string) (bool, error) {
	days, err := s.DaysRemaining(ctx, accountUID)
	if err != nil {
		return false, err
	}
	return days != nil && *days > 0 && *days <= s.promptThresholdDays, nil
}

// GetStatus собирает сводку состояния подписки, используя кеш или репозиторий.
func (s *LedgerService) GetStatus(ctx context.Context, accountUID string) (*Status, error) {
	const op = "subscription.GetStatus"

	cacheKey := statusCacheKey(accountUID)
	if s.cache != nil {
		var cached *Status
		found, err := s.cache.Get(cacheKey, &cached)
		if err != nil {
			s.log.Warn("failed to read status from cache",
				slog.String("key", cacheKey), slog.Any("err", err))
		}
		if found && cached != nil {
			return cached, nil
		}
	}

	sub, err := s.repo.GetActiveSubscription(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return &Status{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	days := int(math.Ceil(sub.EndDate.Sub(s.now()).Hours() / 24))
	st := &Status{
		DaysRemaining: &days,
		EndDate:       &sub.EndDate,
	}
	if days > 0 && days <= s.promptThresholdDays {
		st.ShouldPromptRenewal = true
		st.DiscountPercent = s.discountPercent
	}
	if s.cache != nil {
		if err := s.cache.Set(cacheKey, st, statusCacheTTL); err != nil {
			s.log.Warn("failed to cache status",
				slog.String("key", cacheKey), slog.Any("err", err))
		}
	}
	return st, nil
}

func statusCacheKey(accountUID string) string {
	return "subscription:status:" + accountUID
}

func (s *LedgerService) invalidateStatus(accountUID string) {
	if s.cache == nil {
		return
	}
	key := statusCacheKey(accountUID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cached status",
			slog.String("key", key), slog.Any("err", err))
	}
}
