// Package scheduler периодически находит подписки, входящие в окно
// напоминания о продлении, и публикует уведомления в RabbitMQ.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/basimtrading/auth-gate/internal/lib/rabbitmq"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
)

// SubscriptionRepository описывает выборку подписок на пороге истечения.
type SubscriptionRepository interface {
	FindSubscriptionsExpiringWithin(ctx context.Context, days int) ([]*models.RenewalNotice, error)
}

// Service — планировщик напоминаний о продлении.
type Service struct {
	repo SubscriptionRepository
	log  *slog.Logger

	exchange        string
	routingKey      string
	thresholdDays   int
	discountPercent int
}

// New создаёт Service.
func New(repo SubscriptionRepository, log *slog.Logger,
	exchange, routingKey string, thresholdDays, discountPercent int) *Service {
	return &Service{
		repo:            repo,
		log:             log,
		exchange:        exchange,
		routingKey:      routingKey,
		thresholdDays:   thresholdDays,
		discountPercent: discountPercent,
	}
}

// Run выполняет проход сразу и затем с заданным интервалом до отмены контекста.
func (s *Service) Run(ctx context.Context, channel *amqp.Channel, interval time.Duration) {
	s.runOnce(ctx, channel)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, channel)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runOnce(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("scanning for subscriptions entering the renewal window")
	notices, err := s.repo.FindSubscriptionsExpiringWithin(ctx, s.thresholdDays)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(notices) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}
	s.log.Info("found expiring subscriptions", "count", len(notices))
	now := time.Now()
	for _, notice := range notices {
		days := int(notice.EndDate.Sub(now).Hours() / 24)
		if days < 0 {
			continue
		}
		notice.DaysRemaining = days
		notice.DiscountPercent = s.discountPercent
		if err = rabbitmq.PublishMessage(channel, s.exchange, s.routingKey, notice); err != nil {
			s.log.Error("failed to publish renewal notice", sl.Err(err))
		}
	}
}
