// Package renewal реализует поток продления подписки по TxID.
//
// Пользователь переводит оплату и передаёт идентификатор транзакции; заявка
// уходит оператору, который сверяет перевод и выдаёт дни. Применение
// одобрения (продление окна) выполняет общий обработчик решений,
// здесь — только открытие и отправка заявки.
package renewal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
	"github.com/basimtrading/auth-gate/internal/services/approval"
)

// Coordinator описывает нужную потоку продления часть координатора.
type Coordinator interface {
	Open(req *models.PendingApprovalRequest) (string, error)
	Abort(requestID string)
}

// Service принимает запросы на продление и отправляет их оператору.
type Service struct {
	coord   Coordinator
	channel notify.Channel
	log     *slog.Logger
}

// New создаёт Service.
func New(coord Coordinator, channel notify.Channel, log *slog.Logger) *Service {
	return &Service{coord: coord, channel: channel, log: log}
}

// Request открывает заявку на продление подписки пользователя по txid.
//
// Повторный запрос при уже открытой заявке переиспользует её: оператор
// получает одно уведомление на одну пару (продление, пользователь).
func (s *Service) Request(ctx context.Context, username, txid string) models.Outcome {
	const op = "renewal.Request"
	log := s.log.With(slog.String("op", op), slog.String("username", username))

	req := &models.PendingApprovalRequest{
		Kind:    models.KindRenewal,
		Subject: username,
		TxID:    txid,
	}
	requestID, err := s.coord.Open(req)
	if err != nil {
		if errors.Is(err, approval.ErrDuplicateRequest) {
			log.Info("reusing outstanding renewal request", slog.String("request_id", requestID))
			return models.Awaiting(requestID, models.KindRenewal)
		}
		log.Error("failed to open renewal request", sl.Err(err))
		return models.Failure(models.ReasonStorageFailure)
	}

	if err := s.channel.Notify(ctx, req); err != nil {
		s.coord.Abort(requestID)
		log.Error("failed to notify operator about renewal", sl.Err(err))
		return models.Failure(models.ReasonChannelUnavailable)
	}

	log.Info("renewal approval requested", slog.String("request_id", requestID))
	return models.Awaiting(requestID, models.KindRenewal)
}
