// Package notify определяет контракт канала уведомлений оператора.
//
// Ядру от окружения нужны две вещи: отправить оператору запрос на решение
// (Notify) и принять его ответ обратно (Resolver.HandleDecision). Конкретный
// транспорт — Telegram, RabbitMQ или вебхук — контракта не меняет: слушатель
// транспорта лишь вызывает HandleDecision, которая обязана быть идемпотентной.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/basimtrading/auth-gate/internal/models"
)

// ErrChannelUnavailable — канал недоступен; попытка входа завершается сразу,
// не дожидаясь тайм-аута ожидания решения.
var ErrChannelUnavailable = errors.New("notification channel unavailable")

// Channel — исходящая сторона канала: запрос решения у оператора.
type Channel interface {
	Notify(ctx context.Context, req *models.PendingApprovalRequest) error
}

// Resolver — входящая сторона: доставка решения оператора ядру.
type Resolver interface {
	HandleDecision(ctx context.Context, requestID string, d models.Decision)
}

// RequestMessage — сериализуемая форма заявки для транспорта.
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	TxID      string    `json:"txid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DecisionMessage — сериализуемая форма решения оператора.
//
// GrantedDays обязателен при одобрении новой учётной записи и опционален
// при продлении.
type DecisionMessage struct {
	RequestID   string `json:"request_id"`
	Decision    string `json:"decision"` // approved | rejected
	GrantedDays int    `json:"granted_days,omitempty"`
}

// NewRequestMessage переводит заявку в транспортную форму.
func NewRequestMessage(req *models.PendingApprovalRequest) RequestMessage {
	return RequestMessage{
		RequestID: req.RequestID,
		Kind:      string(req.Kind),
		Subject:   req.Subject,
		TxID:      req.TxID,
		CreatedAt: req.CreatedAt,
	}
}

// ToDecision переводит транспортную форму в доменное решение.
// Неизвестный вердикт трактуется как отказ.
func (m DecisionMessage) ToDecision() models.Decision {
	switch m.Decision {
	case "approved":
		return models.Decision{Status: models.DecisionApproved, GrantedDays: m.GrantedDays}
	default:
		return models.Decision{Status: models.DecisionRejected}
	}
}
