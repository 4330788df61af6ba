// Package webhook принимает решения оператора по HTTP.
//
// Запасной канал доставки решений рядом с Telegram и очередью: внешняя
// панель оператора шлёт подписанный HMAC-ом JSON с вердиктом по заявке.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
)

// Resolver описывает интерфейс доставки решения ядру.
type Resolver interface {
	HandleDecision(ctx context.Context, requestID string, d models.Decision)
}

// Handler обрабатывает вебхук решений оператора.
type Handler struct {
	log           *slog.Logger
	resolver      Resolver
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, resolver Resolver, secret string) *Handler {
	return &Handler{
		log:           log,
		resolver:      resolver,
		webhookSecret: secret,
	}
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP принимает notify.DecisionMessage.
//
// Повтор решения по уже разрешённой заявке не ошибка: ответ всегда 200,
// чтобы отправитель не пересылал его снова.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.decision.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var msg notify.DecisionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if msg.RequestID == "" {
		log.Error("webhook payload without request_id")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.resolver.HandleDecision(r.Context(), msg.RequestID, msg.ToDecision())

	log.Info("webhook processed",
		slog.String("approval_request_id", msg.RequestID),
		slog.String("decision", msg.Decision))
	w.WriteHeader(http.StatusOK)
}
