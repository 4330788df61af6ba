// Package create обрабатывает запросы на продление подписки.
//
// Пользователь сообщает идентификатор транзакции оплаты; сервис открывает
// заявку на продление и передаёт её оператору на проверку. Сам факт и сумма
// оплаты здесь не проверяются, это делает оператор.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/basimtrading/auth-gate/internal/http/middlewarectx"
	"github.com/basimtrading/auth-gate/internal/http/response"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
)

// Request — структура входных данных запроса на продление.
type Request struct {
	TxID string `json:"txid" validate:"required,alphanum,min=6,max=64"`
}

// Service описывает интерфейс сервиса продления.
type Service interface {
	Request(ctx context.Context, username, txid string) models.Outcome
}

// Handler обрабатывает HTTP-запросы на продление подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запросить продление подписки
// @Description Открывает заявку на продление с указанным идентификатором транзакции. Возвращает 202 с request_id ожидающей заявки.
// @Tags Renewal
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор транзакции оплаты"
// @Success 202 {object} response.Response "Заявка открыта или переиспользована"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.Response "Канал уведомлений недоступен"
// @Router /renewal [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.renewal.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	username, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || username == "" {
		log.Error("username not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	out := h.service.Request(r.Context(), username, req.TxID)

	w.WriteHeader(response.HTTPStatus(out))
	if out.Status == models.OutcomeAwaitingApproval {
		log.Info("renewal awaiting approval",
			slog.String("username", username),
			slog.String("approval_request_id", out.RequestID))
		render.JSON(w, r, response.OKWithData(out))
		return
	}
	log.Info("renewal request failed",
		slog.String("username", username),
		slog.String("reason", string(out.Reason)))
	render.JSON(w, r, out)
}
