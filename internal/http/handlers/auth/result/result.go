// Package result реализует HTTP-обработчик ожидания решения оператора.
//
// Клиент, получивший 202 на попытку входа, опрашивает этот эндпоинт с
// request_id заявки. Запрос блокируется до решения, тайм-аута заявки или
// отмены клиентом; по уже разрешённой или неизвестной заявке возвращается 404.
package result

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/basimtrading/auth-gate/internal/http/response"
	"github.com/basimtrading/auth-gate/internal/lib/jwt"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/metrics"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/services/approval"
)

// Service описывает интерфейс ожидания решения по заявке.
type Service interface {
	AwaitDecision(ctx context.Context, requestID string) (models.Outcome, string, error)
}

// Handler обрабатывает HTTP-запросы ожидания решения.
type Handler struct {
	log     *slog.Logger
	service Service
	maker   jwt.Maker
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, maker jwt.Maker) *Handler {
	return &Handler{
		log:     log,
		service: service,
		maker:   maker,
	}
}

// ServeHTTP godoc
// @Summary Ожидание решения оператора
// @Description Блокируется до решения по заявке. При одобрении входа возвращает JWT.
// @Tags Auth
// @Produce  json
// @Param request_id path string true "Идентификатор заявки (uuid)"
// @Success 200 {object} response.Response "Решение получено"
// @Failure 401 {object} response.Response "Отказ с указанием причины"
// @Failure 404 {object} response.ErrorResponse "Заявка неизвестна или уже разрешена"
// @Router /login/result/{request_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.result"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	approvalID := chi.URLParam(r, "request_id")
	if _, err := uuid.Parse(approvalID); err != nil {
		log.Error("invalid approval request id", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("request_id must be a uuid"))
		return
	}

	out, subject, err := h.service.AwaitDecision(r.Context(), approvalID)
	if err != nil {
		if errors.Is(err, approval.ErrUnknownRequest) {
			log.Info("unknown approval request", slog.String("approval_request_id", approvalID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown request"))
			return
		}
		// Единственный другой источник ошибки — отмена контекста клиентом.
		log.Info("await cancelled", sl.Err(err))
		w.WriteHeader(http.StatusRequestTimeout)
		render.JSON(w, r, response.Error("request cancelled"))
		return
	}
	metrics.ObserveLogin(out)

	if out.Status != models.OutcomeSuccess {
		w.WriteHeader(response.HTTPStatus(out))
		log.Info("approval resolved with failure",
			slog.String("approval_request_id", approvalID),
			slog.String("reason", string(out.Reason)))
		render.JSON(w, r, out)
		return
	}

	token, err := h.maker.GenerateToken(subject, out.Role)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	log.Info("approval resolved with success", slog.String("username", subject))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    token,
		"role":     out.Role,
		"username": subject,
	}))
}
