// Package status отдаёт сводку состояния подписки текущего пользователя:
// остаток дней, дату окончания и флаг предложения продлиться со скидкой.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/basimtrading/auth-gate/internal/http/middlewarectx"
	"github.com/basimtrading/auth-gate/internal/http/response"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/services/subscription"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

// AccountProvider определяет интерфейс поиска учётной записи.
type AccountProvider interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

// Ledger определяет интерфейс сводки подписки.
type Ledger interface {
	GetStatus(ctx context.Context, accountUID string) (*subscription.Status, error)
}

// Handler обрабатывает HTTP-запросы состояния подписки.
type Handler struct {
	log      *slog.Logger
	accounts AccountProvider
	ledger   Ledger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, accounts AccountProvider, ledger Ledger) *Handler {
	return &Handler{
		log:      log,
		accounts: accounts,
		ledger:   ledger,
	}
}

// ServeHTTP godoc
// @Summary Состояние подписки
// @Description Возвращает остаток дней, дату окончания и флаг предложения продления для текущего пользователя.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response "Сводка подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Учётная запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/status [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || username == "" {
		log.Error("username not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	account, err := h.accounts.GetAccountByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			log.Error("account not found", slog.String("username", username))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to get account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	st, err := h.ledger.GetStatus(r.Context(), account.UID)
	if err != nil {
		log.Error("failed to get subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscription status served", slog.String("username", username))
	render.JSON(w, r, response.OKWithData(st))
}
