// Package login реализует HTTP-обработчик попытки входа.
//
// В нём определяется структура Request для входных данных, выполняется
// декодирование JSON, проверка и валидация полей, а также делегирование
// попытки сервису входа. Успешный вход возвращает JSON с JWT; вход,
// требующий решения оператора, возвращает 202 с request_id для опроса.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/basimtrading/auth-gate/internal/http/response"
	"github.com/basimtrading/auth-gate/internal/lib/jwt"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/metrics"
	"github.com/basimtrading/auth-gate/internal/models"
)

// Request — структура входных данных для попытки входа.
//
// Username должен быть строкой длиной от 3 до 50 символов, пароль — минимум
// 6 символов. DeviceFingerprint обязателен: без него нечего сверять с
// привязкой учётной записи к устройству.
type Request struct {
	Username          string `json:"username" validate:"required,min=3,max=50"`
	Password          string `json:"password" validate:"required,min=6"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required,min=8,max=128"`
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Attempt(ctx context.Context, username, rawPassword, fingerprint string) models.Outcome
}

// Handler обрабатывает HTTP-запросы попытки входа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис входа
	maker    jwt.Maker           // Выпуск сессионных токенов
	validate *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, maker jwt.Maker) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		maker:    maker,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Попытка входа
// @Description Проверяет пароль, привязку устройства и подписку. Для новой учётной записи или суперпользователя возвращает 202 с request_id ожидающей заявки.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные и отпечаток устройства"
// @Success 200 {object} response.Response "Успешный вход, выдан JWT"
// @Success 202 {object} response.Response "Ожидает решения оператора"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.Response "Отказ с указанием причины"
// @Failure 502 {object} response.Response "Канал уведомлений недоступен"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	out := h.service.Attempt(r.Context(), req.Username, req.Password, req.DeviceFingerprint)
	metrics.ObserveLogin(out)

	switch out.Status {
	case models.OutcomeSuccess:
		token, err := h.maker.GenerateToken(req.Username, out.Role)
		if err != nil {
			log.Error("failed to issue token", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		}
		log.Info("login success", slog.String("username", req.Username))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"token":    token,
			"role":     out.Role,
			"username": req.Username,
		}))
	case models.OutcomeAwaitingApproval:
		w.WriteHeader(response.HTTPStatus(out))
		log.Info("login awaiting approval",
			slog.String("username", req.Username),
			slog.String("approval_request_id", out.RequestID))
		render.JSON(w, r, response.OKWithData(out))
	default:
		w.WriteHeader(response.HTTPStatus(out))
		log.Info("login failed",
			slog.String("username", req.Username),
			slog.String("reason", string(out.Reason)))
		render.JSON(w, r, out)
	}
}
