package response

import (
	"net/http"

	"github.com/basimtrading/auth-gate/internal/models"
)

// HTTPStatus переводит итог попытки входа или продления в HTTP-статус.
//
// Отказы по вине клиента (пароль, устройство, подписка, решение оператора)
// отдаются как 401, недоступность канала уведомлений — как 502,
// сбой хранилища — как 500, ожидание решения — как 202.
func HTTPStatus(out models.Outcome) int {
	switch out.Status {
	case models.OutcomeSuccess:
		return http.StatusOK
	case models.OutcomeAwaitingApproval:
		return http.StatusAccepted
	}
	switch out.Reason {
	case models.ReasonChannelUnavailable:
		return http.StatusBadGateway
	case models.ReasonStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}
