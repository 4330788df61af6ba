// Package metrics содержит счётчики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/basimtrading/auth-gate/internal/models"
)

var loginOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authgate",
	Name:      "login_outcomes_total",
	Help:      "Исходы попыток входа по статусу и причине отказа.",
}, []string{"status", "reason"})

// ObserveLogin учитывает исход попытки входа.
func ObserveLogin(out models.Outcome) {
	loginOutcomes.WithLabelValues(string(out.Status), string(out.Reason)).Inc()
}

// RegisterPendingApprovals публикует число неразрешённых заявок.
func RegisterPendingApprovals(pending func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "authgate",
		Name:      "pending_approvals",
		Help:      "Число заявок, ожидающих решения оператора.",
	}, func() float64 { return float64(pending()) })
}
