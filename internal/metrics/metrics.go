// metrics — счётчики Prometheus по исходам операций аутентификации.
// Nil *Metrics допустим: все методы становятся no-op.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "auth"

// Исходы операций (значение лейбла result).
const (
	ResultOK          = "ok"
	ResultRejected    = "rejected"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

// Metrics — набор счётчиков сервиса.
type Metrics struct {
	ops     *prometheus.CounterVec
	cleaned prometheus.Counter
	revoked *prometheus.CounterVec
}

// New регистрирует счётчики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Auth operations by name and result.",
		}, []string{"op", "result"}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cleaned_total",
			Help:      "Expired sessions removed by the cleanup sweep.",
		}),
		revoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_revoked_total",
			Help:      "Sessions ended by logout, revocation or logout-all.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ops, m.cleaned, m.revoked)

	return m
}

// Observe учитывает исход операции op.
func (m *Metrics) Observe(op, result string) {
	if m == nil {
		return
	}

	m.ops.WithLabelValues(op, result).Inc()
}

// SessionsCleaned учитывает результат очистки.
func (m *Metrics) SessionsCleaned(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.cleaned.Add(float64(n))
}

// SessionsRevoked учитывает завершённые сессии по причине.
func (m *Metrics) SessionsRevoked(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}

	m.revoked.WithLabelValues(reason).Add(float64(n))
}
