// metrics: прометеевские метрики сервиса.
//
// Все методы безопасны для nil-получателя: компоненты, собранные без метрик
// (юнит-тесты), просто ничего не считают.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bearfit_auth"

// Metrics: набор коллекторов сервиса.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	tokensIssued *prometheus.CounterVec
	otpOutcomes  *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token pairs issued by flow (register, login, refresh, federated).",
		}, []string{"flow"}),
		otpOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_events_total",
			Help:      "OTP events by outcome (sent, send_failed, verified, mismatch, verify_failed).",
		}, []string{"outcome"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts by flow.",
		}, []string{"flow"}),
	}

	reg.MustRegister(m.httpRequests, m.httpDuration, m.tokensIssued, m.otpOutcomes, m.authFailures)

	return m
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TokensIssued учитывает выданную пару токенов.
func (m *Metrics) TokensIssued(flow string) {
	if m == nil {
		return
	}

	m.tokensIssued.WithLabelValues(flow).Inc()
}

// OTP учитывает событие жизненного цикла одноразового кода.
func (m *Metrics) OTP(outcome string) {
	if m == nil {
		return
	}

	m.otpOutcomes.WithLabelValues(outcome).Inc()
}

// AuthFailure учитывает отклонённую попытку аутентификации.
func (m *Metrics) AuthFailure(flow string) {
	if m == nil {
		return
	}

	m.authFailures.WithLabelValues(flow).Inc()
}
