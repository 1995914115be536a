// Package metrics exposes Prometheus counters for the authentication core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcome label values
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultRateLimited        = "rate_limited"
	ResultError              = "error"
)

type Metrics struct {
	LoginAttempts  *prometheus.CounterVec
	Lockouts       prometheus.Counter
	CSRFRejections prometheus.Counter
	TokensIssued   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"result"}),
		Lockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Lockouts triggered by repeated failures.",
		}),
		CSRFRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_csrf_rejections_total",
			Help: "State-changing requests rejected by the anti-forgery check.",
		}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Bearer tokens issued after successful authentication.",
		}),
	}
}

// Handler serves the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
