package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meetsync"

var Registry = prometheus.NewRegistry()

var (
	OAuthCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_callbacks_total",
		Help:      "OAuth callbacks handled, by provider and result code.",
	}, []string{"provider", "result"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Access token refresh attempts, by provider and result.",
	}, []string{"provider", "result"})

	DispatchSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "automation_steps_total",
		Help:      "Automation steps executed, by provider and status.",
	}, []string{"provider", "status"})

	ProviderCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_call_duration_seconds",
		Help:      "Latency of outbound provider calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "operation"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		OAuthCallbacks,
		TokenRefreshes,
		DispatchSteps,
		ProviderCallDuration,
	)
}

// ObserveCall records the time since start for one provider operation.
func ObserveCall(provider, operation string, start time.Time) {
	ProviderCallDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
