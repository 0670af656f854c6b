package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	AnalysesSubmitted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_analyses_submitted_total", Help: "Analysis jobs created"})
	AnalysesCompleted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_analyses_completed_total", Help: "Analysis jobs that reached COMPLETED"})
	AnalysesFailed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_analyses_failed_total", Help: "Analysis jobs that reached FAILED"})
	TransactionsScored = prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_transactions_scored_total", Help: "Rows annotated by the scorer"})
	AnomaliesFlagged   = prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_anomalies_flagged_total", Help: "Rows flagged as anomalous"})
	RateLimitRejects   = prometheus.NewCounter(prometheus.CounterOpts{Name: "risk_rate_limit_rejects_total", Help: "Uploads rejected by rate limiter"})
	SummarizerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "risk_summarizer_requests_total", Help: "Summarizer requests by outcome"}, []string{"outcome"})
	QueueDepthGauge    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "risk_queue_depth", Help: "Analysis tasks waiting for a worker"})
	InFlightGauge      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "risk_inflight", Help: "Analysis tasks currently leased"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesSubmitted,
			AnalysesCompleted,
			AnalysesFailed,
			TransactionsScored,
			AnomaliesFlagged,
			RateLimitRejects,
			SummarizerRequests,
			QueueDepthGauge,
			InFlightGauge,
		)
	})
	return promhttp.Handler()
}
