package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StreamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hunter_stream_messages_total", Help: "Decoded stream messages by kind"},
		[]string{"kind"},
	)
	StreamDecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "hunter_stream_decode_errors_total", Help: "Stream payloads dropped as malformed"},
	)
	StreamReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "hunter_stream_reconnects_total", Help: "Scheduled stream reconnects"},
	)
	StreamState = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "hunter_stream_state", Help: "0 disconnected, 1 connecting, 2 connected, 3 reconnect wait"},
	)
	StreamSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "hunter_stream_subscriptions", Help: "Active per-symbol kline channels"},
	)
	RESTFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hunter_rest_fetches_total", Help: "REST collaborator calls by endpoint and outcome"},
		[]string{"endpoint", "outcome"},
	)
	RecomputeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hunter_recompute_seconds",
			Help:    "Indicator and score recompute latency per symbol",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
	SnapshotsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "hunter_snapshots_published_total", Help: "Snapshots flushed to readers"},
	)
	TrackedSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "hunter_tracked_symbols", Help: "Symbols held in the candle store"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hunter_alerts_total", Help: "Bias alerts by bias and channel"},
		[]string{"bias", "channel"},
	)
)

func init() {
	prometheus.MustRegister(
		StreamMessagesTotal,
		StreamDecodeErrorsTotal,
		StreamReconnectsTotal,
		StreamState,
		StreamSubscriptions,
		RESTFetchesTotal,
		RecomputeSeconds,
		SnapshotsPublishedTotal,
		TrackedSymbols,
		AlertsTotal,
	)
}

// ObserveRecompute records the time since start.
func ObserveRecompute(start time.Time) {
	RecomputeSeconds.Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
