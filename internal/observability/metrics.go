package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every fieldops collector; it is kept apart from the
// default registry so the TUI exposes only client metrics.
var Registry = prometheus.NewRegistry()

var (
	photoAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldops",
		Subsystem: "photo",
		Name:      "attempts_total",
		Help:      "Photo load attempts by outcome (ok, error).",
	}, []string{"outcome"})
	photoRefs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldops",
		Subsystem: "photo",
		Name:      "refs_total",
		Help:      "Photo references that reached a terminal state (loaded, failed).",
	}, []string{"state"})
	photoQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldops",
		Subsystem: "photo",
		Name:      "queue_depth",
		Help:      "Photo references waiting in the scheduler queue.",
	})
	apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldops",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Backend requests by method and status code (0 for transport failures).",
	}, []string{"method", "status"})
)

func init() {
	Registry.MustRegister(photoAttempts, photoRefs, photoQueueDepth, apiRequests)
}

// RecordPhotoAttempt counts one load attempt.
func RecordPhotoAttempt(ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	photoAttempts.WithLabelValues(outcome).Inc()
}

// RecordPhotoTerminal counts a ref reaching Loaded or Failed.
func RecordPhotoTerminal(state string) {
	photoRefs.WithLabelValues(state).Inc()
}

// SetPhotoQueueDepth publishes the pending queue length.
func SetPhotoQueueDepth(n int) {
	photoQueueDepth.Set(float64(n))
}

// RecordAPIRequest counts a backend call; status 0 marks a network failure.
func RecordAPIRequest(method string, status int) {
	apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
