package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry regroupe les collecteurs de l'application.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "screencraft",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screencraft",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "screencraft",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	activations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screencraft",
			Subsystem: "home_screen",
			Name:      "activations_total",
			Help:      "Activation attempts by result (ok, conflict, not_found, error).",
		},
		[]string{"result"},
	)

	sectionMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screencraft",
			Subsystem: "home_screen",
			Name:      "section_mutations_total",
			Help:      "Section mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	purgedReferences = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "screencraft",
			Subsystem: "references",
			Name:      "purged_total",
			Help:      "Dangling references removed, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		activations,
		sectionMutations,
		purgedReferences,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler enregistre compteurs et durées HTTP.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordActivation(result string) {
	activations.WithLabelValues(result).Inc()
}

func RecordSectionMutation(op, result string) {
	sectionMutations.WithLabelValues(op, result).Inc()
}

func RecordPurged(kind string, n int) {
	if n <= 0 {
		return
	}
	purgedReferences.WithLabelValues(kind).Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush garde le support SSE (/events) derrière l'instrumentation.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// canonicalPath remplace les identifiants par des placeholders pour limiter la cardinalité.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "home-screens", "content-items", "episodes":
	default:
		return "/" + parts[0]
	}
	out := []string{parts[0]}
	for i := 1; i < len(parts); i++ {
		switch {
		case i == 1 && parts[i] == "active":
			out = append(out, "active")
		case i%2 == 1:
			out = append(out, ":id")
		default:
			out = append(out, parts[i])
		}
	}
	return "/" + strings.Join(out, "/")
}
