package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftbox_http_requests_total",
			Help: "Liczba obsłużonych żądań HTTP.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "craftbox_http_request_duration_seconds",
			Help:    "Czas obsługi żądania HTTP.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	treeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftbox_tree_operations_total",
			Help: "Liczba operacji strukturalnych na drzewie plików.",
		},
		[]string{"operation", "result"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

func recordTreeOp(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	treeOpsTotal.WithLabelValues(operation, result).Inc()
}
