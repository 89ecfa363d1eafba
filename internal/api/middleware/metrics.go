// metrics.go — Prometheus HTTP метрики file-host.
// Регистрирует метрики: fh_http_requests_total, fh_http_request_duration_seconds.
// Бизнес-метрики (fh_operations_total, fh_uploaded_bytes_total) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fh_http_requests_total",
			Help: "Общее количество HTTP-запросов к file-host",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fh_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к file-host в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// OperationsTotal — общее количество файловых операций.
	// operation: upload, download, delete, list; result: success, error.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fh_operations_total",
			Help: "Общее количество файловых операций",
		},
		[]string{"operation", "result"},
	)

	// UploadedBytesTotal — суммарный объём принятых файлов.
	UploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fh_uploaded_bytes_total",
			Help: "Суммарный объём загруженных файлов в байтах",
		},
	)
)

// Результаты операций для лейбла result.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Путь в лейблах — шаблон маршрута chi (/api/download/{id}), что
// ограничивает кардинальность.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// routePattern возвращает шаблон маршрута chi или "unmatched"
// для запросов, не попавших ни в один маршрут.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
