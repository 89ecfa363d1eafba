// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/file-host/internal/config"
	"github.com/bigkaa/goartstore/file-host/internal/service"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	retrieval   *service.RetrievalService
	serviceName string
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(retrieval *service.RetrievalService, serviceName string) *HealthHandler {
	return &HealthHandler{
		retrieval:   retrieval,
		serviceName: serviceName,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.Version,
		"service":   h.serviceName,
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет доступность хранилища, при сбое — 503.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	storageCheck := map[string]any{"status": "ok"}

	if err := h.retrieval.Ping(r.Context()); err != nil {
		status = statusFail
		httpStatus = http.StatusServiceUnavailable
		storageCheck = map[string]any{
			"status":  statusFail,
			"message": err.Error(),
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.Version,
		"service":   h.serviceName,
		"checks": map[string]any{
			"storage": storageCheck,
		},
	})
}
