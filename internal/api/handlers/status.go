// status.go — обработчик GET /api/status: идентификация сервиса,
// время работы, состояние хранилища и общая статистика.
package handlers

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bigkaa/goartstore/file-host/internal/config"
	"github.com/bigkaa/goartstore/file-host/internal/service"
)

// DependencyHealth — источник состояния внешних зависимостей
// (service.DephealthService для document-хранилища).
type DependencyHealth interface {
	Health() map[string]bool
}

// storageStatus — блок состояния хранилища.
type storageStatus struct {
	Connected    bool            `json:"connected"`
	Error        string          `json:"error,omitempty"`
	Dependencies map[string]bool `json:"dependencies,omitempty"`
}

// statsStatus — общая статистика с размером в читаемом виде.
type statsStatus struct {
	Total          int64   `json:"total"`
	TotalSize      int64   `json:"totalSize"`
	TotalSizeHuman string  `json:"totalSizeHuman"`
	AverageSize    float64 `json:"averageSize"`
}

// statusResponse — ответ /api/status.
type statusResponse struct {
	Status    string        `json:"status"`
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Uptime    int64         `json:"uptime"`
	Region    string        `json:"region"`
	Backend   string        `json:"backend"`
	Storage   storageStatus `json:"storage"`
	Stats     statsStatus   `json:"stats"`
}

// StatusHandler — обработчик /api/status.
type StatusHandler struct {
	retrieval   *service.RetrievalService
	deps        DependencyHealth
	serviceName string
	region      string
	startedAt   time.Time
	now         func() time.Time
}

// NewStatusHandler создаёт обработчик статуса.
// deps — может быть nil (disk-хранилище без внешних зависимостей).
func NewStatusHandler(
	retrieval *service.RetrievalService,
	deps DependencyHealth,
	serviceName, region string,
) *StatusHandler {
	return &StatusHandler{
		retrieval:   retrieval,
		deps:        deps,
		serviceName: serviceName,
		region:      region,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

// GetStatus обрабатывает GET /api/status.
// Недоступное хранилище отражается в блоке storage, статус ответа 200.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report := h.retrieval.Status(r.Context())
	now := h.now()

	resp := statusResponse{
		Status:    "online",
		Service:   h.serviceName,
		Version:   config.Version,
		Timestamp: now.UTC().Format(time.RFC3339),
		Uptime:    int64(now.Sub(h.startedAt).Seconds()),
		Region:    h.region,
		Backend:   report.Backend,
		Storage: storageStatus{
			Connected: report.StorageOK,
			Error:     report.StorageError,
		},
		Stats: statsStatus{
			Total:          report.Stats.Count,
			TotalSize:      report.Stats.TotalSize,
			TotalSizeHuman: humanize.IBytes(uint64(report.Stats.TotalSize)),
			AverageSize:    report.Stats.AverageSize,
		},
	}
	if h.deps != nil {
		resp.Storage.Dependencies = h.deps.Health()
	}

	writeJSON(w, http.StatusOK, resp)
}
