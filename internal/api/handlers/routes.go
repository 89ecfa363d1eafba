// routes.go — регистрация маршрутов и общее сопоставление ошибок
// сервисного слоя с HTTP-ответами.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/file-host/internal/api/errors"
	"github.com/bigkaa/goartstore/file-host/internal/api/openapi"
	"github.com/bigkaa/goartstore/file-host/internal/service"
)

// RegisterRoutes монтирует API и health endpoints на роутер.
// Неизвестный путь — 404, неподдерживаемый метод — 405, оба в формате
// ошибок API.
func RegisterRoutes(r chi.Router, files *FilesHandler, status *StatusHandler, health *HealthHandler) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, fmt.Sprintf("Маршрут %s не найден", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.MethodNotAllowed(w, fmt.Sprintf("Метод %s не поддерживается для %s", r.Method, r.URL.Path))
	})

	r.Post("/api/upload", files.Upload)
	r.Post("/api/upload-simple", files.UploadSimple)
	r.Get("/api/download/{id}", files.Download)
	r.Get("/api/files", files.List)
	r.Delete("/api/delete/{id}", files.Delete)
	r.Get("/api/status", status.GetStatus)
	r.Get("/api/openapi.yaml", ServeOpenAPI)

	r.Get("/health/live", health.HealthLive)
	r.Get("/health/ready", health.HealthReady)
}

// ServeOpenAPI отдаёт встроенный OpenAPI-контракт.
func ServeOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", openapi.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec())
}

// writeServiceError сопоставляет ошибку сервиса со статусом и кодом.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidID):
		apierrors.ValidationError(w, "Некорректный идентификатор файла")
	case errors.Is(err, service.ErrNoFile):
		apierrors.ValidationError(w, "Файл не передан: в форме нет части file")
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		apierrors.FileTooLarge(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Файл не найден")
	case errors.Is(err, service.ErrStorageUnavailable):
		logger.Error("Ошибка хранилища", slog.String("error", err.Error()))
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.CodeStorageUnavailable, err.Error())
	default:
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// writeJSON отправляет JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
