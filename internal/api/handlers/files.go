// files.go — HTTP handlers для файловых операций file-host.
// Upload, Upload-simple, Download, List, Delete.
package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/file-host/internal/api/errors"
	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
	"github.com/bigkaa/goartstore/file-host/internal/service"
)

// Параметры листинга по умолчанию.
const (
	defaultPage  = 1
	defaultLimit = 10
)

// downloadPathPrefix — префикс ссылки на скачивание в ответе upload.
const downloadPathPrefix = "/api/download/"

// uploadResponse — ответ на успешную загрузку.
type uploadResponse struct {
	Success     bool              `json:"success"`
	File        *model.FileRecord `json:"file"`
	Message     string            `json:"message"`
	DownloadURL string            `json:"downloadUrl"`
}

// pagination — блок пагинации листинга.
type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// listResponse — ответ листинга.
type listResponse struct {
	Success    bool                `json:"success"`
	Files      []*model.FileRecord `json:"files"`
	Pagination pagination          `json:"pagination"`
	Stats      model.Stats         `json:"stats"`
}

// deleteResponse — ответ на удаление.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	ingest    *service.IngestService
	retrieval *service.RetrievalService
	logger    *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(
	ingest *service.IngestService,
	retrieval *service.RetrievalService,
	logger *slog.Logger,
) *FilesHandler {
	return &FilesHandler{
		ingest:    ingest,
		retrieval: retrieval,
		logger:    logger.With(slog.String("component", "files_handler")),
	}
}

// Upload обрабатывает POST /api/upload.
// multipart/form-data: file (обязательно), expires_at (опционально, RFC 3339).
// Любой другой Content-Type — тело запроса целиком является файлом.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	params := service.IngestParams{
		Body:          r.Body,
		ContentType:   contentType,
		ContentLength: r.ContentLength,
	}

	if mediaType, mp, err := mime.ParseMediaType(contentType); err == nil && mediaType == "multipart/form-data" {
		params.Boundary = mp["boundary"]
		if params.Boundary == "" {
			apierrors.ValidationError(w, "В Content-Type multipart/form-data отсутствует boundary")
			return
		}
	}

	h.upload(w, r, params)
}

// UploadSimple обрабатывает POST /api/upload-simple.
// Тело запроса сохраняется как есть, без разбора multipart.
func (h *FilesHandler) UploadSimple(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, service.IngestParams{
		Body:          r.Body,
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
	})
}

func (h *FilesHandler) upload(w http.ResponseWriter, r *http.Request, params service.IngestParams) {
	rec, err := h.ingest.Ingest(r.Context(), params)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		File:        rec,
		Message:     "Файл загружен",
		DownloadURL: downloadPathPrefix + rec.ID,
	})
}

// Download обрабатывает GET /api/download/{id}.
// Поддерживает Range и условные запросы, если хранилище отдаёт
// содержимое с возможностью позиционирования.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := fileIDParam(r)

	rec, content, err := h.retrieval.Download(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", model.DefaultContentType)
	w.Header().Set("Content-Disposition", contentDisposition(rec.DisplayName()))

	if rs, ok := content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", rec.UploadedAt, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		// Заголовки уже отправлены, остаётся только залогировать
		h.logger.Warn("Ошибка отправки содержимого файла",
			slog.String("file_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// List обрабатывает GET /api/files?page=&limit=&search=.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q, "page", defaultPage)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	limit, err := intParam(q, "limit", defaultLimit)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	res, err := h.retrieval.List(r.Context(), service.ListParams{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Files:   res.Files,
		Pagination: pagination{
			Page:  res.Page,
			Limit: res.Limit,
			Total: res.Total,
			Pages: res.Pages,
		},
		Stats: res.Stats,
	})
}

// Delete обрабатывает DELETE /api/delete/{id}.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := fileIDParam(r)

	if err := h.retrieval.Remove(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "Файл удалён",
	})
}

// fileIDParam возвращает id из пути в раскодированном виде. chi
// сопоставляет маршрут по RawPath, поэтому a%2Fb приходит как есть.
// Некорректное экранирование даёт пустой id.
func fileIDParam(r *http.Request) string {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		return ""
	}
	return id
}

// intParam читает целочисленный query-параметр; пустое значение — def.
func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("параметр %s должен быть целым числом: %q", name, raw)
	}
	return v, nil
}

// contentDisposition формирует заголовок attachment с именем файла.
// В filename остаются только печатные ASCII-символы без кавычек и
// обратной косой черты; полное имя передаётся в filename* (RFC 5987).
func contentDisposition(name string) string {
	safe := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)

	v := `attachment; filename="` + safe + `"`
	if safe != name {
		v += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return v
}
