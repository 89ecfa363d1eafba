// retrieval.go — сервис выдачи, листинга и удаления файлов.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/bigkaa/goartstore/file-host/internal/api/middleware"
	"github.com/bigkaa/goartstore/file-host/internal/domain/fileid"
	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
)

// ListParams — параметры листинга. Page начинается с 1.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

// ListResult — страница файлов с пагинацией и статистикой.
type ListResult struct {
	// Files — записи текущей страницы (без содержимого)
	Files []*model.FileRecord
	// Page — номер страницы
	Page int
	// Limit — размер страницы
	Limit int
	// Total — количество записей, подходящих под поиск
	Total int
	// Pages — ceil(Total/Limit)
	Pages int
	// Stats — статистика по всем подходящим записям
	Stats model.Stats
}

// StatusReport — состояние хранилища для /api/status.
type StatusReport struct {
	// Backend — тип хранилища
	Backend string
	// StorageOK — хранилище отвечает
	StorageOK bool
	// StorageError — причина недоступности (если StorageOK = false)
	StorageError string
	// Stats — статистика по всем файлам (нулевая при недоступном хранилище)
	Stats model.Stats
}

// RetrievalService — сервис выдачи, листинга и удаления файлов.
type RetrievalService struct {
	backend  storage.Backend
	stats    *StatsCache
	maxLimit int
	logger   *slog.Logger
}

// NewRetrievalService создаёт сервис выдачи файлов.
// maxLimit — максимальный размер страницы листинга.
func NewRetrievalService(
	backend storage.Backend,
	stats *StatsCache,
	maxLimit int,
	logger *slog.Logger,
) *RetrievalService {
	return &RetrievalService{
		backend:  backend,
		stats:    stats,
		maxLimit: maxLimit,
		logger:   logger.With(slog.String("component", "retrieval_service")),
	}
}

// Download возвращает метаданные и поток содержимого файла.
// Вызывающий код обязан закрыть поток. Счётчик скачиваний
// увеличивается best effort: ошибка только логируется.
func (s *RetrievalService) Download(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error) {
	if !fileid.Validate(id) {
		return nil, nil, ErrInvalidID
	}

	rec, content, err := s.backend.Get(ctx, id)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("download", middleware.ResultError).Inc()
		return nil, nil, mapStorageError(err)
	}

	if err := s.backend.IncrementDownloads(ctx, id); err != nil {
		s.logger.Warn("Не удалось увеличить счётчик скачиваний",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
	}

	middleware.OperationsTotal.WithLabelValues("download", middleware.ResultSuccess).Inc()
	return rec, content, nil
}

// Remove удаляет файл. Повторное удаление возвращает ErrNotFound.
func (s *RetrievalService) Remove(ctx context.Context, id string) error {
	if !fileid.Validate(id) {
		return ErrInvalidID
	}

	if err := s.backend.Delete(ctx, id); err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", middleware.ResultError).Inc()
		return mapStorageError(err)
	}

	s.stats.Invalidate()
	middleware.OperationsTotal.WithLabelValues("delete", middleware.ResultSuccess).Inc()
	s.logger.Info("Файл удалён", slog.String("file_id", id))
	return nil
}

// List возвращает страницу файлов и статистику по всем совпадениям.
// Страница за пределами Pages — пустой список без ошибки.
func (s *RetrievalService) List(ctx context.Context, p ListParams) (*ListResult, error) {
	if p.Page < 1 {
		return nil, fmt.Errorf("%w: page должен быть >= 1", ErrValidation)
	}
	if p.Limit < 1 || p.Limit > s.maxLimit {
		return nil, fmt.Errorf("%w: limit должен быть от 1 до %d", ErrValidation, s.maxLimit)
	}
	if int64(p.Page-1)*int64(p.Limit) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: page слишком большой", ErrValidation)
	}

	files, total, err := s.backend.List(ctx, storage.ListQuery{
		Search: p.Search,
		Skip:   (p.Page - 1) * p.Limit,
		Limit:  p.Limit,
	})
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("list", middleware.ResultError).Inc()
		return nil, mapStorageError(err)
	}

	stats, err := s.stats.Get(ctx, p.Search, s.backend.Stats)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("list", middleware.ResultError).Inc()
		return nil, mapStorageError(err)
	}

	middleware.OperationsTotal.WithLabelValues("list", middleware.ResultSuccess).Inc()
	return &ListResult{
		Files: files,
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: model.Pages(total, p.Limit),
		Stats: stats,
	}, nil
}

// Status проверяет хранилище и собирает общую статистику.
// Недоступность хранилища не является ошибкой: она отражается в отчёте.
func (s *RetrievalService) Status(ctx context.Context) StatusReport {
	report := StatusReport{Backend: s.backend.Name(), StorageOK: true}

	if err := s.backend.Ping(ctx); err != nil {
		report.StorageOK = false
		report.StorageError = err.Error()
		return report
	}

	stats, err := s.stats.Get(ctx, "", s.backend.Stats)
	if err != nil {
		report.StorageOK = false
		report.StorageError = err.Error()
		return report
	}
	report.Stats = stats
	return report
}

// Ping проверяет доступность хранилища (readiness).
func (s *RetrievalService) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return mapStorageError(err)
	}
	return nil
}
