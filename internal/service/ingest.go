// ingest.go — сервис приёма загрузок: разбор тела запроса,
// проверка размера, сохранение через storage.Backend.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bigkaa/goartstore/file-host/internal/api/middleware"
	"github.com/bigkaa/goartstore/file-host/internal/domain/fileid"
	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
	"github.com/bigkaa/goartstore/file-host/internal/multipart"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
)

// multipartOverhead — запас на заголовки и разделители multipart сверх
// максимального размера файла.
const multipartOverhead = 1 << 20

// Имена полей multipart-формы.
const (
	fieldFile      = "file"
	fieldExpiresAt = "expires_at"
)

// IngestParams — параметры загрузки.
type IngestParams struct {
	// Body — тело запроса
	Body io.Reader
	// Boundary — boundary из Content-Type; пустой — сырое тело без разбора
	Boundary string
	// ContentType — Content-Type запроса (для сырого режима)
	ContentType string
	// ContentLength — объявленный размер тела, -1 — неизвестен
	ContentLength int64
}

// IngestService — сервис приёма загрузок.
type IngestService struct {
	backend     storage.Backend
	stats       *StatsCache
	maxFileSize int64
	logger      *slog.Logger
}

// NewIngestService создаёт сервис приёма загрузок.
func NewIngestService(
	backend storage.Backend,
	stats *StatsCache,
	maxFileSize int64,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		backend:     backend,
		stats:       stats,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "ingest_service")),
	}
}

// Ingest принимает файл и сохраняет его под новым идентификатором.
//
// С boundary тело разбирается как multipart/form-data и обязана
// присутствовать часть file; опциональное поле expires_at (RFC 3339)
// сохраняется как срок хранения. Без boundary всё тело — содержимое
// файла, тип берётся из Content-Type запроса, имя не задаётся.
//
// multipart-тело буферизуется целиком. Сырое тело передаётся хранилищу
// потоком: превышение FH_MAX_FILE_SIZE обрывает чтение, и хранилище
// отменяет запись. Объявленный Content-Length сверх лимита отклоняется
// до обращения к хранилищу.
func (s *IngestService) Ingest(ctx context.Context, p IngestParams) (*model.FileRecord, error) {
	var (
		payload      io.Reader
		originalName string
		contentType  string
		expiresAt    *time.Time
		err          error
	)

	if p.Boundary != "" {
		var data []byte
		data, originalName, contentType, expiresAt, err = s.fromMultipart(p)
		payload = bytes.NewReader(data)
	} else {
		payload, err = s.rawPayload(p)
		contentType = detectContentType(p.ContentType)
	}
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", middleware.ResultError).Inc()
		return nil, err
	}

	id := fileid.Generate()
	rec, err := s.backend.Put(ctx, storage.PutRequest{
		ID:           id,
		StoredName:   fileid.StoredName(id, originalName),
		OriginalName: originalName,
		ContentType:  contentType,
		ExpiresAt:    expiresAt,
		Payload:      payload,
	})
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", middleware.ResultError).Inc()
		if errors.Is(err, ErrFileTooLarge) {
			return nil, tooLarge(s.maxFileSize)
		}
		s.logger.Error("Ошибка сохранения файла",
			slog.String("file_id", id),
			slog.String("backend", s.backend.Name()),
			slog.String("error", err.Error()),
		)
		return nil, mapStorageError(err)
	}

	s.stats.Invalidate()
	middleware.OperationsTotal.WithLabelValues("upload", middleware.ResultSuccess).Inc()
	middleware.UploadedBytesTotal.Add(float64(rec.Size))

	s.logger.Info("Файл загружен",
		slog.String("file_id", rec.ID),
		slog.String("name", originalName),
		slog.String("size", humanize.IBytes(uint64(rec.Size))),
		slog.String("backend", s.backend.Name()),
	)
	return rec, nil
}

// rawPayload возвращает поток сырого тела с проверкой размера.
func (s *IngestService) rawPayload(p IngestParams) (io.Reader, error) {
	if p.ContentLength > s.maxFileSize {
		return nil, tooLarge(s.maxFileSize)
	}
	if p.Body == nil {
		return bytes.NewReader(nil), nil
	}
	return &limitedPayload{r: io.LimitReader(p.Body, s.maxFileSize+1), limit: s.maxFileSize}, nil
}

// fromMultipart разбирает multipart-тело и извлекает файл и поля.
func (s *IngestService) fromMultipart(p IngestParams) (
	payload []byte, name, contentType string, expiresAt *time.Time, err error,
) {
	if p.ContentLength > s.maxFileSize+multipartOverhead {
		return nil, "", "", nil, tooLarge(s.maxFileSize)
	}
	buf, err := readLimited(p.Body, s.maxFileSize+multipartOverhead)
	if err != nil {
		return nil, "", "", nil, err
	}

	form, err := multipart.Decode(buf, p.Boundary)
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	part, ok := form.File(fieldFile)
	if !ok {
		return nil, "", "", nil, ErrNoFile
	}
	if int64(len(part.Data)) > s.maxFileSize {
		return nil, "", "", nil, fmt.Errorf("%w: %s при максимуме %s", ErrFileTooLarge,
			humanize.IBytes(uint64(len(part.Data))), humanize.IBytes(uint64(s.maxFileSize)))
	}

	if v, ok := form.Value(fieldExpiresAt); ok && strings.TrimSpace(v) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return nil, "", "", nil, fmt.Errorf("%w: expires_at должен быть в формате RFC 3339: %q", ErrValidation, v)
		}
		t = t.UTC()
		expiresAt = &t
	}

	return part.Data, part.Filename, detectContentType(part.ContentType), expiresAt, nil
}

// readLimited читает не более limit байт. Более длинное тело —
// ErrFileTooLarge без сохранения прочитанного.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения тела запроса: %w", ErrValidation, err)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge(limit)
	}
	return data, nil
}

// tooLarge — ошибка превышения лимита размера.
func tooLarge(limit int64) error {
	return fmt.Errorf("%w: максимум %s", ErrFileTooLarge, humanize.IBytes(uint64(limit)))
}

// limitedPayload — сырое тело с проверкой лимита. Чтение сверх limit
// байт возвращает ErrFileTooLarge; хранилище при ошибке чтения не
// сохраняет запись.
type limitedPayload struct {
	r     io.Reader
	limit int64
	read  int64
}

func (p *limitedPayload) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.read > p.limit {
		return 0, tooLarge(p.limit)
	}
	return n, err
}

// detectContentType возвращает MIME-тип без параметров или
// application/octet-stream, если тип не задан или не разбирается.
func detectContentType(header string) string {
	if strings.TrimSpace(header) == "" {
		return model.DefaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "" {
		return model.DefaultContentType
	}
	return mediaType
}
