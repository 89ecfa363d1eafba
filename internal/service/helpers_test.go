package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	stdmultipart "mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
	"github.com/bigkaa/goartstore/file-host/internal/storage/filestore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingBackend — дисковое хранилище, запоминающее последний PutRequest.
type recordingBackend struct {
	*filestore.FileStore
	last    storage.PutRequest
	putErr  error
	puts    int
	listErr error

	// beforePut вызывается в начале Put, если задан
	beforePut func()
}

func (b *recordingBackend) Put(ctx context.Context, req storage.PutRequest) (*model.FileRecord, error) {
	b.puts++
	b.last = req
	if b.beforePut != nil {
		b.beforePut()
	}
	if b.putErr != nil {
		return nil, b.putErr
	}
	return b.FileStore.Put(ctx, req)
}

func (b *recordingBackend) List(ctx context.Context, q storage.ListQuery) ([]*model.FileRecord, int, error) {
	if b.listErr != nil {
		return nil, 0, b.listErr
	}
	return b.FileStore.List(ctx, q)
}

// countingReader считает прочитанные байты.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// fixture — сервисы поверх дискового хранилища во временной директории.
type fixture struct {
	backend   *recordingBackend
	ingest    *IngestService
	retrieval *RetrievalService
	cache     *StatsCache
}

func newFixture(t *testing.T, maxFileSize int64) *fixture {
	t.Helper()
	fs, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	backend := &recordingBackend{FileStore: fs}
	cache := NewStatsCache(16, time.Minute)
	return &fixture{
		backend:   backend,
		ingest:    NewIngestService(backend, cache, maxFileSize, testLogger()),
		retrieval: NewRetrievalService(backend, cache, 100, testLogger()),
		cache:     cache,
	}
}

// formPart — часть multipart-формы для построения тела запроса.
type formPart struct {
	name        string
	filename    string
	contentType string
	data        []byte
}

// buildMultipart собирает тело multipart/form-data через mime/multipart
// и возвращает тело и boundary.
func buildMultipart(t *testing.T, parts ...formPart) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := stdmultipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		if p.filename != "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, p.filename))
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.name))
		}
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("ошибка создания части: %v", err)
		}
		if _, err := pw.Write(p.data); err != nil {
			t.Fatalf("ошибка записи части: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("ошибка закрытия multipart: %v", err)
	}
	return buf.Bytes(), w.Boundary()
}

// upload загружает файл через multipart и возвращает запись.
func (f *fixture) upload(t *testing.T, name string, data []byte) *model.FileRecord {
	t.Helper()
	body, boundary := buildMultipart(t, formPart{name: "file", filename: name, data: data})
	rec, err := f.ingest.Ingest(context.Background(), IngestParams{
		Body:     bytes.NewReader(body),
		Boundary: boundary,
	})
	if err != nil {
		t.Fatalf("ошибка загрузки %s: %v", name, err)
	}
	return rec
}
