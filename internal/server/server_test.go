package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/file-host/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{Port: 0, ShutdownTimeout: time.Second}
}

func TestNew_RoutesAndMetrics(t *testing.T) {
	srv := New(testConfig(), testLogger(), func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})
		r.Get("/panic", func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("статус %d, тело %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("паника: статус %d, ожидался 500", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics: статус %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fh_http_requests_total") {
		t.Error("в /metrics нет fh_http_requests_total")
	}
}

func TestNew_TLSConfig(t *testing.T) {
	cfg := testConfig()
	if srv := New(cfg, testLogger(), func(chi.Router) {}); srv.httpServer.TLSConfig != nil {
		t.Error("без сертификата TLS не должен настраиваться")
	}

	cfg.TLSCert, cfg.TLSKey = "/tmp/cert.pem", "/tmp/key.pem"
	srv := New(cfg, testLogger(), func(chi.Router) {})
	if srv.httpServer.TLSConfig == nil {
		t.Fatal("TLS не настроен")
	}
}

func TestRunContext_Shutdown(t *testing.T) {
	cfg := testConfig()
	srv := New(cfg, testLogger(), func(chi.Router) {})
	srv.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunContext: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("сервер не остановился")
	}
}
