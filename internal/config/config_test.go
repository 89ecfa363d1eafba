package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// documentEnvs возвращает минимальный набор переменных для document-хранилища.
func documentEnvs() map[string]string {
	return map[string]string{
		"FH_BACKEND":     "document",
		"FH_DB_HOST":     "localhost",
		"FH_DB_NAME":     "filehost",
		"FH_DB_USER":     "filehost",
		"FH_DB_PASSWORD": "secret",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.Backend != BackendDisk {
		t.Errorf("Backend = %q, ожидается disk", cfg.Backend)
	}
	if cfg.DataDir != filepath.Join(os.TempDir(), "file-host") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.MaxFileSize != 10*1024*1024 {
		t.Errorf("MaxFileSize = %d, ожидается 10 MB", cfg.MaxFileSize)
	}
	if cfg.ListMaxLimit != 100 {
		t.Errorf("ListMaxLimit = %d, ожидается 100", cfg.ListMaxLimit)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.StatsCacheTTL != 10*time.Second {
		t.Errorf("StatsCacheTTL = %v, ожидается 10s", cfg.StatsCacheTTL)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
	if cfg.Region != "unknown" {
		t.Errorf("Region = %q, ожидается unknown", cfg.Region)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"FH_PORT":          "9090",
		"FH_DATA_DIR":      "/var/lib/file-host",
		"FH_MAX_FILE_SIZE": "1024",
		"FH_LOG_LEVEL":     "debug",
		"FH_LOG_FORMAT":    "text",
		"FH_REGION":        "eu-central",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидается 9090", cfg.Port)
	}
	if cfg.DataDir != "/var/lib/file-host" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.MaxFileSize != 1024 {
		t.Errorf("MaxFileSize = %d, ожидается 1024", cfg.MaxFileSize)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.Region != "eu-central" {
		t.Errorf("Region = %q", cfg.Region)
	}
}

func TestLoad_DocumentBackend(t *testing.T) {
	setEnvs(t, documentEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.Backend != BackendDocument {
		t.Errorf("Backend = %q, ожидается document", cfg.Backend)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
}

func TestLoad_DocumentBackendRequiresDatabase(t *testing.T) {
	for _, missing := range []string{"FH_DB_HOST", "FH_DB_NAME", "FH_DB_USER", "FH_DB_PASSWORD"} {
		t.Run(missing, func(t *testing.T) {
			envs := documentEnvs()
			delete(envs, missing)
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatalf("ожидалась ошибка при отсутствии %s", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("ошибка должна упоминать %s: %v", missing, err)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"некорректный порт", "FH_PORT", "abc"},
		{"порт вне диапазона", "FH_PORT", "70000"},
		{"неизвестный backend", "FH_BACKEND", "s3"},
		{"отрицательный размер", "FH_MAX_FILE_SIZE", "-1"},
		{"некорректный размер", "FH_MAX_FILE_SIZE", "10MB"},
		{"некорректный TTL", "FH_STATS_CACHE_TTL", "ten"},
		{"некорректный уровень логов", "FH_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "FH_LOG_FORMAT", "xml"},
		{"TLS без ключа", "FH_TLS_CERT", "/etc/tls/cert.pem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBName: "files", DBUser: "u", DBPassword: "p", DBSSLMode: "require",
	}
	expected := "host=db port=5433 dbname=files user=u password=p sslmode=require"
	if dsn := cfg.DatabaseDSN(); dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", dsn, expected)
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5432, DBName: "files", DBUser: "u", DBPassword: "p@ss", DBSSLMode: "disable",
	}
	expected := "pgx5://u:p%40ss@db:5432/files?sslmode=disable"
	if got := cfg.DatabaseURL("pgx5"); got != expected {
		t.Errorf("DatabaseURL() = %q, ожидается %q", got, expected)
	}
}
