// Пакет dbtest — запуск PostgreSQL в Docker-контейнере для
// интеграционных тестов (testcontainers). Тесты пропускаются,
// если TEST_INTEGRATION не установлена.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/file-host/internal/config"
)

// Start запускает PostgreSQL и возвращает конфигурацию document-хранилища.
// Контейнер останавливается в t.Cleanup.
func Start(t *testing.T) *config.Config {
	t.Helper()

	if testing.Short() {
		t.Skip("Пропуск интеграционного теста в режиме -short")
	}
	if !Enabled() {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("filehost_test"),
		postgres.WithUsername("filehost"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("FH_BACKEND", config.BackendDocument)
	t.Setenv("FH_DB_HOST", host)
	t.Setenv("FH_DB_PORT", port.Port())
	t.Setenv("FH_DB_NAME", "filehost_test")
	t.Setenv("FH_DB_USER", "filehost")
	t.Setenv("FH_DB_PASSWORD", "test-password")
	t.Setenv("FH_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	return cfg
}

// Enabled сообщает, включены ли интеграционные тесты.
func Enabled() bool {
	return os.Getenv("TEST_INTEGRATION") != ""
}
