// Точка входа file-host — сервис приёма, хранения и выдачи файлов.
// Загружает конфигурацию, выбирает хранилище (disk или document),
// создаёт сервисный слой и API handlers, для document-хранилища
// запускает мониторинг PostgreSQL (topologymetrics) после первого
// подключения, затем HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/file-host/internal/api/handlers"
	"github.com/bigkaa/goartstore/file-host/internal/api/openapi"
	"github.com/bigkaa/goartstore/file-host/internal/config"
	"github.com/bigkaa/goartstore/file-host/internal/database"
	"github.com/bigkaa/goartstore/file-host/internal/server"
	"github.com/bigkaa/goartstore/file-host/internal/service"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
	"github.com/bigkaa/goartstore/file-host/internal/storage/docstore"
	"github.com/bigkaa/goartstore/file-host/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("file-host запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend),
	)

	ctx := context.Background()

	// Контракт API встроен в бинарник и отдаётся клиентам как есть
	if _, specErr := openapi.Load(ctx); specErr != nil {
		logger.Warn("Встроенный OpenAPI-контракт некорректен", slog.String("error", specErr.Error()))
	}

	// 3. Хранилище
	var (
		backend    storage.Backend
		provider   *database.Provider
		deps       handlers.DependencyHealth
		monitoring *dependencyMonitoring
	)

	switch cfg.Backend {
	case config.BackendDocument:
		provider = database.NewProvider(cfg, logger)
		backend = docstore.New(provider)

		// 3.1 topologymetrics запускается после первого успешного
		// подключения: при прогреве или позже, на первом запросе
		monitoring = &dependencyMonitoring{
			cfg:     cfg,
			logger:  logger,
			monitor: &service.DependencyMonitor{},
		}
		deps = monitoring.monitor
		provider.OnConnect(monitoring.start)

		// 3.2 Прогрев: подключение и миграции. Недоступная база не мешает
		// старту, Acquire повторит попытку на первом запросе.
		if _, acqErr := provider.Acquire(ctx); acqErr != nil {
			logger.Warn("PostgreSQL недоступен при старте, подключение будет выполнено при первом запросе",
				slog.String("error", acqErr.Error()),
			)
		}

	default:
		fs, fsErr := filestore.New(cfg.DataDir)
		if fsErr != nil {
			logger.Error("Ошибка инициализации директории данных",
				slog.String("data_dir", cfg.DataDir),
				slog.String("error", fsErr.Error()),
			)
			os.Exit(1)
		}
		backend = fs
		logger.Info("Дисковое хранилище готово", slog.String("data_dir", cfg.DataDir))
	}

	// 4. Сервисный слой
	statsCache := service.NewStatsCache(cfg.StatsCacheSize, cfg.StatsCacheTTL)
	ingestSvc := service.NewIngestService(backend, statsCache, cfg.MaxFileSize, logger)
	retrievalSvc := service.NewRetrievalService(backend, statsCache, cfg.ListMaxLimit, logger)

	// 5. HTTP handlers
	filesHandler := handlers.NewFilesHandler(ingestSvc, retrievalSvc, logger)
	statusHandler := handlers.NewStatusHandler(retrievalSvc, deps, cfg.ServiceName, cfg.Region)
	healthHandler := handlers.NewHealthHandler(retrievalSvc, cfg.ServiceName)

	// 6. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, func(r chi.Router) {
		handlers.RegisterRoutes(r, filesHandler, statusHandler, healthHandler)
	})
	runErr := srv.Run()

	// 7. Освобождение ресурсов
	if monitoring != nil {
		monitoring.stop()
	}
	if provider != nil {
		provider.Close()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("file-host остановлен")
}

// dependencyMonitoring запускает topologymetrics поверх пула PostgreSQL
// (connection pool mode) один раз за время жизни процесса.
type dependencyMonitoring struct {
	cfg     *config.Config
	logger  *slog.Logger
	monitor *service.DependencyMonitor

	mu sync.Mutex
	db *sql.DB
}

// start вызывается провайдером после подключения к базе.
func (d *dependencyMonitoring) start(pool *pgxpool.Pool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.monitor.Service() != nil {
		return
	}

	db := stdlib.OpenDBFromPool(pool)
	dhSvc, err := service.NewDephealthService(
		d.cfg.ServiceName,
		d.cfg.DephealthGroup,
		db,
		d.cfg.DatabaseURL("postgres"),
		d.cfg.DephealthCheckInterval,
		d.logger,
	)
	if err != nil {
		d.logger.Warn("topologymetrics недоступен, работа без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		_ = db.Close()
		return
	}
	if err := dhSvc.Start(context.Background()); err != nil {
		d.logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		_ = db.Close()
		return
	}

	d.db = db
	d.monitor.Set(dhSvc)
}

// stop останавливает мониторинг и закрывает *sql.DB.
func (d *dependencyMonitoring) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dhSvc := d.monitor.Service(); dhSvc != nil {
		dhSvc.Stop()
	}
	if d.db != nil {
		_ = d.db.Close()
		d.db = nil
	}
}
