// Пакет database — подключение к PostgreSQL через pgxpool,
// применение миграций (golang-migrate) и ленивый провайдер
// единственного пула на процесс.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/bigkaa/goartstore/file-host/internal/config"
	"github.com/bigkaa/goartstore/file-host/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect создаёт пул подключений к PostgreSQL.
// Выполняет ping для проверки доступности.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	// Проверяем подключение
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)

	return pool, nil
}

// Migrate применяет SQL-миграции из embedded FS к базе данных.
// Использует golang-migrate с драйвером pgx5.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL("pgx5"))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// Provider — ленивый владелец единственного пула подключений процесса.
//
// Пул создаётся при первом Acquire (вместе с применением миграций)
// и переиспользуется до Reset/Close. Неудачная попытка не
// запоминается: следующий Acquire пробует подключиться снова.
// Одновременные Acquire ждут одну общую попытку подключения, каждый
// не дольше своего контекста; мьютекс на время подключения не держится.
type Provider struct {
	cfg    *config.Config
	logger *slog.Logger

	// open — фабрика пула, подменяется в тестах
	open func(ctx context.Context) (*pgxpool.Pool, error)

	connect singleflight.Group

	mu        sync.Mutex
	pool      *pgxpool.Pool
	onConnect []func(*pgxpool.Pool)
}

// connectKey — ключ общей попытки подключения.
const connectKey = "connect"

// NewProvider создаёт провайдер без подключения к базе.
func NewProvider(cfg *config.Config, logger *slog.Logger) *Provider {
	p := &Provider{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "database")),
	}
	p.open = p.connectAndMigrate
	return p
}

// OnConnect регистрирует функцию, вызываемую после каждого нового
// подключения. Если пул уже создан, fn вызывается сразу.
func (p *Provider) OnConnect(fn func(*pgxpool.Pool)) {
	p.mu.Lock()
	p.onConnect = append(p.onConnect, fn)
	pool := p.pool
	p.mu.Unlock()

	if pool != nil {
		fn(pool)
	}
}

// Acquire возвращает пул, при необходимости подключаясь к базе.
// Ошибка подключения оборачивается в storage.ErrUnavailable.
func (p *Provider) Acquire(ctx context.Context) (*pgxpool.Pool, error) {
	if pool := p.current(); pool != nil {
		return pool, nil
	}

	// Отмена контекста одного вызывающего не прерывает общую попытку:
	// её ограничивает FH_DB_CONNECT_TIMEOUT.
	dialCtx := context.WithoutCancel(ctx)
	ch := p.connect.DoChan(connectKey, func() (any, error) {
		return p.dial(dialCtx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, res.Err)
		}
		return res.Val.(*pgxpool.Pool), nil
	}
}

// dial выполняет одну попытку подключения и вызывает OnConnect.
func (p *Provider) dial(ctx context.Context) (*pgxpool.Pool, error) {
	if pool := p.current(); pool != nil {
		return pool, nil
	}

	pool, err := p.open(ctx)
	if err != nil {
		p.logger.Warn("PostgreSQL недоступен", slog.String("error", err.Error()))
		return nil, err
	}

	p.mu.Lock()
	p.pool = pool
	hooks := append(([]func(*pgxpool.Pool))(nil), p.onConnect...)
	p.mu.Unlock()

	for _, fn := range hooks {
		fn(pool)
	}
	return pool, nil
}

// current возвращает созданный пул или nil.
func (p *Provider) current() *pgxpool.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool
}

// Reset закрывает пул; следующий Acquire подключится заново.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

// Close освобождает пул при завершении процесса.
func (p *Provider) Close() {
	p.Reset()
}

// connectAndMigrate подключается к базе и применяет миграции.
func (p *Provider) connectAndMigrate(ctx context.Context) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DBConnectTimeout)
	defer cancel()

	pool, err := Connect(ctx, p.cfg, p.logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(p.cfg, p.logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
