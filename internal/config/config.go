// Пакет config — загрузка и валидация конфигурации file-host
// из переменных окружения (префикс FH_).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Типы хранилища (FH_BACKEND).
const (
	// BackendDisk — эфемерное хранение файлов на локальном диске
	BackendDisk = "disk"
	// BackendDocument — хранение файлов в PostgreSQL (payload в base64)
	BackendDocument = "document"
)

// Config содержит все параметры конфигурации file-host.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Имя сервиса в status и метриках зависимостей
	ServiceName string
	// Регион развёртывания (отдаётся в /api/status)
	Region string
	// Тип хранилища: disk или document
	Backend string
	// Директория эфемерного хранилища (только для disk)
	DataDir string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64
	// Максимальное значение limit для списка файлов
	ListMaxLimit int

	// Параметры PostgreSQL (только для document)
	DBHost           string
	DBPort           int
	DBName           string
	DBUser           string
	DBPassword       string
	DBSSLMode        string
	DBConnectTimeout time.Duration

	// Размер кэша агрегированной статистики (количество ключей поиска)
	StatsCacheSize int
	// Время жизни записи кэша статистики
	StatsCacheTTL time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string

	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("service_name", "file-host")
	v.SetDefault("region", "unknown")
	v.SetDefault("backend", BackendDisk)
	v.SetDefault("data_dir", filepath.Join(os.TempDir(), "file-host"))
	v.SetDefault("max_file_size", 10*1024*1024)
	v.SetDefault("list_max_limit", 100)
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_connect_timeout", "5s")
	v.SetDefault("stats_cache_size", 128)
	v.SetDefault("stats_cache_ttl", "10s")
	v.SetDefault("dephealth_check_interval", "15s")
	v.SetDefault("dephealth_group", "file-host")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "5s")

	cfg := &Config{}
	var err error

	// FH_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getInt(v, "port")
	if err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FH_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.ServiceName = v.GetString("service_name")
	cfg.Region = v.GetString("region")

	// FH_BACKEND — тип хранилища (по умолчанию disk)
	cfg.Backend = strings.ToLower(v.GetString("backend"))
	if cfg.Backend != BackendDisk && cfg.Backend != BackendDocument {
		return nil, fmt.Errorf("FH_BACKEND: недопустимое значение %q, допустимые: disk, document", cfg.Backend)
	}

	cfg.DataDir = v.GetString("data_dir")

	// FH_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 10 MB)
	cfg.MaxFileSize, err = getInt64(v, "max_file_size")
	if err != nil {
		return nil, err
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("FH_MAX_FILE_SIZE: значение должно быть положительным")
	}

	cfg.ListMaxLimit, err = getInt(v, "list_max_limit")
	if err != nil {
		return nil, err
	}
	if cfg.ListMaxLimit <= 0 {
		return nil, fmt.Errorf("FH_LIST_MAX_LIMIT: значение должно быть положительным")
	}

	// Параметры PostgreSQL
	cfg.DBHost = v.GetString("db_host")
	cfg.DBName = v.GetString("db_name")
	cfg.DBUser = v.GetString("db_user")
	cfg.DBPassword = v.GetString("db_password")
	cfg.DBSSLMode = v.GetString("db_ssl_mode")
	cfg.DBPort, err = getInt(v, "db_port")
	if err != nil {
		return nil, err
	}
	cfg.DBConnectTimeout, err = getDuration(v, "db_connect_timeout")
	if err != nil {
		return nil, err
	}
	if cfg.Backend == BackendDocument {
		if err := cfg.validateDatabase(); err != nil {
			return nil, err
		}
	}

	cfg.StatsCacheSize, err = getInt(v, "stats_cache_size")
	if err != nil {
		return nil, err
	}
	if cfg.StatsCacheSize <= 0 {
		return nil, fmt.Errorf("FH_STATS_CACHE_SIZE: значение должно быть положительным")
	}
	cfg.StatsCacheTTL, err = getDuration(v, "stats_cache_ttl")
	if err != nil {
		return nil, err
	}

	cfg.DephealthCheckInterval, err = getDuration(v, "dephealth_check_interval")
	if err != nil {
		return nil, err
	}
	cfg.DephealthGroup = v.GetString("dephealth_group")

	// FH_TLS_CERT / FH_TLS_KEY — задаются парой
	cfg.TLSCert = v.GetString("tls_cert")
	cfg.TLSKey = v.GetString("tls_key")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("FH_TLS_CERT и FH_TLS_KEY должны задаваться вместе")
	}

	// FH_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(v.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("FH_LOG_LEVEL: %w", err)
	}

	// FH_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = v.GetString("log_format")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FH_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.ShutdownTimeout, err = getDuration(v, "shutdown_timeout")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateDatabase проверяет обязательные параметры PostgreSQL.
func (c *Config) validateDatabase() error {
	required := []struct {
		key string
		val string
	}{
		{"FH_DB_HOST", c.DBHost},
		{"FH_DB_NAME", c.DBName},
		{"FH_DB_USER", c.DBUser},
		{"FH_DB_PASSWORD", c.DBPassword},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s: обязательная переменная окружения не задана (FH_BACKEND=document)", r.key)
		}
	}
	if c.DBPort < 1 || c.DBPort > 65535 {
		return fmt.Errorf("FH_DB_PORT: значение %d вне допустимого диапазона 1-65535", c.DBPort)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL с заданной схемой
// ("postgres" для метрик зависимостей, "pgx5" для golang-migrate).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// envName возвращает имя переменной окружения для ключа viper.
func envName(key string) string {
	return "FH_" + strings.ToUpper(key)
}

// getInt возвращает целочисленное значение ключа.
func getInt(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s: некорректное целое число: %q", envName(key), v.GetString(key))
	}
	return n, nil
}

// getInt64 возвращает int64 значение ключа.
func getInt64(v *viper.Viper, key string) (int64, error) {
	n, err := cast.ToInt64E(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s: некорректное целое число: %q", envName(key), v.GetString(key))
	}
	return n, nil
}

// getDuration возвращает time.Duration значение ключа.
func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)",
			envName(key), v.GetString(key))
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
