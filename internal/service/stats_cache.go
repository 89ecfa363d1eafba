// stats_cache.go — LRU-кэш агрегированной статистики с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable. Ключ — строка поиска.
package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-host/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	statsCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fh_stats_cache_hits_total",
		Help: "Общее количество попаданий в кэш статистики.",
	})
	statsCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fh_stats_cache_misses_total",
		Help: "Общее количество промахов кэша статистики.",
	})
)

// StatsLoader вычисляет статистику по строке поиска (storage.Backend.Stats).
type StatsLoader func(ctx context.Context, search string) (model.Stats, error)

// StatsCache — кэш статистики по строке поиска. Сбрасывается целиком
// при любой загрузке или удалении, поэтому устаревание ограничено
// изменениями в обход сервиса и TTL.
type StatsCache struct {
	cache *expirable.LRU[string, model.Stats]
}

// NewStatsCache создаёт кэш с максимальным количеством ключей и TTL.
func NewStatsCache(maxSize int, ttl time.Duration) *StatsCache {
	return &StatsCache{cache: expirable.NewLRU[string, model.Stats](maxSize, nil, ttl)}
}

// Get возвращает статистику из кэша или вычисляет её через load.
// Ошибки load не кэшируются.
func (c *StatsCache) Get(ctx context.Context, search string, load StatsLoader) (model.Stats, error) {
	if stats, ok := c.cache.Get(search); ok {
		statsCacheHitsTotal.Inc()
		return stats, nil
	}
	statsCacheMissesTotal.Inc()

	stats, err := load(ctx, search)
	if err != nil {
		return model.Stats{}, err
	}
	c.cache.Add(search, stats)
	return stats, nil
}

// Invalidate сбрасывает все записи.
func (c *StatsCache) Invalidate() {
	c.cache.Purge()
}

// Len возвращает количество записей в кэше.
func (c *StatsCache) Len() int {
	return c.cache.Len()
}
