// Package cache обслуживает читающие запросы (дашборд, фильтрованные
// списки) с инвалидацией по тегам классов сущностей. Любая мутация Report
// или Alert инвалидирует затронутые теги до подтверждения мутации, поэтому
// чтение после подтвержденной записи никогда не видит устаревших данных.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCacheMiss сигнализирует, что ключ не найден в кэше
var ErrCacheMiss = errors.New("cache miss")

// Теги классов сущностей, от которых зависят закэшированные снимки
const (
	TagReport   = "report"
	TagIncident = "incident"
	TagAlert    = "alert"
)

// RegionTag возвращает тег региона для региональных срезов
func RegionTag(regionID string) string {
	return "region:" + regionID
}

// Cache - контракт кэша с инвалидацией по тегам
type Cache interface {
	Get(ctx context.Context, fingerprint string) ([]byte, error)
	Put(ctx context.Context, fingerprint string, value []byte, tags []string) error
	Invalidate(ctx context.Context, tags ...string) error
	Close() error
}

// Fingerprint строит канонический ключ запроса из имени операции и
// параметров фильтра: одинаковые фильтры дают одинаковый ключ независимо
// от порядка
func Fingerprint(op string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("q:")
	b.WriteString(op)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, params[k])
	}
	return b.String()
}
