// Package geoindex реализует гео-временной индекс сообщений: вставки
// append-only и запросы по радиусу и временному окну. Индекс - быстрый путь
// в памяти; долговременное хранилище остается за репозиторием.
package geoindex

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
)

const earthRadiusMeters = 6371000.0

// Distance возвращает расстояние по дуге большого круга в метрах
// (формула гаверсинусов, сферическая модель Земли)
func Distance(a, b models.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Index - потокобезопасный гео-временной индекс. Сообщения хранятся
// отсортированными по времени; читатели никогда не видят частичную вставку.
// Индекс владеет собственными копиями сообщений: все записи в них идут
// только под замком индекса.
type Index struct {
	mu      sync.RWMutex
	reports []*models.Report
	byID    map[uuid.UUID]*models.Report
	clock   clockwork.Clock
}

// New создает пустой индекс с переданным источником времени
func New(clock clockwork.Clock) *Index {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Index{
		byID:  make(map[uuid.UUID]*models.Report),
		clock: clock,
	}
}

// Insert добавляет копию сообщения в индекс, сохраняя порядок по времени.
// Сообщение без координат отклоняется; повторная вставка того же id -
// no-op, чтобы асинхронные повторы оставались идемпотентными.
func (idx *Index) Insert(report *models.Report) error {
	if report.Location == nil {
		return apperr.ErrMissingLocation
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.byID[report.ID]; ok {
		return nil
	}
	cp := *report
	idx.byID[cp.ID] = &cp

	// Бинарный поиск позиции вставки: новые сообщения почти всегда в хвосте
	pos := sort.Search(len(idx.reports), func(i int) bool {
		return idx.reports[i].Timestamp.After(cp.Timestamp)
	})
	idx.reports = append(idx.reports, nil)
	copy(idx.reports[pos+1:], idx.reports[pos:])
	idx.reports[pos] = &cp
	return nil
}

// SetIncident выставляет привязку проиндексированного сообщения к инциденту.
// Единственный писатель - кластеризатор: при назначении и при слияниях.
func (idx *Index) SetIncident(reportID, incidentID uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if r, ok := idx.byID[reportID]; ok {
		r.IncidentID = &incidentID
	}
}

// QueryRadius возвращает копии сообщений, чье расстояние до center не
// превышает radiusMeters, а время не раньше since, отсортированные по
// времени по возрастанию. Результат не разделяет память с индексом.
func (idx *Index) QueryRadius(center models.Location, radiusMeters float64, since time.Time) ([]*models.Report, error) {
	if radiusMeters <= 0 {
		return nil, apperr.ErrInvalidQuery
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Первый кандидат по времени, дальше все сообщения не раньше since
	start := sort.Search(len(idx.reports), func(i int) bool {
		return !idx.reports[i].Timestamp.Before(since)
	})

	result := make([]*models.Report, 0)
	for _, r := range idx.reports[start:] {
		if Distance(*r.Location, center) <= radiusMeters {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

// RemoveWindow удаляет из индекса сообщения старше olderThan и возвращает
// число удаленных. Долговременное хранилище не затрагивается.
func (idx *Index) RemoveWindow(olderThan time.Time) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cut := sort.Search(len(idx.reports), func(i int) bool {
		return !idx.reports[i].Timestamp.Before(olderThan)
	})
	if cut == 0 {
		return 0
	}
	for _, r := range idx.reports[:cut] {
		delete(idx.byID, r.ID)
	}
	idx.reports = append([]*models.Report(nil), idx.reports[cut:]...)
	return cut
}

// Len возвращает текущее число сообщений в индексе
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.reports)
}

// StartRetention запускает периодическую чистку сообщений старше retention
func (idx *Index) StartRetention(stop <-chan struct{}, retention, interval time.Duration) {
	go func() {
		ticker := idx.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				idx.RemoveWindow(idx.clock.Now().Add(-retention))
			}
		}
	}()
}
