// Package cluster группирует входящие сообщения в инциденты: тот же тип
// опасности, настраиваемый пространственный радиус и временное окно.
// Инциденты живут в памяти кластеризатора; долговременность обеспечивает
// репозиторий через сервисный слой.
package cluster

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/geoindex"
	"github.com/shenikar/hazard_fusion_engine/internal/metrics"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/sirupsen/logrus"
)

// Clusterer назначает сообщения инцидентам. Единственный владелец поля
// Report.IncidentID.
type Clusterer struct {
	index  *geoindex.Index
	clock  clockwork.Clock
	logger *logrus.Logger

	radiusMeters float64
	window       time.Duration

	mu         sync.RWMutex
	incidents  map[uuid.UUID]*models.Incident
	members    map[uuid.UUID][]*models.Report
	mergedInto map[uuid.UUID]uuid.UUID
	locks      *lockArena

	// MergesResolved считает разрешенные гонки создания инцидентов
	mergesResolved int
}

// New создает кластеризатор поверх гео-временного индекса
func New(index *geoindex.Index, clock clockwork.Clock, radiusMeters float64, window time.Duration, logger *logrus.Logger) *Clusterer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Clusterer{
		index:        index,
		clock:        clock,
		logger:       logger,
		radiusMeters: radiusMeters,
		window:       window,
		incidents:    make(map[uuid.UUID]*models.Incident),
		members:      make(map[uuid.UUID][]*models.Report),
		mergedInto:   make(map[uuid.UUID]uuid.UUID),
		locks:        newLockArena(),
	}
}

// Restore восстанавливает инцидент и его сообщения после рестарта процесса
func (c *Clusterer) Restore(incident *models.Incident, members []*models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incidents[incident.ID] = incident
	c.members[incident.ID] = snapshotReports(members)
}

// Assign привязывает сообщение к существующему инциденту или создает новый.
// Возвращает инцидент после присоединения. Гонка "инцидент уже существует
// поблизости" разрешается детерминированным слиянием в resolveRaces.
func (c *Clusterer) Assign(report *models.Report) (*models.Incident, error) {
	if report.Location == nil {
		return nil, apperr.ErrMissingLocation
	}

	// Идемпотентность асинхронных повторов: уже назначенное сообщение
	// не кластеризуется повторно
	if report.IncidentID != nil {
		if snap := c.snapshotOf(*report.IncidentID); snap != nil {
			return snap, nil
		}
	}

	target := c.pickIncident(report)
	if target == uuid.Nil {
		inc := c.createIncident(report)
		c.resolveRaces(inc.ID)
		return c.snapshotOf(inc.ID), nil
	}

	joined := c.join(target, report)
	if joined == nil {
		// Кандидат закрылся или слился между выбором и захватом его
		// блокировки: создаем новый инцидент
		inc := c.createIncident(report)
		c.resolveRaces(inc.ID)
		return c.snapshotOf(inc.ID), nil
	}
	c.resolveRaces(joined.ID)
	return c.snapshotOf(joined.ID), nil
}

// pickIncident ищет открытый инцидент того же типа опасности в радиусе и
// окне сообщения. При нескольких кандидатах побеждает ближайший центроид,
// при равенстве - созданный раньше.
func (c *Clusterer) pickIncident(report *models.Report) uuid.UUID {
	since := report.Timestamp.Add(-c.window)
	nearby, err := c.index.QueryRadius(*report.Location, c.radiusMeters, since)
	if err != nil {
		return uuid.Nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var best *models.Incident
	var bestDist float64
	for _, r := range nearby {
		if r.IncidentID == nil || r.HazardType != report.HazardType {
			continue
		}
		id := c.resolveIDLocked(*r.IncidentID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		inc, ok := c.incidents[id]
		if !ok || inc.Status != models.IncidentOpen {
			continue
		}
		dist := geoindex.Distance(*report.Location, inc.Centroid())
		if dist > c.radiusMeters {
			continue
		}
		if best == nil || dist < bestDist ||
			(dist == bestDist && inc.CreatedAt.Before(best.CreatedAt)) {
			best = inc
			bestDist = dist
		}
	}
	if best == nil {
		return uuid.Nil
	}
	return best.ID
}

// join присоединяет сообщение к инциденту под его блокировкой.
// Возвращает nil, если инцидент больше не принимает сообщения.
func (c *Clusterer) join(id uuid.UUID, report *models.Report) *models.Incident {
	lock := c.locks.For(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	id = c.resolveIDLocked(id)
	inc, ok := c.incidents[id]
	if !ok || inc.Status != models.IncidentOpen {
		return nil
	}
	// Инцидент без новых сообщений дольше окна считается закрытым,
	// даже если сметающий проход еще не прошел
	if report.Timestamp.Sub(inc.WindowEnd) > c.window {
		return nil
	}

	incID := inc.ID
	report.IncidentID = &incID
	cp := *report
	c.members[id] = append(c.members[id], &cp)
	c.index.SetIncident(report.ID, incID)
	c.recomputeGeometryLocked(inc)
	inc.UpdatedAt = c.clock.Now().UTC()
	return inc
}

// createIncident создает новый инцидент с центроидом в точке сообщения
func (c *Clusterer) createIncident(report *models.Report) *models.Incident {
	now := c.clock.Now().UTC()
	inc := &models.Incident{
		ID:              uuid.New(),
		HazardType:      report.HazardType,
		CentroidLat:     report.Location.Latitude,
		CentroidLon:     report.Location.Longitude,
		WindowStart:     report.Timestamp,
		WindowEnd:       report.Timestamp,
		MemberReportIDs: []uuid.UUID{report.ID},
		SourceTypesSeen: []models.SourceType{report.SourceType},
		Status:          models.IncidentOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	incID := inc.ID
	report.IncidentID = &incID
	cp := *report
	c.incidents[inc.ID] = inc
	c.members[inc.ID] = []*models.Report{&cp}
	c.index.SetIncident(report.ID, incID)
	return inc
}

// resolveRaces находит открытые инциденты того же типа, чьи центроиды
// оказались в пределах радиуса кластеризации от данного, и сливает их в
// старейший (по CreatedAt, при равенстве - по меньшему id)
func (c *Clusterer) resolveRaces(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id = c.resolveIDLocked(id)
	inc, ok := c.incidents[id]
	if !ok || inc.Status != models.IncidentOpen {
		return
	}

	group := []*models.Incident{inc}
	for _, other := range c.incidents {
		if other.ID == inc.ID || other.Status != models.IncidentOpen || other.HazardType != inc.HazardType {
			continue
		}
		if geoindex.Distance(inc.Centroid(), other.Centroid()) > c.radiusMeters {
			continue
		}
		if !windowsOverlap(inc, other, c.window) {
			continue
		}
		group = append(group, other)
	}
	if len(group) == 1 {
		return
	}

	winner := group[0]
	for _, cand := range group[1:] {
		if cand.CreatedAt.Before(winner.CreatedAt) ||
			(cand.CreatedAt.Equal(winner.CreatedAt) && cand.ID.String() < winner.ID.String()) {
			winner = cand
		}
	}

	for _, loser := range group {
		if loser.ID == winner.ID {
			continue
		}
		c.mergeLocked(winner, loser)
		c.mergesResolved++
		metrics.IncIncidentMerge()
		c.logger.WithFields(logrus.Fields{
			"component": "cluster",
			"winner_id": winner.ID,
			"loser_id":  loser.ID,
		}).Info("Resolved incident race by merge")
	}
	c.recomputeGeometryLocked(winner)
	winner.UpdatedAt = c.clock.Now().UTC()
}

// mergeLocked переносит сообщения проигравшего инцидента в победителя.
// Уверенность победителя не опускается ниже уверенности проигравшего:
// слияние - это добавление свидетельств.
func (c *Clusterer) mergeLocked(winner, loser *models.Incident) {
	winID := winner.ID
	for _, r := range c.members[loser.ID] {
		r.IncidentID = &winID
		c.members[winner.ID] = append(c.members[winner.ID], r)
		c.index.SetIncident(r.ID, winID)
	}
	if loser.ConfidenceScore > winner.ConfidenceScore {
		winner.ConfidenceScore = loser.ConfidenceScore
	}
	loser.Status = models.IncidentClosed
	loser.UpdatedAt = c.clock.Now().UTC()
	delete(c.members, loser.ID)
	c.mergedInto[loser.ID] = winner.ID
}

// recomputeGeometryLocked пересчитывает центроид (среднее арифметическое
// координат), географический разброс (максимум попарных расстояний), окно и
// набор источников по текущему составу
func (c *Clusterer) recomputeGeometryLocked(inc *models.Incident) {
	members := c.members[inc.ID]
	if len(members) == 0 {
		return
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Timestamp.Before(members[j].Timestamp)
	})

	var sumLat, sumLon float64
	ids := make([]uuid.UUID, 0, len(members))
	sources := make([]models.SourceType, 0, 4)
	seenSources := make(map[models.SourceType]struct{}, 4)
	inc.WindowStart = members[0].Timestamp
	inc.WindowEnd = members[0].Timestamp
	for _, r := range members {
		sumLat += r.Location.Latitude
		sumLon += r.Location.Longitude
		ids = append(ids, r.ID)
		if _, ok := seenSources[r.SourceType]; !ok {
			seenSources[r.SourceType] = struct{}{}
			sources = append(sources, r.SourceType)
		}
		if r.Timestamp.Before(inc.WindowStart) {
			inc.WindowStart = r.Timestamp
		}
		if r.Timestamp.After(inc.WindowEnd) {
			inc.WindowEnd = r.Timestamp
		}
	}
	inc.CentroidLat = sumLat / float64(len(members))
	inc.CentroidLon = sumLon / float64(len(members))
	inc.MemberReportIDs = ids
	inc.SourceTypesSeen = sources

	var spread float64
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			d := geoindex.Distance(*members[i].Location, *members[j].Location)
			if d > spread {
				spread = d
			}
		}
	}
	inc.GeographicSpreadMeters = spread
}

// WithIncident выполняет fn под блокировкой инцидента, передавая снимок
// инцидента и копии его сообщений в порядке поступления. Цепочка слияний
// разрешается до актуального инцидента. Глобальный замок на время fn не
// удерживается: несвязанные инциденты обрабатываются параллельно. Рост
// уверенности из снимка записывается обратно после успеха fn.
func (c *Clusterer) WithIncident(id uuid.UUID, fn func(inc *models.Incident, members []*models.Report) error) error {
	id = c.resolveID(id)
	lock := c.locks.For(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	cur := c.resolveIDLocked(id)
	inc, ok := c.incidents[cur]
	if !ok {
		c.mu.RUnlock()
		return apperr.ErrIncidentRaceConflict
	}
	snap := snapshotIncident(inc)
	members := snapshotReports(c.members[cur])
	c.mu.RUnlock()

	if err := fn(snap, members); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cur = c.resolveIDLocked(cur)
	if live, ok := c.incidents[cur]; ok && snap.ConfidenceScore > live.ConfidenceScore {
		live.ConfidenceScore = snap.ConfidenceScore
		live.UpdatedAt = c.clock.Now().UTC()
	}
	return nil
}

// CloseExpired закрывает инциденты без новых сообщений дольше окна и
// возвращает их снимки
func (c *Clusterer) CloseExpired(now time.Time) []*models.Incident {
	c.mu.Lock()
	defer c.mu.Unlock()

	var closed []*models.Incident
	for _, inc := range c.incidents {
		if inc.Status != models.IncidentOpen {
			continue
		}
		if now.Sub(inc.WindowEnd) > c.window {
			inc.Status = models.IncidentClosed
			inc.UpdatedAt = now.UTC()
			closed = append(closed, snapshotIncident(inc))
		}
	}
	return closed
}

// Incident возвращает снимок инцидента по id (с учетом слияний)
func (c *Clusterer) Incident(id uuid.UUID) (*models.Incident, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inc, ok := c.incidents[c.resolveIDLocked(id)]
	if !ok {
		return nil, false
	}
	return snapshotIncident(inc), true
}

// MergesResolved возвращает число разрешенных гонок создания инцидентов
func (c *Clusterer) MergesResolved() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mergesResolved
}

// resolveID следует по цепочке слияний к актуальному id инцидента
func (c *Clusterer) resolveID(id uuid.UUID) uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveIDLocked(id)
}

func (c *Clusterer) resolveIDLocked(id uuid.UUID) uuid.UUID {
	for {
		next, ok := c.mergedInto[id]
		if !ok {
			return id
		}
		id = next
	}
}

func (c *Clusterer) snapshotOf(id uuid.UUID) *models.Incident {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inc, ok := c.incidents[c.resolveIDLocked(id)]
	if !ok {
		return nil
	}
	return snapshotIncident(inc)
}

// snapshotIncident копирует инцидент, чтобы вызывающий код не разделял
// срезы с внутренним состоянием
func snapshotIncident(inc *models.Incident) *models.Incident {
	cp := *inc
	cp.MemberReportIDs = append([]uuid.UUID(nil), inc.MemberReportIDs...)
	cp.SourceTypesSeen = append([]models.SourceType(nil), inc.SourceTypesSeen...)
	return &cp
}

// snapshotReports копирует сообщения, чтобы слияния не писали в структуры,
// которые читает вызывающий код
func snapshotReports(members []*models.Report) []*models.Report {
	out := make([]*models.Report, len(members))
	for i, r := range members {
		cp := *r
		out[i] = &cp
	}
	return out
}

func windowsOverlap(a, b *models.Incident, window time.Duration) bool {
	return a.WindowStart.Before(b.WindowEnd.Add(window)) &&
		b.WindowStart.Before(a.WindowEnd.Add(window))
}
