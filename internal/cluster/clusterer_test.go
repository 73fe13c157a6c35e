package cluster

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/geoindex"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRadius = 2000.0
	testWindow = 6 * time.Hour
)

func newTestClusterer(t *testing.T) (*Clusterer, *geoindex.Index, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	index := geoindex.New(clock)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	return New(index, clock, testRadius, testWindow, logger), index, clock
}

func floodReport(lat, lon float64, ts time.Time, source models.SourceType) *models.Report {
	return &models.Report{
		ID:         uuid.New(),
		Location:   &models.Location{Latitude: lat, Longitude: lon},
		Timestamp:  ts,
		HazardType: models.HazardFlood,
		SourceType: source,
		Severity:   models.SeverityMedium,
	}
}

func insertAndAssign(t *testing.T, c *Clusterer, index *geoindex.Index, r *models.Report) *models.Incident {
	t.Helper()
	require.NoError(t, index.Insert(r))
	inc, err := c.Assign(r)
	require.NoError(t, err)
	return inc
}

func TestAssign_MissingLocation(t *testing.T) {
	c, _, clock := newTestClusterer(t)

	_, err := c.Assign(&models.Report{ID: uuid.New(), Timestamp: clock.Now()})

	require.ErrorIs(t, err, apperr.ErrMissingLocation)
}

func TestAssign_ThreeNearbyReportsShareIncident(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	r1 := floodReport(43.1000, 131.9000, base, models.SourceCitizen)
	r2 := floodReport(43.1010, 131.9010, base.Add(5*time.Minute), models.SourceCitizen)
	r3 := floodReport(43.0990, 131.8995, base.Add(10*time.Minute), models.SourceSensor)

	inc1 := insertAndAssign(t, c, index, r1)
	inc2 := insertAndAssign(t, c, index, r2)
	inc3 := insertAndAssign(t, c, index, r3)

	assert.Equal(t, inc1.ID, inc2.ID)
	assert.Equal(t, inc1.ID, inc3.ID)
	assert.Equal(t, 3, inc3.MemberCount())
	assert.Equal(t, []models.SourceType{models.SourceCitizen, models.SourceSensor}, inc3.SourceTypesSeen)
	assert.Equal(t, base, inc3.WindowStart)
	assert.Equal(t, base.Add(10*time.Minute), inc3.WindowEnd)
	assert.Greater(t, inc3.GeographicSpreadMeters, 0.0)
}

func TestAssign_DifferentHazardTypesSplit(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	flood := floodReport(43.1, 131.9, base, models.SourceCitizen)
	erosion := floodReport(43.1, 131.9, base.Add(time.Minute), models.SourceCitizen)
	erosion.HazardType = models.HazardErosion

	incFlood := insertAndAssign(t, c, index, flood)
	incErosion := insertAndAssign(t, c, index, erosion)

	assert.NotEqual(t, incFlood.ID, incErosion.ID)
}

func TestAssign_FarApartReportsSplit(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	// Около 55 км между точками
	r1 := floodReport(43.1, 131.9, base, models.SourceCitizen)
	r2 := floodReport(43.6, 131.9, base.Add(time.Minute), models.SourceCitizen)

	inc1 := insertAndAssign(t, c, index, r1)
	inc2 := insertAndAssign(t, c, index, r2)

	assert.NotEqual(t, inc1.ID, inc2.ID)
	assert.Equal(t, 1, inc1.MemberCount())
	assert.Equal(t, 1, inc2.MemberCount())
}

func TestAssign_OutsideWindowCreatesNewIncident(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	r1 := floodReport(43.1, 131.9, base, models.SourceCitizen)
	r2 := floodReport(43.1, 131.9, base.Add(testWindow+time.Hour), models.SourceCitizen)

	inc1 := insertAndAssign(t, c, index, r1)
	inc2 := insertAndAssign(t, c, index, r2)

	assert.NotEqual(t, inc1.ID, inc2.ID)
}

func TestAssign_IdempotentForAssignedReport(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	r := floodReport(43.1, 131.9, clock.Now(), models.SourceCitizen)

	inc1 := insertAndAssign(t, c, index, r)
	// Повтор того же сообщения (например, из пула асинхронных повторов)
	inc2, err := c.Assign(r)
	require.NoError(t, err)

	assert.Equal(t, inc1.ID, inc2.ID)
	assert.Equal(t, 1, inc2.MemberCount())
}

func TestResolveRaces_MergesIntoOldestIncident(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	ra := floodReport(43.1000, 131.9000, base, models.SourceCitizen)
	older := insertAndAssign(t, c, index, ra)

	// Второй инцидент возникает рядом, как при гонке создания
	rb := floodReport(43.1300, 131.9000, base.Add(time.Minute), models.SourceSensor)
	require.NoError(t, index.Insert(rb))
	clock.Advance(time.Second)
	newer := c.createIncident(rb)
	require.NotEqual(t, older.ID, newer.ID)

	// Сообщение между центроидами стягивает оба инцидента в радиус слияния
	rc := floodReport(43.1150, 131.9000, base.Add(2*time.Minute), models.SourceCitizen)
	got := insertAndAssign(t, c, index, rc)

	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, 3, got.MemberCount())
	assert.Equal(t, 1, c.MergesResolved())

	// Проигравший закрыт, обращение по его id ведет к победителю
	merged, ok := c.Incident(newer.ID)
	require.True(t, ok)
	assert.Equal(t, older.ID, merged.ID)
}

func TestResolveRaces_TieBreaksBySmallerID(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	ra := floodReport(43.1000, 131.9000, base, models.SourceCitizen)
	rb := floodReport(43.1005, 131.9000, base, models.SourceSensor)
	require.NoError(t, index.Insert(ra))
	require.NoError(t, index.Insert(rb))

	// Одинаковый CreatedAt у обоих инцидентов
	incA := c.createIncident(ra)
	incB := c.createIncident(rb)

	wantID := incA.ID
	if incB.ID.String() < incA.ID.String() {
		wantID = incB.ID
	}

	rc := floodReport(43.1002, 131.9000, base.Add(time.Minute), models.SourceCitizen)
	got := insertAndAssign(t, c, index, rc)

	assert.Equal(t, wantID, got.ID)
	assert.Equal(t, 1, c.MergesResolved())
}

func TestMerge_KeepsMaxConfidence(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	ra := floodReport(43.1000, 131.9000, base, models.SourceCitizen)
	older := insertAndAssign(t, c, index, ra)

	rb := floodReport(43.1005, 131.9000, base.Add(time.Minute), models.SourceSensor)
	require.NoError(t, index.Insert(rb))
	clock.Advance(time.Second)
	newer := c.createIncident(rb)

	// Проигравший накопил более высокую уверенность
	require.NoError(t, c.WithIncident(newer.ID, func(inc *models.Incident, _ []*models.Report) error {
		inc.ConfidenceScore = 88
		return nil
	}))

	rc := floodReport(43.1002, 131.9000, base.Add(2*time.Minute), models.SourceCitizen)
	got := insertAndAssign(t, c, index, rc)

	assert.Equal(t, older.ID, got.ID)
	assert.GreaterOrEqual(t, got.ConfidenceScore, 88.0)
}

func TestWithIncident_FollowsMergeChain(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	ra := floodReport(43.1000, 131.9000, base, models.SourceCitizen)
	older := insertAndAssign(t, c, index, ra)

	rb := floodReport(43.1005, 131.9000, base.Add(time.Minute), models.SourceSensor)
	require.NoError(t, index.Insert(rb))
	clock.Advance(time.Second)
	newer := c.createIncident(rb)
	c.resolveRaces(newer.ID)

	var gotID uuid.UUID
	err := c.WithIncident(newer.ID, func(inc *models.Incident, members []*models.Report) error {
		gotID = inc.ID
		assert.Len(t, members, 2)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, older.ID, gotID)
}

func TestWithIncident_UnknownIncident(t *testing.T) {
	c, _, _ := newTestClusterer(t)

	err := c.WithIncident(uuid.New(), func(*models.Incident, []*models.Report) error {
		t.Fatal("callback must not run for unknown incident")
		return nil
	})

	require.ErrorIs(t, err, apperr.ErrIncidentRaceConflict)
}

func TestAssign_ConcurrentWithRadiusQueries(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()
	center := models.Location{Latitude: 43.1, Longitude: 131.9}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := index.QueryRadius(center, testRadius, base.Add(-time.Hour))
			if err != nil {
				return
			}
			for _, r := range got {
				if r.IncidentID != nil {
					_ = *r.IncidentID
				}
			}
		}
	}()

	for i := 0; i < 50; i++ {
		r := floodReport(43.1, 131.9, base.Add(time.Duration(i)*time.Second), models.SourceCitizen)
		insertAndAssign(t, c, index, r)
	}

	close(stop)
	wg.Wait()
}

func TestWithIncident_UnrelatedIncidentsRunInParallel(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	ra := floodReport(43.1, 131.9, base, models.SourceCitizen)
	incA := insertAndAssign(t, c, index, ra)
	// Около 55 км от первого инцидента
	rb := floodReport(43.6, 131.9, base.Add(time.Minute), models.SourceSensor)
	incB := insertAndAssign(t, c, index, rb)
	require.NotEqual(t, incA.ID, incB.ID)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.WithIncident(incA.ID, func(*models.Incident, []*models.Report) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan error, 1)
	go func() {
		done <- c.WithIncident(incB.ID, func(*models.Incident, []*models.Report) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("unrelated incident blocked behind another incident's critical section")
	}

	close(release)
	wg.Wait()
}

func TestWithIncident_WritesBackConfidence(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	r := floodReport(43.1, 131.9, clock.Now(), models.SourceCitizen)
	inc := insertAndAssign(t, c, index, r)

	require.NoError(t, c.WithIncident(inc.ID, func(snap *models.Incident, _ []*models.Report) error {
		snap.ConfidenceScore = 64
		return nil
	}))

	got, ok := c.Incident(inc.ID)
	require.True(t, ok)
	assert.Equal(t, 64.0, got.ConfidenceScore)

	// Снижение из снимка не записывается: уверенность монотонна
	require.NoError(t, c.WithIncident(inc.ID, func(snap *models.Incident, _ []*models.Report) error {
		snap.ConfidenceScore = 10
		return nil
	}))

	got, ok = c.Incident(inc.ID)
	require.True(t, ok)
	assert.Equal(t, 64.0, got.ConfidenceScore)
}

func TestCloseExpired(t *testing.T) {
	c, index, clock := newTestClusterer(t)
	base := clock.Now()

	r := floodReport(43.1, 131.9, base, models.SourceCitizen)
	inc := insertAndAssign(t, c, index, r)

	// Окно еще не истекло
	assert.Empty(t, c.CloseExpired(base.Add(testWindow)))

	closed := c.CloseExpired(base.Add(testWindow + time.Minute))
	require.Len(t, closed, 1)
	assert.Equal(t, inc.ID, closed[0].ID)
	assert.Equal(t, models.IncidentClosed, closed[0].Status)

	// Повторный проход ничего не закрывает
	assert.Empty(t, c.CloseExpired(base.Add(testWindow+2*time.Minute)))
}

func TestRestore_RebuildsIncident(t *testing.T) {
	c, _, clock := newTestClusterer(t)
	base := clock.Now()

	incID := uuid.New()
	r := floodReport(43.1, 131.9, base, models.SourceCitizen)
	r.IncidentID = &incID
	inc := &models.Incident{
		ID:              incID,
		HazardType:      models.HazardFlood,
		CentroidLat:     43.1,
		CentroidLon:     131.9,
		WindowStart:     base,
		WindowEnd:       base,
		MemberReportIDs: []uuid.UUID{r.ID},
		SourceTypesSeen: []models.SourceType{models.SourceCitizen},
		Status:          models.IncidentOpen,
		CreatedAt:       base,
		UpdatedAt:       base,
	}

	c.Restore(inc, []*models.Report{r})

	got, ok := c.Incident(incID)
	require.True(t, ok)
	assert.Equal(t, 1, got.MemberCount())

	err := c.WithIncident(incID, func(inc *models.Incident, members []*models.Report) error {
		assert.Len(t, members, 1)
		return nil
	})
	require.NoError(t, err)
}
