package alerting

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	thresholds := Thresholds{
		Activation:            75,
		MinReports:            2,
		MinSourceDiversity:    1,
		HighSeverityDiversity: 2,
	}
	return NewManager(thresholds, clock, logger), clock
}

func testIncident(confidence float64, memberCount int, sources []models.SourceType) *models.Incident {
	ids := make([]uuid.UUID, memberCount)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return &models.Incident{
		ID:              uuid.New(),
		HazardType:      models.HazardFlood,
		MemberReportIDs: ids,
		SourceTypesSeen: sources,
		ConfidenceScore: confidence,
		Status:          models.IncidentOpen,
	}
}

func membersWithSeverity(severities ...models.Severity) []*models.Report {
	out := make([]*models.Report, len(severities))
	for i, s := range severities {
		out[i] = &models.Report{ID: uuid.New(), Severity: s, SourceType: models.SourceCitizen}
	}
	return out
}

func TestEvaluate_BelowThresholdsNoAlert(t *testing.T) {
	m, _ := newTestManager(t)

	// Уверенность ниже порога активации
	inc := testIncident(60, 3, []models.SourceType{models.SourceCitizen})
	alert, changed := m.Evaluate(inc, membersWithSeverity(models.SeverityMedium, models.SeverityMedium, models.SeverityMedium))
	assert.Nil(t, alert)
	assert.False(t, changed)

	// Недостаточно сообщений
	inc = testIncident(90, 1, []models.SourceType{models.SourceCitizen})
	alert, changed = m.Evaluate(inc, membersWithSeverity(models.SeverityMedium))
	assert.Nil(t, alert)
	assert.False(t, changed)

	assert.Zero(t, m.ActiveCount())
}

func TestEvaluate_CreatesActiveAlert(t *testing.T) {
	m, _ := newTestManager(t)
	inc := testIncident(80, 3, []models.SourceType{models.SourceCitizen, models.SourceSensor})

	alert, changed := m.Evaluate(inc, membersWithSeverity(models.SeverityLow, models.SeverityMedium, models.SeverityLow))

	require.True(t, changed)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertActive, alert.Status)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, 80.0, alert.Confidence)
	assert.Equal(t, 3, alert.Escalation.ReportCount)
	assert.Equal(t, 2, alert.Escalation.SourceTypeCount)
	assert.Len(t, alert.Escalation.ThresholdsMet, 3)
	assert.NotEmpty(t, alert.Escalation.Rationale)
	assert.Len(t, alert.RelatedReportIDs, 3)
	assert.Equal(t, 1, m.ActiveCount())
}

func TestEvaluate_HighSeverityNeedsMoreDiversity(t *testing.T) {
	m, _ := newTestManager(t)

	// high требует два типа источников, есть один
	inc := testIncident(90, 3, []models.SourceType{models.SourceCitizen})
	alert, changed := m.Evaluate(inc, membersWithSeverity(models.SeverityHigh, models.SeverityHigh, models.SeverityHigh))
	assert.Nil(t, alert)
	assert.False(t, changed)

	inc.SourceTypesSeen = []models.SourceType{models.SourceCitizen, models.SourceSensor}
	alert, changed = m.Evaluate(inc, membersWithSeverity(models.SeverityHigh, models.SeverityHigh, models.SeverityHigh))
	require.True(t, changed)
	assert.Equal(t, models.AlertActive, alert.Status)
}

func TestEvaluate_UpdatesLiveAlertInPlace(t *testing.T) {
	m, clock := newTestManager(t)
	inc := testIncident(80, 2, []models.SourceType{models.SourceCitizen})

	first, changed := m.Evaluate(inc, membersWithSeverity(models.SeverityMedium, models.SeverityMedium))
	require.True(t, changed)

	clock.Advance(time.Minute)
	inc.ConfidenceScore = 92
	inc.MemberReportIDs = append(inc.MemberReportIDs, uuid.New())
	inc.SourceTypesSeen = []models.SourceType{models.SourceCitizen, models.SourceSensor}
	second, changed := m.Evaluate(inc, membersWithSeverity(models.SeverityMedium, models.SeverityMedium, models.SeverityHigh))

	require.True(t, changed)
	// Никогда не создается второе действующее оповещение
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 92.0, second.Confidence)
	assert.Equal(t, models.SeverityHigh, second.Severity)
	assert.Equal(t, 1, m.ActiveCount())
	assert.Len(t, m.All(), 1)
}

func TestEvaluate_DedupUnderConcurrency(t *testing.T) {
	m, _ := newTestManager(t)
	inc := testIncident(85, 3, []models.SourceType{models.SourceCitizen, models.SourceSensor})
	members := membersWithSeverity(models.SeverityMedium, models.SeverityMedium, models.SeverityMedium)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Evaluate(inc, members)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.ActiveCount())
	assert.Len(t, m.All(), 1)
}

func TestEvaluate_DropBelowThresholdKeepsAlert(t *testing.T) {
	m, _ := newTestManager(t)
	inc := testIncident(80, 2, []models.SourceType{models.SourceCitizen})
	members := membersWithSeverity(models.SeverityMedium, models.SeverityMedium)

	created, changed := m.Evaluate(inc, members)
	require.True(t, changed)

	// Пороги больше не пересечены: оповещение не отзывается автоматически
	inc.ConfidenceScore = 40
	kept, changed := m.Evaluate(inc, members)

	assert.False(t, changed)
	require.NotNil(t, kept)
	assert.Equal(t, created.ID, kept.ID)
	assert.Equal(t, models.AlertActive, kept.Status)
}

func escalated(t *testing.T, m *Manager) *models.Alert {
	t.Helper()
	inc := testIncident(85, 2, []models.SourceType{models.SourceCitizen, models.SourceSensor})
	alert, changed := m.Evaluate(inc, membersWithSeverity(models.SeverityMedium, models.SeverityMedium))
	require.True(t, changed)
	return alert
}

func TestVerify_ActiveToVerified(t *testing.T) {
	m, _ := newTestManager(t)
	alert := escalated(t, m)

	verified, err := m.Verify(alert.ID)

	require.NoError(t, err)
	assert.Equal(t, models.AlertVerified, verified.Status)
	// Подтвержденное оповещение остается действующим
	assert.Equal(t, 1, m.ActiveCount())
}

func TestVerify_RejectedFromVerified(t *testing.T) {
	m, _ := newTestManager(t)
	alert := escalated(t, m)

	_, err := m.Verify(alert.ID)
	require.NoError(t, err)

	_, err = m.Verify(alert.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestResolve_FromActiveAndVerified(t *testing.T) {
	m, _ := newTestManager(t)

	active := escalated(t, m)
	resolved, err := m.Resolve(active.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, resolved.Status)
	assert.Zero(t, m.ActiveCount())

	second := escalated(t, m)
	_, err = m.Verify(second.ID)
	require.NoError(t, err)
	resolved, err = m.Resolve(second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, resolved.Status)
}

func TestResolve_RejectedFromTerminal(t *testing.T) {
	m, _ := newTestManager(t)
	alert := escalated(t, m)

	_, err := m.Resolve(alert.ID)
	require.NoError(t, err)

	_, err = m.Resolve(alert.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestMarkFalseAlarm_ExplicitOnly(t *testing.T) {
	m, _ := newTestManager(t)
	alert := escalated(t, m)

	marked, err := m.MarkFalseAlarm(alert.ID)

	require.NoError(t, err)
	assert.Equal(t, models.AlertFalseAlarm, marked.Status)
	assert.Zero(t, m.ActiveCount())

	_, err = m.MarkFalseAlarm(alert.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestTransition_UnknownAlert(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Verify(uuid.New())
	require.ErrorIs(t, err, apperr.ErrAlertNotFound)

	_, err = m.Get(uuid.New())
	require.ErrorIs(t, err, apperr.ErrAlertNotFound)
}

func TestResolveForIncident(t *testing.T) {
	m, _ := newTestManager(t)
	alert := escalated(t, m)

	resolved, changed := m.ResolveForIncident(alert.IncidentID)

	require.True(t, changed)
	assert.Equal(t, models.AlertResolved, resolved.Status)
	assert.Zero(t, m.ActiveCount())

	_, changed = m.ResolveForIncident(alert.IncidentID)
	assert.False(t, changed)
}

func TestRestore(t *testing.T) {
	m, _ := newTestManager(t)
	incidentID := uuid.New()
	alert := &models.Alert{
		ID:         uuid.New(),
		IncidentID: incidentID,
		Status:     models.AlertVerified,
		Severity:   models.SeverityHigh,
		Confidence: 90,
	}

	m.Restore(alert)

	got, err := m.Get(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertVerified, got.Status)

	live, ok := m.LiveForIncident(incidentID)
	require.True(t, ok)
	assert.Equal(t, alert.ID, live.ID)
	assert.Equal(t, 1, m.ActiveCount())
}

func TestRestore_TerminalAlertNotLive(t *testing.T) {
	m, _ := newTestManager(t)
	alert := &models.Alert{
		ID:         uuid.New(),
		IncidentID: uuid.New(),
		Status:     models.AlertResolved,
	}

	m.Restore(alert)

	assert.Zero(t, m.ActiveCount())
	_, ok := m.LiveForIncident(alert.IncidentID)
	assert.False(t, ok)
}
