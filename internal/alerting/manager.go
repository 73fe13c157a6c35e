// Package alerting владеет жизненным циклом оповещений и их переходами
// статусов: none -> active -> verified -> resolved | false_alarm.
// Инвариант дедупликации: на инцидент в любой момент существует не более
// одного оповещения в статусе active или verified.
package alerting

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/sirupsen/logrus"
)

// Thresholds - пороги эскалации инцидента в оповещение
type Thresholds struct {
	Activation            float64
	MinReports            int
	MinSourceDiversity    int
	HighSeverityDiversity int
}

// DiversityFor возвращает требуемое разнообразие источников для уровня
// серьезности
func (t Thresholds) DiversityFor(severity models.Severity) int {
	if severity == models.SeverityHigh && t.HighSeverityDiversity > t.MinSourceDiversity {
		return t.HighSeverityDiversity
	}
	return t.MinSourceDiversity
}

// Manager - единственный владелец переходов статусов оповещений
type Manager struct {
	mu         sync.RWMutex
	alerts     map[uuid.UUID]*models.Alert
	byIncident map[uuid.UUID]*models.Alert // действующее оповещение инцидента

	thresholds Thresholds
	clock      clockwork.Clock
	logger     *logrus.Logger
}

// NewManager создает менеджер жизненного цикла оповещений
func NewManager(thresholds Thresholds, clock clockwork.Clock, logger *logrus.Logger) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		alerts:     make(map[uuid.UUID]*models.Alert),
		byIncident: make(map[uuid.UUID]*models.Alert),
		thresholds: thresholds,
		clock:      clock,
		logger:     logger,
	}
}

// Restore восстанавливает оповещение после рестарта процесса
func (m *Manager) Restore(alert *models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := snapshotAlert(alert)
	m.alerts[cp.ID] = cp
	if cp.Status.Live() {
		m.byIncident[cp.IncidentID] = cp
	}
}

// Evaluate сверяет инцидент с порогами эскалации. Вызывается под
// блокировкой инцидента. Если пороги пересечены и действующего оповещения
// нет - создается новое; если оно есть - обновляется на месте (никогда не
// создается второе). Возвращает снимок оповещения и признак мутации.
func (m *Manager) Evaluate(inc *models.Incident, members []*models.Report) (*models.Alert, bool) {
	severity := maxSeverity(members)

	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.byIncident[inc.ID]
	if !m.thresholdsMet(inc, severity) {
		// Пороги не пересечены: действующее оповещение не отзываем
		// автоматически, демотирование только явным сигналом
		if live == nil {
			return nil, false
		}
		return snapshotAlert(live), false
	}

	now := m.clock.Now().UTC()
	reason := m.escalationReason(inc, severity)

	if live != nil {
		live.Severity = severity
		live.Confidence = inc.ConfidenceScore
		live.Escalation = reason
		live.RelatedReportIDs = append([]uuid.UUID(nil), inc.MemberReportIDs...)
		live.UpdatedAt = now
		return snapshotAlert(live), true
	}

	alert := &models.Alert{
		ID:               uuid.New(),
		IncidentID:       inc.ID,
		Status:           models.AlertActive,
		Severity:         severity,
		Confidence:       inc.ConfidenceScore,
		Escalation:       reason,
		RelatedReportIDs: append([]uuid.UUID(nil), inc.MemberReportIDs...),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.alerts[alert.ID] = alert
	m.byIncident[inc.ID] = alert

	m.logger.WithFields(logrus.Fields{
		"component":   "alerting",
		"alert_id":    alert.ID,
		"incident_id": inc.ID,
		"confidence":  alert.Confidence,
	}).Info("Incident escalated to active alert")
	return snapshotAlert(alert), true
}

// Verify переводит оповещение active -> verified по внешнему подтверждению
func (m *Manager) Verify(id uuid.UUID) (*models.Alert, error) {
	return m.transition(id, models.AlertVerified, func(s models.AlertStatus) bool {
		return s == models.AlertActive
	})
}

// Resolve переводит оповещение active|verified -> resolved
func (m *Manager) Resolve(id uuid.UUID) (*models.Alert, error) {
	return m.transition(id, models.AlertResolved, func(s models.AlertStatus) bool {
		return s.Live()
	})
}

// MarkFalseAlarm переводит оповещение active|verified -> false_alarm.
// Только явным сигналом: ложные тревоги не испаряются сами
func (m *Manager) MarkFalseAlarm(id uuid.UUID) (*models.Alert, error) {
	return m.transition(id, models.AlertFalseAlarm, func(s models.AlertStatus) bool {
		return s.Live()
	})
}

// ResolveForIncident закрывает действующее оповещение инцидента (например,
// по истечении окна инцидента). Возвращает снимок и признак мутации.
func (m *Manager) ResolveForIncident(incidentID uuid.UUID) (*models.Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.byIncident[incidentID]
	if live == nil {
		return nil, false
	}
	live.Status = models.AlertResolved
	live.UpdatedAt = m.clock.Now().UTC()
	delete(m.byIncident, incidentID)
	return snapshotAlert(live), true
}

// Get возвращает снимок оповещения по id
func (m *Manager) Get(id uuid.UUID) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	alert, ok := m.alerts[id]
	if !ok {
		return nil, apperr.ErrAlertNotFound
	}
	return snapshotAlert(alert), nil
}

// LiveForIncident возвращает действующее оповещение инцидента, если есть
func (m *Manager) LiveForIncident(incidentID uuid.UUID) (*models.Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	live, ok := m.byIncident[incidentID]
	if !ok {
		return nil, false
	}
	return snapshotAlert(live), true
}

// ActiveCount возвращает число действующих оповещений
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byIncident)
}

// All возвращает снимки всех оповещений
func (m *Manager) All() []*models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, snapshotAlert(a))
	}
	return out
}

func (m *Manager) transition(id uuid.UUID, to models.AlertStatus, allowed func(models.AlertStatus) bool) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return nil, apperr.ErrAlertNotFound
	}
	if !allowed(alert.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, alert.Status, to)
	}

	alert.Status = to
	alert.UpdatedAt = m.clock.Now().UTC()
	if to.Terminal() {
		delete(m.byIncident, alert.IncidentID)
	}
	return snapshotAlert(alert), nil
}

func (m *Manager) thresholdsMet(inc *models.Incident, severity models.Severity) bool {
	return inc.ConfidenceScore >= m.thresholds.Activation &&
		inc.MemberCount() >= m.thresholds.MinReports &&
		len(inc.SourceTypesSeen) >= m.thresholds.DiversityFor(severity)
}

func (m *Manager) escalationReason(inc *models.Incident, severity models.Severity) models.EscalationReason {
	met := []string{
		fmt.Sprintf("confidence %.1f >= %.1f", inc.ConfidenceScore, m.thresholds.Activation),
		fmt.Sprintf("reports %d >= %d", inc.MemberCount(), m.thresholds.MinReports),
		fmt.Sprintf("source diversity %d >= %d", len(inc.SourceTypesSeen), m.thresholds.DiversityFor(severity)),
	}
	return models.EscalationReason{
		ReportCount:            inc.MemberCount(),
		SourceTypeCount:        len(inc.SourceTypesSeen),
		WindowStart:            inc.WindowStart,
		WindowEnd:              inc.WindowEnd,
		GeographicSpreadMeters: inc.GeographicSpreadMeters,
		ThresholdsMet:          met,
		Rationale: fmt.Sprintf("%d %s report(s) from %d source type(s) within %.0f m",
			inc.MemberCount(), inc.HazardType, len(inc.SourceTypesSeen), inc.GeographicSpreadMeters),
	}
}

func maxSeverity(members []*models.Report) models.Severity {
	rank := map[models.Severity]int{
		models.SeverityLow:    0,
		models.SeverityMedium: 1,
		models.SeverityHigh:   2,
	}
	severity := models.SeverityLow
	for _, r := range members {
		if rank[r.Severity] > rank[severity] {
			severity = r.Severity
		}
	}
	return severity
}

func snapshotAlert(a *models.Alert) *models.Alert {
	cp := *a
	cp.RelatedReportIDs = append([]uuid.UUID(nil), a.RelatedReportIDs...)
	cp.Escalation.ThresholdsMet = append([]string(nil), a.Escalation.ThresholdsMet...)
	return &cp
}
