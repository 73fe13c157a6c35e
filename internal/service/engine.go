// Package service - ядро движка: прием сообщений, кластеризация,
// пересчет уверенности, эскалация в оповещения, инвалидация кэша и
// рассылка событий. Операции над одним инцидентом сериализуются
// по-инцидентно, несвязанные инциденты обрабатываются параллельно.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shenikar/hazard_fusion_engine/internal/alerting"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/broadcast"
	"github.com/shenikar/hazard_fusion_engine/internal/cache"
	"github.com/shenikar/hazard_fusion_engine/internal/cluster"
	"github.com/shenikar/hazard_fusion_engine/internal/config"
	"github.com/shenikar/hazard_fusion_engine/internal/confidence"
	"github.com/shenikar/hazard_fusion_engine/internal/geoindex"
	"github.com/shenikar/hazard_fusion_engine/internal/metrics"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/shenikar/hazard_fusion_engine/internal/webhook"
	"github.com/sirupsen/logrus"
)

// Store определяет контракт долговременного хранилища движка
type Store interface {
	SaveReport(ctx context.Context, report *models.Report) error
	UpdateReportIncident(ctx context.Context, reportID, incidentID uuid.UUID) error
	SaveIncident(ctx context.Context, incident *models.Incident) error
	SaveAlert(ctx context.Context, alert *models.Alert) error
	LoadOpenIncidents(ctx context.Context) ([]*models.Incident, error)
	LoadReportsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Report, error)
	LoadRecentReports(ctx context.Context, since time.Time) ([]*models.Report, error)
	LoadAlerts(ctx context.Context) ([]*models.Alert, error)
	CountReports(ctx context.Context) (int, error)
	ReportCountsByRegion(ctx context.Context) (map[string]int, error)
}

// SubmitResult - результат приема сообщения
type SubmitResult struct {
	IncidentID uuid.UUID  `json:"incident_id"`
	AlertID    *uuid.UUID `json:"alert_id,omitempty"`
}

// AlertFilter - конъюнктивные фильтры списка оповещений
type AlertFilter struct {
	Status     string
	HazardType string
	Severity   string
	Region     string
}

// DashboardStats - агрегаты для дашборда
type DashboardStats struct {
	TotalReports    int            `json:"total_reports"`
	ActiveAlerts    int            `json:"active_alerts"`
	ReportsByRegion map[string]int `json:"reports_by_region"`
}

// Engine определяет контракт ядра движка для границы HTTP и для main
type Engine interface {
	Start(ctx context.Context)
	Restore(ctx context.Context) error
	SubmitReport(ctx context.Context, report *models.Report) (*SubmitResult, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	QueryReportsNear(ctx context.Context, center models.Location, radiusMeters float64) ([]*models.Report, error)
	VerifyAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ResolveAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	MarkAlertFalseAlarm(ctx context.Context, id uuid.UUID) (*models.Alert, error)
}

type engine struct {
	store       Store
	index       *geoindex.Index
	clusterer   *cluster.Clusterer
	aggregator  *confidence.Aggregator
	alerts      *alerting.Manager
	cache       cache.Cache
	broadcaster *broadcast.Broadcaster
	publisher   webhook.Publisher
	logger      *logrus.Logger
	cfg         *config.Config
	clock       clockwork.Clock

	retry *retryPool

	statsMu         sync.RWMutex
	totalReports    int
	reportsByRegion map[string]int
}

// Deps - явно сконструированные зависимости движка; соединения живут на
// уровне процесса и передаются снаружи, без глобального состояния
type Deps struct {
	Store       Store
	Index       *geoindex.Index
	Clusterer   *cluster.Clusterer
	Aggregator  *confidence.Aggregator
	Alerts      *alerting.Manager
	Cache       cache.Cache
	Broadcaster *broadcast.Broadcaster
	Publisher   webhook.Publisher
	Logger      *logrus.Logger
	Config      *config.Config
	Clock       clockwork.Clock
}

// NewEngine создает ядро движка
func NewEngine(deps Deps) Engine {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &engine{
		store:           deps.Store,
		index:           deps.Index,
		clusterer:       deps.Clusterer,
		aggregator:      deps.Aggregator,
		alerts:          deps.Alerts,
		cache:           deps.Cache,
		broadcaster:     deps.Broadcaster,
		publisher:       deps.Publisher,
		logger:          deps.Logger,
		cfg:             deps.Config,
		clock:           clock,
		reportsByRegion: make(map[string]int),
	}
	e.retry = newRetryPool(deps.Config.RetryWorkers, deps.Config.RetryQueueSize, e.retryProcess, deps.Logger)
	return e
}

// Start запускает фоновые процессы движка: пул асинхронных повторов и
// сметающий проход по истекшим инцидентам
func (e *engine) Start(ctx context.Context) {
	e.retry.Start(ctx)
	go e.sweepLoop(ctx)
}

// SubmitReport принимает сообщение: валидация вывода классификатора,
// запись, кластеризация, пересчет уверенности, оценка эскалации,
// инвалидация кэша и публикация событий. Обработка ограничена дедлайном;
// не уложившееся сообщение уходит в асинхронные повторы.
func (e *engine) SubmitReport(ctx context.Context, report *models.Report) (*SubmitResult, error) {
	log := e.logger.WithFields(logrus.Fields{
		"service": "engine",
		"method":  "SubmitReport",
	})

	if err := e.validateReport(report); err != nil {
		log.WithError(err).Warn("Rejected invalid report")
		return nil, err
	}
	log = log.WithField("report_id", report.ID)

	deadlineCtx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
	defer cancel()

	started := e.clock.Now()
	result, err := e.processWithBackoff(deadlineCtx, report)
	metrics.ObserveSubmit(e.clock.Since(started), err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Дедлайн исчерпан: не держим вызывающего, сообщение
			// доедет через пул повторов
			e.retry.Submit(report)
			log.Warn("Submit deadline exceeded, report queued for async retry")
			return nil, apperr.ErrRetryScheduled
		}
		log.WithError(err).Error("Failed to process report")
		return nil, err
	}

	log.WithField("incident_id", result.IncidentID).Info("Report processed successfully")
	return result, nil
}

// processWithBackoff повторяет обработку при временных отказах хранилища
// с ограниченной экспоненциальной задержкой
func (e *engine) processWithBackoff(ctx context.Context, report *models.Report) (*SubmitResult, error) {
	delay := e.cfg.RetryBaseDelay
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		result, err := e.process(ctx, report)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.clock.After(delay):
		}
		delay *= 2 // Экспоненциальная задержка
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

// process - один проход конвейера обработки сообщения. Каждый шаг
// идемпотентен, поэтому повтор после частичного отказа безопасен.
func (e *engine) process(ctx context.Context, report *models.Report) (*SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.store.SaveReport(ctx, report); err != nil {
		return nil, err
	}
	if err := e.index.Insert(report); err != nil {
		return nil, err
	}

	incident, err := e.clusterer.Assign(report)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateReportIncident(ctx, report.ID, incident.ID); err != nil {
		return nil, err
	}

	var alertSnap *models.Alert
	var alertChanged bool
	err = e.clusterer.WithIncident(incident.ID, func(inc *models.Incident, members []*models.Report) error {
		inc.ConfidenceScore = e.aggregator.Recompute(inc, members)
		alertSnap, alertChanged = e.alerts.Evaluate(inc, members)
		incident = inc
		if err := e.store.SaveIncident(ctx, inc); err != nil {
			return err
		}
		if alertChanged {
			return e.store.SaveAlert(ctx, alertSnap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Инвалидация затронутых тегов до подтверждения мутации: чтение после
	// успешного submit не должно видеть устаревший кэш
	tags := []string{cache.TagReport, cache.TagIncident, cache.RegionTag(report.RegionID())}
	if alertChanged {
		tags = append(tags, cache.TagAlert)
	}
	if err := e.cache.Invalidate(ctx, tags...); err != nil {
		return nil, fmt.Errorf("failed to invalidate cache: %w", err)
	}

	e.bumpStats(report)
	e.emit(ctx, models.Event{
		Type:      models.EventReportSubmitted,
		EntityID:  report.ID,
		Timestamp: e.clock.Now().UTC(),
	})
	if alertChanged {
		metrics.SetActiveAlerts(e.alerts.ActiveCount())
		e.emit(ctx, models.Event{
			Type:      models.EventAlertUpdate,
			EntityID:  alertSnap.ID,
			Timestamp: e.clock.Now().UTC(),
		})
	}

	result := &SubmitResult{IncidentID: incident.ID}
	if alertSnap != nil && alertSnap.Status.Live() {
		id := alertSnap.ID
		result.AlertID = &id
	}
	return result, nil
}

// validateReport отсекает ошибки вызывающего: вывод классификатора
// сверяется с диапазоном и перечислениями, сообщение без координат не
// кластеризуется
func (e *engine) validateReport(report *models.Report) error {
	if report.Location == nil {
		return apperr.ErrMissingLocation
	}
	if !report.HazardType.Valid() {
		return fmt.Errorf("%w: unknown hazard type %q", apperr.ErrInvalidClassification, report.HazardType)
	}
	if !report.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", apperr.ErrInvalidClassification, report.Severity)
	}
	if !report.SourceType.Valid() {
		return fmt.Errorf("%w: unknown source type %q", apperr.ErrInvalidClassification, report.SourceType)
	}
	if report.ClassifierConfidence < 0 || report.ClassifierConfidence > 100 {
		return fmt.Errorf("%w: confidence %.1f out of [0,100]", apperr.ErrInvalidClassification, report.ClassifierConfidence)
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = e.clock.Now().UTC()
	}
	return nil
}

// VerifyAlert подтверждает оповещение внешним сигналом (active -> verified)
func (e *engine) VerifyAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	return e.signalAlert(ctx, id, "VerifyAlert", e.alerts.Verify)
}

// ResolveAlert закрывает оповещение (active|verified -> resolved)
func (e *engine) ResolveAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	return e.signalAlert(ctx, id, "ResolveAlert", e.alerts.Resolve)
}

// MarkAlertFalseAlarm помечает оповещение ложной тревогой; только явным
// сигналом
func (e *engine) MarkAlertFalseAlarm(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	return e.signalAlert(ctx, id, "MarkAlertFalseAlarm", e.alerts.MarkFalseAlarm)
}

func (e *engine) signalAlert(ctx context.Context, id uuid.UUID, method string, transition func(uuid.UUID) (*models.Alert, error)) (*models.Alert, error) {
	log := e.logger.WithFields(logrus.Fields{
		"service":  "engine",
		"method":   method,
		"alert_id": id,
	})

	alert, err := transition(id)
	if err != nil {
		log.WithError(err).Warn("Alert transition rejected")
		return nil, err
	}

	if err := e.store.SaveAlert(ctx, alert); err != nil {
		log.WithError(err).Error("Failed to persist alert transition")
		return nil, err
	}
	if err := e.cache.Invalidate(ctx, cache.TagAlert); err != nil {
		return nil, fmt.Errorf("failed to invalidate alert cache: %w", err)
	}

	metrics.SetActiveAlerts(e.alerts.ActiveCount())
	e.emit(ctx, models.Event{
		Type:      models.EventAlertUpdate,
		EntityID:  alert.ID,
		Timestamp: e.clock.Now().UTC(),
	})
	log.WithField("status", alert.Status).Info("Alert transitioned")
	return alert, nil
}

// Restore восстанавливает состояние движка из хранилища после рестарта
func (e *engine) Restore(ctx context.Context) error {
	log := e.logger.WithField("service", "engine")

	incidents, err := e.store.LoadOpenIncidents(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore incidents: %w", err)
	}
	for _, inc := range incidents {
		members, err := e.store.LoadReportsByIncident(ctx, inc.ID)
		if err != nil {
			return fmt.Errorf("failed to restore incident members: %w", err)
		}
		e.clusterer.Restore(inc, members)
	}

	reports, err := e.store.LoadRecentReports(ctx, e.clock.Now().Add(-e.cfg.IndexRetention))
	if err != nil {
		return fmt.Errorf("failed to restore index: %w", err)
	}
	for _, r := range reports {
		if err := e.index.Insert(r); err != nil && !errors.Is(err, apperr.ErrMissingLocation) {
			return fmt.Errorf("failed to reinsert report: %w", err)
		}
	}

	alerts, err := e.store.LoadAlerts(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore alerts: %w", err)
	}
	for _, a := range alerts {
		e.alerts.Restore(a)
	}

	total, err := e.store.CountReports(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore report count: %w", err)
	}
	byRegion, err := e.store.ReportCountsByRegion(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore region counts: %w", err)
	}
	e.statsMu.Lock()
	e.totalReports = total
	e.reportsByRegion = byRegion
	e.statsMu.Unlock()

	metrics.SetActiveAlerts(e.alerts.ActiveCount())
	log.WithFields(logrus.Fields{
		"incidents": len(incidents),
		"reports":   len(reports),
		"alerts":    len(alerts),
	}).Info("Engine state restored from store")
	return nil
}

// sweepLoop периодически закрывает инциденты с истекшим окном и гасит их
// оповещения
func (e *engine) sweepLoop(ctx context.Context) {
	ticker := e.clock.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.sweepExpired(ctx)
		}
	}
}

func (e *engine) sweepExpired(ctx context.Context) {
	closed := e.clusterer.CloseExpired(e.clock.Now())
	for _, inc := range closed {
		if err := e.store.SaveIncident(ctx, inc); err != nil {
			e.logger.WithError(err).Error("Failed to persist closed incident")
			continue
		}
		alert, changed := e.alerts.ResolveForIncident(inc.ID)
		tags := []string{cache.TagIncident}
		if changed {
			if err := e.store.SaveAlert(ctx, alert); err != nil {
				e.logger.WithError(err).Error("Failed to persist resolved alert")
				continue
			}
			tags = append(tags, cache.TagAlert)
		}
		if err := e.cache.Invalidate(ctx, tags...); err != nil {
			e.logger.WithError(err).Error("Failed to invalidate cache after sweep")
		}
		if changed {
			metrics.SetActiveAlerts(e.alerts.ActiveCount())
			e.emit(ctx, models.Event{
				Type:      models.EventAlertUpdate,
				EntityID:  alert.ID,
				Timestamp: e.clock.Now().UTC(),
			})
		}
	}
}

// retryProcess - обработчик пула асинхронных повторов
func (e *engine) retryProcess(ctx context.Context, report *models.Report) error {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
	defer cancel()
	_, err := e.processWithBackoff(attemptCtx, report)
	return err
}

// emit публикует событие подписчикам и во внешний шлюз. Доставка шлюзу
// best-effort: отказ очереди логируется, мутация уже подтверждена.
func (e *engine) emit(ctx context.Context, event models.Event) {
	e.broadcaster.Publish(event)
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithError(err).Error("Failed to enqueue event for webhook gateway")
	}
}

func (e *engine) bumpStats(report *models.Report) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.totalReports++
	e.reportsByRegion[report.RegionID()]++
}

// retryable определяет, имеет ли смысл повторять обработку
func retryable(err error) bool {
	return errors.Is(err, apperr.ErrStoreUnavailable) || errors.Is(err, apperr.ErrClassifierTimeout)
}

// marshalSnapshot сериализует снимок для кэша
func marshalSnapshot(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}
	return data, nil
}
