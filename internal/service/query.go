package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/cache"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/sirupsen/logrus"
)

// ListAlerts возвращает оповещения, удовлетворяющие всем переданным
// фильтрам. Результат кэшируется по отпечатку фильтров с тегами alert и
// incident.
func (e *engine) ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	log := e.logger.WithFields(logrus.Fields{
		"service": "engine",
		"method":  "ListAlerts",
	})

	if err := validateAlertFilter(filter); err != nil {
		log.WithError(err).Warn("Rejected invalid alert filter")
		return nil, err
	}

	fingerprint := cache.Fingerprint("alerts", map[string]string{
		"status":      filter.Status,
		"hazard_type": filter.HazardType,
		"severity":    filter.Severity,
		"region":      filter.Region,
	})
	if data, err := e.cache.Get(ctx, fingerprint); err == nil {
		var cached []*models.Alert
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		log.Warn("Failed to unmarshal cached alert list, falling through")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.WithError(err).Warn("Cache read failed, serving from memory")
	}

	alerts := e.filterAlerts(filter)

	data, err := marshalSnapshot(alerts)
	if err != nil {
		return nil, err
	}
	tags := []string{cache.TagAlert, cache.TagIncident}
	if filter.Region != "" {
		tags = append(tags, cache.RegionTag(filter.Region))
	}
	if err := e.cache.Put(ctx, fingerprint, data, tags); err != nil {
		log.WithError(err).Warn("Failed to cache alert list")
	}
	return alerts, nil
}

// filterAlerts отбирает оповещения по конъюнкции фильтров: каждый
// возвращенный элемент удовлетворяет всем заданным критериям
func (e *engine) filterAlerts(filter AlertFilter) []*models.Alert {
	all := e.alerts.All()
	out := make([]*models.Alert, 0, len(all))
	for _, a := range all {
		if filter.Status != "" && string(a.Status) != filter.Status {
			continue
		}
		if filter.Severity != "" && string(a.Severity) != filter.Severity {
			continue
		}
		if filter.HazardType != "" || filter.Region != "" {
			inc, ok := e.clusterer.Incident(a.IncidentID)
			if !ok {
				continue
			}
			if filter.HazardType != "" && string(inc.HazardType) != filter.HazardType {
				continue
			}
			if filter.Region != "" && inc.Centroid().RegionID() != filter.Region {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetDashboardStats возвращает агрегаты для дашборда через кэш
func (e *engine) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	log := e.logger.WithFields(logrus.Fields{
		"service": "engine",
		"method":  "GetDashboardStats",
	})

	fingerprint := cache.Fingerprint("dashboard_stats", nil)
	if data, err := e.cache.Get(ctx, fingerprint); err == nil {
		stats := &DashboardStats{}
		if err := json.Unmarshal(data, stats); err == nil {
			return stats, nil
		}
		log.Warn("Failed to unmarshal cached stats, falling through")
	}

	e.statsMu.RLock()
	byRegion := make(map[string]int, len(e.reportsByRegion))
	for region, count := range e.reportsByRegion {
		byRegion[region] = count
	}
	stats := &DashboardStats{
		TotalReports:    e.totalReports,
		ActiveAlerts:    e.alerts.ActiveCount(),
		ReportsByRegion: byRegion,
	}
	e.statsMu.RUnlock()

	data, err := marshalSnapshot(stats)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Put(ctx, fingerprint, data, []string{cache.TagReport, cache.TagAlert}); err != nil {
		log.WithError(err).Warn("Failed to cache dashboard stats")
	}
	return stats, nil
}

// QueryReportsNear возвращает сообщения в радиусе от точки, по возрастанию
// времени
func (e *engine) QueryReportsNear(ctx context.Context, center models.Location, radiusMeters float64) ([]*models.Report, error) {
	log := e.logger.WithFields(logrus.Fields{
		"service": "engine",
		"method":  "QueryReportsNear",
	})

	fingerprint := cache.Fingerprint("reports_near", map[string]string{
		"lat":    strconv.FormatFloat(center.Latitude, 'f', 5, 64),
		"lon":    strconv.FormatFloat(center.Longitude, 'f', 5, 64),
		"radius": strconv.FormatFloat(radiusMeters, 'f', 0, 64),
	})
	if data, err := e.cache.Get(ctx, fingerprint); err == nil {
		var cached []*models.Report
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		log.Warn("Failed to unmarshal cached report list, falling through")
	}

	reports, err := e.index.QueryRadius(center, radiusMeters, time.Time{})
	if err != nil {
		log.WithError(err).Warn("Rejected radius query")
		return nil, err
	}

	data, err := marshalSnapshot(reports)
	if err != nil {
		return nil, err
	}
	tags := []string{cache.TagReport, cache.RegionTag(center.RegionID())}
	if err := e.cache.Put(ctx, fingerprint, data, tags); err != nil {
		log.WithError(err).Warn("Failed to cache report list")
	}
	return reports, nil
}

// validateAlertFilter отсекает неизвестные значения фильтров
func validateAlertFilter(filter AlertFilter) error {
	if filter.Status != "" && !models.AlertStatus(filter.Status).Valid() {
		return fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidQuery, filter.Status)
	}
	if filter.HazardType != "" && !models.HazardType(filter.HazardType).Valid() {
		return fmt.Errorf("%w: unknown hazard type %q", apperr.ErrInvalidQuery, filter.HazardType)
	}
	if filter.Severity != "" && !models.Severity(filter.Severity).Valid() {
		return fmt.Errorf("%w: unknown severity %q", apperr.ErrInvalidQuery, filter.Severity)
	}
	return nil
}
