// Package repository - долговременное хранилище движка поверх
// PostgreSQL/PostGIS. Инциденты и оповещения переживают рестарт процесса;
// формат хранения - забота БД, движок задает только операции чтения/записи.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/shenikar/hazard_fusion_engine/internal/service"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) service.Store {
	return &Store{db: db}
}

const saveReportQuery = `
	INSERT INTO reports (id, location, reported_at, hazard_type, source_type, severity,
		classifier_confidence, has_media, description, incident_id)
	VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET incident_id = EXCLUDED.incident_id
	RETURNING created_at;
`

// SaveReport сохраняет новое сообщение в бд
func (s *Store) SaveReport(ctx context.Context, report *models.Report) error {
	err := s.db.QueryRow(ctx, saveReportQuery,
		report.ID,
		report.Location.Longitude,
		report.Location.Latitude,
		report.Timestamp,
		report.HazardType,
		report.SourceType,
		report.Severity,
		report.ClassifierConfidence,
		report.HasMedia,
		report.Description,
		report.IncidentID,
	).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save report: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// UpdateReportIncident выставляет обратную ссылку сообщения на инцидент
func (s *Store) UpdateReportIncident(ctx context.Context, reportID, incidentID uuid.UUID) error {
	query := `UPDATE reports SET incident_id = $1 WHERE id = $2;`
	cmdTag, err := s.db.Exec(ctx, query, incidentID, reportID)
	if err != nil {
		return fmt.Errorf("%w: failed to update report incident: %v", apperr.ErrStoreUnavailable, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("report with id %s not found for update", reportID)
	}
	return nil
}

const saveIncidentQuery = `
	INSERT INTO incidents (id, hazard_type, centroid, window_start, window_end,
		member_report_ids, source_types_seen, geographic_spread_meters,
		confidence_score, status, created_at, updated_at)
	VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326), $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		centroid = EXCLUDED.centroid,
		window_start = EXCLUDED.window_start,
		window_end = EXCLUDED.window_end,
		member_report_ids = EXCLUDED.member_report_ids,
		source_types_seen = EXCLUDED.source_types_seen,
		geographic_spread_meters = EXCLUDED.geographic_spread_meters,
		confidence_score = EXCLUDED.confidence_score,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at;
`

// SaveIncident создает или обновляет инцидент (upsert по id)
func (s *Store) SaveIncident(ctx context.Context, incident *models.Incident) error {
	sources := make([]string, len(incident.SourceTypesSeen))
	for i, st := range incident.SourceTypesSeen {
		sources[i] = string(st)
	}
	_, err := s.db.Exec(ctx, saveIncidentQuery,
		incident.ID,
		incident.HazardType,
		incident.CentroidLon,
		incident.CentroidLat,
		incident.WindowStart,
		incident.WindowEnd,
		incident.MemberReportIDs,
		sources,
		incident.GeographicSpreadMeters,
		incident.ConfidenceScore,
		incident.Status,
		incident.CreatedAt,
		incident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save incident: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

const saveAlertQuery = `
	INSERT INTO alerts (id, incident_id, status, severity, confidence,
		report_count, source_type_count, window_start, window_end,
		geographic_spread_meters, rationale, related_report_ids, ai_summary,
		created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		severity = EXCLUDED.severity,
		confidence = EXCLUDED.confidence,
		report_count = EXCLUDED.report_count,
		source_type_count = EXCLUDED.source_type_count,
		window_start = EXCLUDED.window_start,
		window_end = EXCLUDED.window_end,
		geographic_spread_meters = EXCLUDED.geographic_spread_meters,
		rationale = EXCLUDED.rationale,
		related_report_ids = EXCLUDED.related_report_ids,
		ai_summary = EXCLUDED.ai_summary,
		updated_at = EXCLUDED.updated_at;
`

// SaveAlert создает или обновляет оповещение (upsert по id)
func (s *Store) SaveAlert(ctx context.Context, alert *models.Alert) error {
	_, err := s.db.Exec(ctx, saveAlertQuery,
		alert.ID,
		alert.IncidentID,
		alert.Status,
		alert.Severity,
		alert.Confidence,
		alert.Escalation.ReportCount,
		alert.Escalation.SourceTypeCount,
		alert.Escalation.WindowStart,
		alert.Escalation.WindowEnd,
		alert.Escalation.GeographicSpreadMeters,
		alert.Escalation.Rationale,
		alert.RelatedReportIDs,
		alert.AISummary,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save alert: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// LoadOpenIncidents возвращает открытые инциденты для восстановления
// состояния после рестарта
func (s *Store) LoadOpenIncidents(ctx context.Context) ([]*models.Incident, error) {
	query := `
		SELECT
			id,
			hazard_type,
			ST_Y(centroid::geometry) as centroid_lat,
			ST_X(centroid::geometry) as centroid_lon,
			window_start,
			window_end,
			member_report_ids,
			source_types_seen,
			geographic_spread_meters,
			confidence_score,
			status,
			created_at,
			updated_at
		FROM incidents
		WHERE status = 'open'
		ORDER BY created_at;
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load open incidents: %v", apperr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		var sources []string
		err := rows.Scan(
			&incident.ID,
			&incident.HazardType,
			&incident.CentroidLat,
			&incident.CentroidLon,
			&incident.WindowStart,
			&incident.WindowEnd,
			&incident.MemberReportIDs,
			&sources,
			&incident.GeographicSpreadMeters,
			&incident.ConfidenceScore,
			&incident.Status,
			&incident.CreatedAt,
			&incident.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incident.SourceTypesSeen = make([]models.SourceType, len(sources))
		for i, st := range sources {
			incident.SourceTypesSeen[i] = models.SourceType(st)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error incidents iteration: %w", err)
	}
	return incidents, nil
}

// LoadReportsByIncident возвращает сообщения инцидента в порядке поступления
func (s *Store) LoadReportsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Report, error) {
	query := selectReports + ` WHERE incident_id = $1 ORDER BY reported_at;`
	rows, err := s.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load incident reports: %v", apperr.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanReports(rows)
}

// LoadRecentReports возвращает сообщения не старше since для восстановления
// гео-временного индекса
func (s *Store) LoadRecentReports(ctx context.Context, since time.Time) ([]*models.Report, error) {
	query := selectReports + ` WHERE reported_at >= $1 ORDER BY reported_at;`
	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load recent reports: %v", apperr.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanReports(rows)
}

// LoadAlerts возвращает все оповещения для восстановления после рестарта
func (s *Store) LoadAlerts(ctx context.Context) ([]*models.Alert, error) {
	query := `
		SELECT id, incident_id, status, severity, confidence,
			report_count, source_type_count, window_start, window_end,
			geographic_spread_meters, rationale, related_report_ids, ai_summary,
			created_at, updated_at
		FROM alerts
		ORDER BY created_at;
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load alerts: %v", apperr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	alerts := make([]*models.Alert, 0)
	for rows.Next() {
		alert := &models.Alert{}
		err := rows.Scan(
			&alert.ID,
			&alert.IncidentID,
			&alert.Status,
			&alert.Severity,
			&alert.Confidence,
			&alert.Escalation.ReportCount,
			&alert.Escalation.SourceTypeCount,
			&alert.Escalation.WindowStart,
			&alert.Escalation.WindowEnd,
			&alert.Escalation.GeographicSpreadMeters,
			&alert.Escalation.Rationale,
			&alert.RelatedReportIDs,
			&alert.AISummary,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error alerts iteration: %w", err)
	}
	return alerts, nil
}

// CountReports возвращает общее число сообщений
func (s *Store) CountReports(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM reports;`).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to count reports: %v", apperr.ErrStoreUnavailable, err)
	}
	return count, nil
}

// ReportCountsByRegion возвращает число сообщений по ячейкам регионов.
// Сетка регионов должна совпадать с models.Location.RegionID (ячейка 0.5°).
func (s *Store) ReportCountsByRegion(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT
			'r' || floor(ST_Y(location::geometry) / 0.5)::int || ':' ||
				floor(ST_X(location::geometry) / 0.5)::int AS region,
			COUNT(*)
		FROM reports
		GROUP BY region;
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count reports by region: %v", apperr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var region string
		var count int
		if err := rows.Scan(&region, &count); err != nil {
			return nil, fmt.Errorf("failed to scan region count row: %w", err)
		}
		counts[region] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error region counts iteration: %w", err)
	}
	return counts, nil
}

const selectReports = `
	SELECT
		id,
		ST_Y(location::geometry) as latitude,
		ST_X(location::geometry) as longitude,
		reported_at,
		hazard_type,
		source_type,
		severity,
		classifier_confidence,
		has_media,
		description,
		incident_id,
		created_at
	FROM reports`

func scanReports(rows pgx.Rows) ([]*models.Report, error) {
	reports := make([]*models.Report, 0)
	for rows.Next() {
		report := &models.Report{Location: &models.Location{}}
		err := rows.Scan(
			&report.ID,
			&report.Location.Latitude,
			&report.Location.Longitude,
			&report.Timestamp,
			&report.HazardType,
			&report.SourceType,
			&report.Severity,
			&report.ClassifierConfidence,
			&report.HasMedia,
			&report.Description,
			&report.IncidentID,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reports iteration: %w", err)
	}
	return reports, nil
}
