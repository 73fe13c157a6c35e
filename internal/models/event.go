package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType - тип события изменения
type EventType string

const (
	EventReportSubmitted EventType = "report_submitted"
	EventAlertUpdate     EventType = "alert_update"
)

// Event - минимальное событие мутации, рассылаемое подписчикам
type Event struct {
	Type      EventType `json:"type"`
	EntityID  uuid.UUID `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}
