package models

// HazardType - тип прибрежной опасности, присвоенный внешним классификатором
type HazardType string

const (
	HazardFlood      HazardType = "flood"
	HazardErosion    HazardType = "erosion"
	HazardRipCurrent HazardType = "rip-current"
	HazardStormSurge HazardType = "storm-surge"
	HazardTsunami    HazardType = "tsunami"
	HazardPollution  HazardType = "pollution"
)

// Valid проверяет, что тип опасности входит в известный набор
func (h HazardType) Valid() bool {
	switch h {
	case HazardFlood, HazardErosion, HazardRipCurrent, HazardStormSurge, HazardTsunami, HazardPollution:
		return true
	}
	return false
}

// SourceType - источник сообщения
type SourceType string

const (
	SourceCitizen   SourceType = "citizen"
	SourceSensor    SourceType = "sensor"
	SourceSocial    SourceType = "social"
	SourceResponder SourceType = "responder"
)

// Valid проверяет, что источник входит в известный набор
func (s SourceType) Valid() bool {
	switch s {
	case SourceCitizen, SourceSensor, SourceSocial, SourceResponder:
		return true
	}
	return false
}

// Severity - уровень серьезности опасности
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid проверяет, что уровень серьезности входит в известный набор
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}
