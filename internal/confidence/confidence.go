// Package confidence вычисляет оценку уверенности инцидента по его
// сообщениям. Оценка монотонно не убывает при добавлении сообщений: любое
// вычисленное значение отсекается снизу предыдущей оценкой инцидента.
package confidence

import (
	"math"

	"github.com/shenikar/hazard_fusion_engine/internal/config"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
)

// Policy - веса формулы уверенности
type Policy struct {
	BaseWeight    float64
	DiversityStep float64
	DiversityCap  float64
	MemberStep    float64
	MemberCap     float64
}

// PolicyFromConfig собирает веса из конфигурации приложения
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		BaseWeight:    cfg.ConfidenceBaseWeight,
		DiversityStep: cfg.ConfidenceDiversityStep,
		DiversityCap:  cfg.ConfidenceDiversityCap,
		MemberStep:    cfg.ConfidenceMemberStep,
		MemberCap:     cfg.ConfidenceMemberCap,
	}
}

// Aggregator пересчитывает оценку уверенности инцидентов
type Aggregator struct {
	policy Policy
}

// New создает агрегатор с переданными весами
func New(policy Policy) *Aggregator {
	return &Aggregator{policy: policy}
}

// Recompute возвращает новую оценку уверенности инцидента по его текущему
// составу. Результат никогда не меньше incident.ConfidenceScore: среднее
// может просесть от сообщения с низкой уверенностью классификатора, но
// больше свидетельств не должно уменьшать оценку.
func (a *Aggregator) Recompute(incident *models.Incident, members []*models.Report) float64 {
	if len(members) == 0 {
		return incident.ConfidenceScore
	}

	var sum float64
	sources := make(map[models.SourceType]struct{}, 4)
	for _, r := range members {
		sum += r.ClassifierConfidence
		sources[r.SourceType] = struct{}{}
	}
	mean := sum / float64(len(members))

	base := a.policy.BaseWeight * mean
	diversity := math.Min(float64(len(sources)-1)*a.policy.DiversityStep, a.policy.DiversityCap)
	membership := math.Min(float64(len(members)-1)*a.policy.MemberStep, a.policy.MemberCap)

	score := math.Min(100, base+diversity+membership)
	return math.Max(score, incident.ConfidenceScore)
}
