package scoring

import (
	"math"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// Feature names in their fixed iteration order. Reason-code ties resolve
// in this order.
const (
	FeatureAgeing    = "ageing"
	FeatureLogAmount = "log_amount"
	FeatureAttempts  = "attempts"
	FeatureStaleness = "staleness"
	FeatureDispute   = "dispute"
	FeaturePTPActive = "ptp_active"
)

var featureOrder = []string{
	FeatureAgeing,
	FeatureLogAmount,
	FeatureAttempts,
	FeatureStaleness,
	FeatureDispute,
	FeaturePTPActive,
}

// FeatureVector is the 6-dimensional input to the linear model. All
// values are clamped into [0,1] except dispute/ptp_active, which are
// exactly 0 or 1.
type FeatureVector struct {
	Ageing    float64 `json:"ageing"`
	LogAmount float64 `json:"log_amount"`
	Attempts  float64 `json:"attempts"`
	Staleness float64 `json:"staleness"`
	Dispute   float64 `json:"dispute"`
	PTPActive float64 `json:"ptp_active"`
}

// ComputeFeatures derives the feature vector from case attributes and
// activity statistics. Pure function.
func ComputeFeatures(amount float64, ageingDays int, stats domain.ActivityStats) FeatureVector {
	v := FeatureVector{
		Ageing:    math.Min(float64(ageingDays)/120, 1),
		LogAmount: math.Log(1+amount) / 10,
		Attempts:  math.Min(float64(stats.AttemptsCount)/10, 1),
		Staleness: math.Min(float64(stats.DaysSinceLastUpdate)/14, 1),
	}
	if stats.HasDispute {
		v.Dispute = 1
	}
	if stats.PTPActive {
		v.PTPActive = 1
	}
	return v
}

func (v FeatureVector) value(name string) float64 {
	switch name {
	case FeatureAgeing:
		return v.Ageing
	case FeatureLogAmount:
		return v.LogAmount
	case FeatureAttempts:
		return v.Attempts
	case FeatureStaleness:
		return v.Staleness
	case FeatureDispute:
		return v.Dispute
	case FeaturePTPActive:
		return v.PTPActive
	}
	return 0
}

func (w Weights) value(name string) float64 {
	switch name {
	case FeatureAgeing:
		return w.Ageing
	case FeatureLogAmount:
		return w.LogAmount
	case FeatureAttempts:
		return w.Attempts
	case FeatureStaleness:
		return w.Staleness
	case FeatureDispute:
		return w.Dispute
	case FeaturePTPActive:
		return w.PTPActive
	}
	return 0
}

func (m ReasonMappings) value(name string) string {
	switch name {
	case FeatureAgeing:
		return m.Ageing
	case FeatureLogAmount:
		return m.LogAmount
	case FeatureAttempts:
		return m.Attempts
	case FeatureStaleness:
		return m.Staleness
	case FeatureDispute:
		return m.Dispute
	case FeaturePTPActive:
		return m.PTPActive
	}
	return ""
}
