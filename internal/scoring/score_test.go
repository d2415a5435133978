package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

func scenarioModel() Model {
	return Model{
		Bias: -1,
		Weights: Weights{
			Ageing:    1,
			LogAmount: 1,
			Attempts:  0.5,
			Staleness: 0.2,
			Dispute:   -2,
			PTPActive: 1.5,
		},
		ReasonMappings: ReasonMappings{
			Ageing:    "ageing",
			LogAmount: "log_amount",
			Attempts:  "attempts",
			Staleness: "staleness",
			Dispute:   "dispute",
			PTPActive: "ptp_active",
		},
	}
}

func TestComputeFeatures(t *testing.T) {
	stats := domain.ActivityStats{AttemptsCount: 2, DaysSinceLastUpdate: 5}
	v := ComputeFeatures(100000, 45, stats)

	assert.InDelta(t, 0.375, v.Ageing, 1e-9)
	assert.InDelta(t, 1.1513, v.LogAmount, 1e-3)
	assert.InDelta(t, 0.2, v.Attempts, 1e-9)
	assert.InDelta(t, 0.3571, v.Staleness, 1e-3)
	assert.Equal(t, 0.0, v.Dispute)
	assert.Equal(t, 0.0, v.PTPActive)
}

func TestComputeFeaturesClamping(t *testing.T) {
	stats := domain.ActivityStats{AttemptsCount: 50, DaysSinceLastUpdate: domain.DaysSinceLastUpdateNever, HasDispute: true, PTPActive: true}
	v := ComputeFeatures(1, 600, stats)

	assert.Equal(t, 1.0, v.Ageing)
	assert.Equal(t, 1.0, v.Attempts)
	assert.Equal(t, 1.0, v.Staleness, "999-day sentinel saturates staleness")
	assert.Equal(t, 1.0, v.Dispute)
	assert.Equal(t, 1.0, v.PTPActive)
}

func TestScoreScenario(t *testing.T) {
	stats := domain.ActivityStats{AttemptsCount: 2, DaysSinceLastUpdate: 5}
	result := Score(scenarioModel(), 100000, 45, stats)

	assert.InDelta(t, 0.6977, result.Trace.Z, 1e-3)
	assert.InDelta(t, 0.6676, result.RecoveryProb30d, 1e-3)
	// priority = amount*prob - 0.3*ageing - 0.2*staleness_days
	expected := 100000*result.RecoveryProb30d - 0.3*45 - 0.2*5
	assert.InDelta(t, expected, result.PriorityScore, 1e-9)
	assert.InDelta(t, 66745.5, result.PriorityScore, 25)
}

func TestScoreReasonCodesRankedByAbsoluteContribution(t *testing.T) {
	stats := domain.ActivityStats{AttemptsCount: 2, DaysSinceLastUpdate: 5}
	result := Score(scenarioModel(), 100000, 45, stats)

	// contributions: ageing 0.375, log_amount 1.1513, attempts 0.1,
	// staleness 0.0714, dispute 0, ptp_active 0
	assert.Equal(t, []string{"log_amount", "ageing", "attempts"}, result.ReasonCodes)
}

func TestScoreReasonCodesNegativeContributionsCount(t *testing.T) {
	stats := domain.ActivityStats{HasDispute: true, DaysSinceLastUpdate: domain.DaysSinceLastUpdateNever}
	result := Score(scenarioModel(), 0, 0, stats)

	// |dispute| = 2 dominates, then staleness 0.2; everything else is 0
	// and ties resolve in fixed feature order.
	require.Len(t, result.ReasonCodes, 3)
	assert.Equal(t, "dispute", result.ReasonCodes[0])
	assert.Equal(t, "staleness", result.ReasonCodes[1])
	assert.Equal(t, "ageing", result.ReasonCodes[2])
}

func TestScoreTieOrderIsStable(t *testing.T) {
	m := scenarioModel()
	m.Weights = Weights{}
	m.Bias = 0
	result := Score(m, 100, 10, domain.ActivityStats{DaysSinceLastUpdate: 5})

	// all contributions are exactly 0; the fixed feature order wins
	assert.Equal(t, []string{"ageing", "log_amount", "attempts"}, result.ReasonCodes)
}

func TestSigmoidBounds(t *testing.T) {
	for _, z := range []float64{-50, -5, 0, 5, 50} {
		p := Sigmoid(z)
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
}

func TestScoreIsPure(t *testing.T) {
	stats := domain.ActivityStats{AttemptsCount: 3, DaysSinceLastUpdate: 9, PTPActive: true}
	first := Score(scenarioModel(), 2500, 80, stats)
	second := Score(scenarioModel(), 2500, 80, stats)

	assert.Equal(t, first.RecoveryProb30d, second.RecoveryProb30d)
	assert.Equal(t, first.PriorityScore, second.PriorityScore)
	assert.Equal(t, first.ReasonCodes, second.ReasonCodes)
}

func TestPriorityScoreCanGoNegative(t *testing.T) {
	stats := domain.ActivityStats{DaysSinceLastUpdate: domain.DaysSinceLastUpdateNever}
	result := Score(scenarioModel(), 1, 400, stats)
	assert.Less(t, result.PriorityScore, 0.0)
}

func TestDefaultModelLoadsWhenPathEmpty(t *testing.T) {
	m, err := LoadModel("")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel(), m)
	assert.False(t, math.IsNaN(Score(m, 1000, 10, domain.ActivityStats{DaysSinceLastUpdate: 1}).RecoveryProb30d))
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel("testdata/does-not-exist.json")
	assert.Error(t, err)
}
