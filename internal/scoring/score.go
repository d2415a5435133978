package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/spec-kit/dca-case-service/internal/domain"
)

// Contribution records one feature's share of the linear combination.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Weight  float64 `json:"weight"`
	// Contribution is weight * value; reason codes rank by its absolute
	// magnitude.
	Contribution float64 `json:"contribution"`
}

// Trace is the full calculation breakdown returned to callers. It is a
// projection of the scoring steps, never computed separately.
type Trace struct {
	Features        FeatureVector  `json:"features"`
	Contributions   []Contribution `json:"contributions"`
	Z               float64        `json:"z"`
	Formula         string         `json:"formula"`
	PriorityFormula string         `json:"priority_formula"`
}

// Result is the output of one scoring pass.
type Result struct {
	RecoveryProb30d float64  `json:"recovery_prob_30d"`
	PriorityScore   float64  `json:"priority_score"`
	ReasonCodes     []string `json:"reason_codes"`
	Trace           Trace    `json:"trace"`
}

// Sigmoid maps any finite z into the open interval (0,1).
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Score runs the model over a case's attributes and activity statistics.
// Pure function of its inputs: same inputs, same result.
func Score(m Model, amount float64, ageingDays int, stats domain.ActivityStats) Result {
	features := ComputeFeatures(amount, ageingDays, stats)

	contributions := make([]Contribution, 0, len(featureOrder))
	z := m.Bias
	for _, name := range featureOrder {
		c := Contribution{
			Feature:      name,
			Value:        features.value(name),
			Weight:       m.Weights.value(name),
			Contribution: m.Weights.value(name) * features.value(name),
		}
		z += c.Contribution
		contributions = append(contributions, c)
	}

	prob := Sigmoid(z)
	priority := amount*prob - 0.3*float64(ageingDays) - 0.2*float64(stats.DaysSinceLastUpdate)

	return Result{
		RecoveryProb30d: prob,
		PriorityScore:   priority,
		ReasonCodes:     reasonCodes(m, contributions),
		Trace: Trace{
			Features:      features,
			Contributions: contributions,
			Z:             z,
			Formula:       formula(m.Bias, contributions),
			PriorityFormula: fmt.Sprintf("%v * %.4f - 0.3 * %d - 0.2 * %d",
				amount, prob, ageingDays, stats.DaysSinceLastUpdate),
		},
	}
}

// reasonCodes maps the top 3 features by absolute contribution to their
// explanation strings. The sort is stable so ties keep the fixed feature
// order.
func reasonCodes(m Model, contributions []Contribution) []string {
	ranked := append([]Contribution{}, contributions...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Contribution) > math.Abs(ranked[j].Contribution)
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	codes := make([]string, 0, len(ranked))
	for _, c := range ranked {
		codes = append(codes, m.ReasonMappings.value(c.Feature))
	}
	return codes
}

func formula(bias float64, contributions []Contribution) string {
	s := fmt.Sprintf("sigmoid(%v", bias)
	for _, c := range contributions {
		s += fmt.Sprintf(" + %.3f", c.Contribution)
	}
	return s + ")"
}
