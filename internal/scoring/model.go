package scoring

import (
	"encoding/json"
	"fmt"
	"os"
)

// Weights holds one coefficient per feature.
type Weights struct {
	Ageing    float64 `json:"ageing"`
	LogAmount float64 `json:"log_amount"`
	Attempts  float64 `json:"attempts"`
	Staleness float64 `json:"staleness"`
	Dispute   float64 `json:"dispute"`
	PTPActive float64 `json:"ptp_active"`
}

// ReasonMappings maps each feature to its operator-facing explanation.
type ReasonMappings struct {
	Ageing    string `json:"ageing"`
	LogAmount string `json:"log_amount"`
	Attempts  string `json:"attempts"`
	Staleness string `json:"staleness"`
	Dispute   string `json:"dispute"`
	PTPActive string `json:"ptp_active"`
}

// Model is the fixed, pre-computed linear model consumed at inference
// time. It is immutable configuration: nothing in this package trains or
// mutates it.
type Model struct {
	Bias           float64        `json:"bias"`
	Weights        Weights        `json:"weights"`
	ReasonMappings ReasonMappings `json:"reason_mappings"`
}

// DefaultModel returns the compiled-in artifact used when no model file
// is configured.
func DefaultModel() Model {
	return Model{
		Bias: -0.8,
		Weights: Weights{
			Ageing:    -1.6,
			LogAmount: 0.45,
			Attempts:  0.6,
			Staleness: -0.9,
			Dispute:   -1.4,
			PTPActive: 1.8,
		},
		ReasonMappings: ReasonMappings{
			Ageing:    "High ageing reduces recovery likelihood",
			LogAmount: "High amount increases priority",
			Attempts:  "Recent contact attempts made",
			Staleness: "Stale case needs immediate attention",
			Dispute:   "Active dispute reduces recovery",
			PTPActive: "Active PTP increases recovery",
		},
	}
}

// LoadModel reads a model artifact from disk, falling back to the
// compiled-in default when path is empty.
func LoadModel(path string) (Model, error) {
	if path == "" {
		return DefaultModel(), nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("read model artifact: %w", err)
	}
	var m Model
	if err := json.Unmarshal(contents, &m); err != nil {
		return Model{}, fmt.Errorf("parse model artifact: %w", err)
	}
	return m, nil
}
