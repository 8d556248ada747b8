package entities

// PredictionLogEntry is one served prediction. Entries are append-only:
// the only permitted mutation is filling in ActualOutcome exactly once.
type PredictionLogEntry struct {
	PredictionID     string             `json:"prediction_id"`
	ModelVersionID   string             `json:"model_version_id"`
	Features         map[string]float64 `json:"features"`
	Prediction       string             `json:"prediction"`
	Probability      float64            `json:"probability"`
	Confidence       float64            `json:"confidence"`
	ActualOutcome    *string            `json:"actual_outcome,omitempty"`
	CreatedAt        int64              `json:"created_at"`
	OutcomeUpdatedAt *int64             `json:"outcome_updated_at,omitempty"`
}

// Correct reports whether the recorded outcome matches the prediction.
// It is false for unlabeled entries.
func (p *PredictionLogEntry) Correct() bool {
	return p.ActualOutcome != nil && *p.ActualOutcome == p.Prediction
}
