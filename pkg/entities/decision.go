package entities

// TriggerReason names what caused an orchestrator run.
type TriggerReason string

const (
	TriggerManual                 TriggerReason = "manual"
	TriggerPerformanceDegradation TriggerReason = "performance_degradation"
	TriggerDrift                  TriggerReason = "drift"
	TriggerScheduled              TriggerReason = "scheduled"
)

// RetrainingDecision is the immutable audit record of one orchestrator run.
type RetrainingDecision struct {
	DecisionID          string                 `json:"decision_id"`
	TriggeredAt         int64                  `json:"triggered_at"`
	TriggerReason       TriggerReason          `json:"trigger_reason"`
	RetrainingPerformed bool                   `json:"retraining_performed"`
	CandidateVersionID  *string                `json:"candidate_version_id,omitempty"`
	Promoted            bool                   `json:"promoted"`
	ComparisonSummary   map[string]MetricDelta `json:"comparison_summary,omitempty"`
	Reason              string                 `json:"reason"`
	Requester           string                 `json:"requester,omitempty"`
}
