package model

import "github.com/modelplane/modelplane/pkg/entities"

// RetrainingDecision mapped from table <retraining_decisions>
type RetrainingDecision struct {
	DecisionID          string   `db:"decision_id"          gorm:"column:decision_id;primaryKey"`
	TriggeredTime       int64    `db:"triggered_time"       gorm:"column:triggered_time;index"`
	TriggerReason       string   `db:"trigger_reason"       gorm:"column:trigger_reason"`
	RetrainingPerformed bool     `db:"retraining_performed" gorm:"column:retraining_performed"`
	CandidateVersionID  *string  `db:"candidate_version_id" gorm:"column:candidate_version_id"`
	Promoted            bool     `db:"promoted"             gorm:"column:promoted"`
	ComparisonSummary   DeltaMap `db:"comparison_summary"   gorm:"column:comparison_summary;type:text"`
	Reason              string   `db:"reason"               gorm:"column:reason"`
	Requester           string   `db:"requester"            gorm:"column:requester"`
}

func (RetrainingDecision) TableName() string { return "retraining_decisions" }

func (d *RetrainingDecision) ToEntity() *entities.RetrainingDecision {
	return &entities.RetrainingDecision{
		DecisionID:          d.DecisionID,
		TriggeredAt:         d.TriggeredTime,
		TriggerReason:       entities.TriggerReason(d.TriggerReason),
		RetrainingPerformed: d.RetrainingPerformed,
		CandidateVersionID:  d.CandidateVersionID,
		Promoted:            d.Promoted,
		ComparisonSummary:   d.ComparisonSummary,
		Reason:              d.Reason,
		Requester:           d.Requester,
	}
}

func NewRetrainingDecisionFromEntity(e *entities.RetrainingDecision) *RetrainingDecision {
	return &RetrainingDecision{
		DecisionID:          e.DecisionID,
		TriggeredTime:       e.TriggeredAt,
		TriggerReason:       string(e.TriggerReason),
		RetrainingPerformed: e.RetrainingPerformed,
		CandidateVersionID:  e.CandidateVersionID,
		Promoted:            e.Promoted,
		ComparisonSummary:   e.ComparisonSummary,
		Reason:              e.Reason,
		Requester:           e.Requester,
	}
}
