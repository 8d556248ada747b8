package model

import "github.com/modelplane/modelplane/pkg/entities"

// Prediction mapped from table <predictions>
type Prediction struct {
	PredictionID       string    `db:"prediction_id"        gorm:"column:prediction_id;primaryKey"`
	ModelVersionID     string    `db:"model_version_id"     gorm:"column:model_version_id;index"`
	Features           MetricMap `db:"features"             gorm:"column:features;type:text"`
	Prediction         string    `db:"prediction"           gorm:"column:prediction"`
	Probability        float64   `db:"probability"          gorm:"column:probability"`
	Confidence         float64   `db:"confidence"           gorm:"column:confidence"`
	ActualOutcome      *string   `db:"actual_outcome"       gorm:"column:actual_outcome"`
	CreationTime       int64     `db:"creation_time"        gorm:"column:creation_time;index"`
	OutcomeUpdatedTime *int64    `db:"outcome_updated_time" gorm:"column:outcome_updated_time"`
}

func (Prediction) TableName() string { return "predictions" }

func (p *Prediction) ToEntity() *entities.PredictionLogEntry {
	return &entities.PredictionLogEntry{
		PredictionID:     p.PredictionID,
		ModelVersionID:   p.ModelVersionID,
		Features:         p.Features,
		Prediction:       p.Prediction,
		Probability:      p.Probability,
		Confidence:       p.Confidence,
		ActualOutcome:    p.ActualOutcome,
		CreatedAt:        p.CreationTime,
		OutcomeUpdatedAt: p.OutcomeUpdatedTime,
	}
}

func NewPredictionFromEntity(e *entities.PredictionLogEntry) *Prediction {
	return &Prediction{
		PredictionID:       e.PredictionID,
		ModelVersionID:     e.ModelVersionID,
		Features:           e.Features,
		Prediction:         e.Prediction,
		Probability:        e.Probability,
		Confidence:         e.Confidence,
		ActualOutcome:      e.ActualOutcome,
		CreationTime:       e.CreatedAt,
		OutcomeUpdatedTime: e.OutcomeUpdatedAt,
	}
}
