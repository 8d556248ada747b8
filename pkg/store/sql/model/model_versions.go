package model

import "github.com/modelplane/modelplane/pkg/entities"

// ModelVersion mapped from table <model_versions>
type ModelVersion struct {
	VersionID        string    `db:"version_id"        gorm:"column:version_id;primaryKey"`
	ModelType        string    `db:"model_type"        gorm:"column:model_type"`
	ArtifactLocation string    `db:"artifact_location" gorm:"column:artifact_location"`
	Metrics          MetricMap `db:"metrics"           gorm:"column:metrics;type:text"`
	Metadata         StringMap `db:"metadata"          gorm:"column:metadata;type:text"`
	State            string    `db:"state"             gorm:"column:state;index"`
	CreationTime     int64     `db:"creation_time"     gorm:"column:creation_time;index"`
	StateChangedTime int64     `db:"state_changed_time" gorm:"column:state_changed_time"`
	ArchivedTime     int64     `db:"archived_time"     gorm:"column:archived_time"`
}

func (ModelVersion) TableName() string { return "model_versions" }

func (m *ModelVersion) ToEntity() *entities.ModelVersion {
	return &entities.ModelVersion{
		VersionID:        m.VersionID,
		ModelType:        entities.ModelType(m.ModelType),
		ArtifactLocation: m.ArtifactLocation,
		Metrics:          m.Metrics,
		Metadata:         m.Metadata,
		State:            entities.ModelState(m.State),
		CreatedAt:        m.CreationTime,
		StateChangedAt:   m.StateChangedTime,
		ArchivedAt:       m.ArchivedTime,
	}
}

func NewModelVersionFromEntity(e *entities.ModelVersion) *ModelVersion {
	return &ModelVersion{
		VersionID:        e.VersionID,
		ModelType:        string(e.ModelType),
		ArtifactLocation: e.ArtifactLocation,
		Metrics:          e.Metrics,
		Metadata:         e.Metadata,
		State:            string(e.State),
		CreationTime:     e.CreatedAt,
		StateChangedTime: e.StateChangedAt,
		ArchivedTime:     e.ArchivedAt,
	}
}
