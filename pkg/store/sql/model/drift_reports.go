package model

import "github.com/modelplane/modelplane/pkg/entities"

// DriftReport mapped from table <drift_reports>
type DriftReport struct {
	ReportID             string          `db:"report_id"              gorm:"column:report_id;primaryKey"`
	ModelVersionID       string          `db:"model_version_id"       gorm:"column:model_version_id;index"`
	GeneratedTime        int64           `db:"generated_time"         gorm:"column:generated_time;index"`
	PerFeatureScores     FeatureDriftMap `db:"per_feature_scores"     gorm:"column:per_feature_scores;type:text"`
	SkippedFeatures      StringMap       `db:"skipped_features"       gorm:"column:skipped_features;type:text"`
	AnalyzedFeatureCount int             `db:"analyzed_feature_count" gorm:"column:analyzed_feature_count"`
	DriftedFeatureCount  int             `db:"drifted_feature_count"  gorm:"column:drifted_feature_count"`
	OverallDriftDetected bool            `db:"overall_drift_detected" gorm:"column:overall_drift_detected"`
	DriftFraction        float64         `db:"drift_fraction"         gorm:"column:drift_fraction"`
}

func (DriftReport) TableName() string { return "drift_reports" }

func (r *DriftReport) ToEntity() *entities.DriftReport {
	return &entities.DriftReport{
		ReportID:             r.ReportID,
		ModelVersionID:       r.ModelVersionID,
		GeneratedAt:          r.GeneratedTime,
		PerFeatureScores:     r.PerFeatureScores,
		SkippedFeatures:      r.SkippedFeatures,
		AnalyzedFeatureCount: r.AnalyzedFeatureCount,
		DriftedFeatureCount:  r.DriftedFeatureCount,
		OverallDriftDetected: r.OverallDriftDetected,
		DriftFraction:        r.DriftFraction,
	}
}

func NewDriftReportFromEntity(e *entities.DriftReport) *DriftReport {
	return &DriftReport{
		ReportID:             e.ReportID,
		ModelVersionID:       e.ModelVersionID,
		GeneratedTime:        e.GeneratedAt,
		PerFeatureScores:     e.PerFeatureScores,
		SkippedFeatures:      e.SkippedFeatures,
		AnalyzedFeatureCount: e.AnalyzedFeatureCount,
		DriftedFeatureCount:  e.DriftedFeatureCount,
		OverallDriftDetected: e.OverallDriftDetected,
		DriftFraction:        e.DriftFraction,
	}
}
