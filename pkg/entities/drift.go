package entities

// PSI severity thresholds, by domain convention.
const (
	PSIModerateShift    = 0.1
	PSISignificantShift = 0.25
)

// FeatureDrift holds the per-feature test results of one drift comparison.
type FeatureDrift struct {
	Statistic                float64 `json:"statistic"`
	PValue                   float64 `json:"p_value"`
	PopulationStabilityIndex float64 `json:"population_stability_index"`
	Drifted                  bool    `json:"drifted"`
}

// DriftReport is one immutable comparison run between a reference feature
// sample and a recent production sample.
type DriftReport struct {
	ReportID             string                  `json:"report_id"`
	ModelVersionID       string                  `json:"model_version_id"`
	GeneratedAt          int64                   `json:"generated_at"`
	PerFeatureScores     map[string]FeatureDrift `json:"per_feature_scores"`
	SkippedFeatures      map[string]string       `json:"skipped_features,omitempty"`
	AnalyzedFeatureCount int                     `json:"analyzed_feature_count"`
	DriftedFeatureCount  int                     `json:"drifted_feature_count"`
	OverallDriftDetected bool                    `json:"overall_drift_detected"`
	DriftFraction        float64                 `json:"drift_fraction"`
}
