package entities

// ModelState is the lifecycle state of a model version. The registry is the
// only component allowed to change it.
type ModelState string

const (
	ModelStateRegistered ModelState = "registered"
	ModelStateStaging    ModelState = "staging"
	ModelStateProduction ModelState = "production"
	ModelStateArchived   ModelState = "archived"
)

func (s ModelState) Valid() bool {
	switch s {
	case ModelStateRegistered, ModelStateStaging, ModelStateProduction, ModelStateArchived:
		return true
	}
	return false
}

// ModelType names the family of the trained artifact.
type ModelType string

const (
	ModelTypeTreeEnsemble    ModelType = "tree_ensemble"
	ModelTypeGradientBoosted ModelType = "gradient_boosted"
	ModelTypeNeuralNet       ModelType = "neural_net"
	ModelTypeEnsemble        ModelType = "ensemble"
)

// ModelVersion identifies one trained artifact and its lifecycle state.
// Timestamps are epoch milliseconds.
type ModelVersion struct {
	VersionID        string             `json:"version_id"`
	ModelType        ModelType          `json:"model_type"`
	ArtifactLocation string             `json:"artifact_location"`
	Metrics          map[string]float64 `json:"metrics"`
	Metadata         map[string]string  `json:"metadata"`
	State            ModelState         `json:"state"`
	CreatedAt        int64              `json:"created_at"`
	StateChangedAt   int64              `json:"state_changed_at"`
	ArchivedAt       int64              `json:"archived_at,omitempty"`
}

// MetricDelta is the per-metric comparison between two versions.
type MetricDelta struct {
	ValueA        float64 `json:"value_a"`
	ValueB        float64 `json:"value_b"`
	Difference    float64 `json:"difference"`
	PercentChange float64 `json:"percent_change"`
	Improved      bool    `json:"improved"`
}

// ComparisonResult compares version B against version A for every metric
// present on both.
type ComparisonResult struct {
	VersionA string                 `json:"version_a"`
	VersionB string                 `json:"version_b"`
	Metrics  map[string]MetricDelta `json:"metrics"`
}

// RegistrySummary is the aggregate view over all versions.
type RegistrySummary struct {
	TotalVersions       int                `json:"total_versions"`
	ProductionVersionID string             `json:"production_version_id,omitempty"`
	StagingVersionID    string             `json:"staging_version_id,omitempty"`
	CountsByState       map[ModelState]int `json:"counts_by_state"`
}
