package store

import (
	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
)

// StateTransition is one version's state flip inside an atomic registry
// update. StampArchived records archived_at alongside the flip.
type StateTransition struct {
	VersionID     string
	ToState       entities.ModelState
	ChangedAt     int64
	StampArchived bool
}

type RegistryStore interface {
	// CreateVersion fails with DuplicateVersionError when the id exists.
	CreateVersion(v *entities.ModelVersion) *contract.Error
	// GetVersion fails with NotFoundError when the id is unknown.
	GetVersion(versionID string) (*entities.ModelVersion, *contract.Error)
	// ListVersions returns versions newest-first, optionally filtered by state.
	ListVersions(state *entities.ModelState) ([]*entities.ModelVersion, *contract.Error)
	// LatestVersion returns the newest version by creation time, or nil.
	LatestVersion() (*entities.ModelVersion, *contract.Error)
	// FindByState returns the single version in the given state, or nil.
	FindByState(state entities.ModelState) (*entities.ModelVersion, *contract.Error)
	// LatestArchived returns the most recently archived version, or nil.
	LatestArchived() (*entities.ModelVersion, *contract.Error)
	// ApplyTransitions commits all transitions in one transaction; on any
	// failure no row is changed.
	ApplyTransitions(transitions []StateTransition) *contract.Error
	DeleteVersion(versionID string) *contract.Error
	CountsByState() (map[entities.ModelState]int, *contract.Error)
}

type PredictionStore interface {
	InsertPrediction(p *entities.PredictionLogEntry) *contract.Error
	GetPrediction(predictionID string) (*entities.PredictionLogEntry, *contract.Error)
	// SetOutcome writes the outcome once; it fails with AlreadyRecordedError
	// when an outcome exists and NotFoundError when the id is unknown.
	SetOutcome(predictionID, outcome string, updatedAt int64) *contract.Error
	// LabeledPredictions returns outcome-labeled entries created at or after
	// since, optionally restricted to one model version.
	LabeledPredictions(since int64, modelVersionID string) ([]*entities.PredictionLogEntry, *contract.Error)
}

type ReportStore interface {
	InsertDriftReport(r *entities.DriftReport) *contract.Error
	DriftReports(modelVersionID string, since int64) ([]*entities.DriftReport, *contract.Error)
	InsertDecision(d *entities.RetrainingDecision) *contract.Error
	// Decisions returns the newest limit decision records.
	Decisions(limit int) ([]*entities.RetrainingDecision, *contract.Error)
}

// Store is the full persistence surface of the control plane.
type Store interface {
	RegistryStore
	PredictionStore
	ReportStore
}
