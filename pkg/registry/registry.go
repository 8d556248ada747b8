package registry

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/artifact"
	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/store"
)

// Registry is the authoritative catalog of model versions. It is the only
// component allowed to change a version's lifecycle state, and it serializes
// every promotion so that at most one version is in production and at most
// one in staging at any time.
type Registry struct {
	store     store.RegistryStore
	artifacts artifact.Store
	logger    *logrus.Logger

	// Guards read-current-state/write-new-state sequences.
	mu sync.Mutex
}

func New(s store.RegistryStore, artifacts artifact.Store, logger *logrus.Logger) *Registry {
	return &Registry{store: s, artifacts: artifacts, logger: logger}
}

func now() int64 {
	return time.Now().UnixMilli()
}

// Register catalogs a new trained artifact. The version starts its life in
// the registered state.
func (r *Registry) Register(
	versionID string,
	modelType entities.ModelType,
	artifactLocation string,
	metrics map[string]float64,
	metadata map[string]string,
) (*entities.ModelVersion, *contract.Error) {
	if versionID == "" {
		return nil, contract.NewError(contract.ErrorCodeValidation, "version_id must not be empty")
	}
	if err := artifact.ValidLocation(artifactLocation); err != nil {
		return nil, contract.NewError(contract.ErrorCodeValidation, "invalid artifact location: %v", err)
	}
	if modelType != "" && !validModelType(modelType) {
		return nil, contract.NewError(contract.ErrorCodeValidation, "unknown model type %q", modelType)
	}

	ts := now()
	version := &entities.ModelVersion{
		VersionID:        versionID,
		ModelType:        modelType,
		ArtifactLocation: artifactLocation,
		Metrics:          metrics,
		Metadata:         metadata,
		State:            entities.ModelStateRegistered,
		CreatedAt:        ts,
		StateChangedAt:   ts,
	}

	if err := r.store.CreateVersion(version); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"version_id": versionID,
		"model_type": modelType,
	}).Info("registered model version")

	return version, nil
}

func validModelType(t entities.ModelType) bool {
	switch t {
	case entities.ModelTypeTreeEnsemble, entities.ModelTypeGradientBoosted,
		entities.ModelTypeNeuralNet, entities.ModelTypeEnsemble:
		return true
	}
	return false
}

func (r *Registry) Get(versionID string) (*entities.ModelVersion, *contract.Error) {
	return r.store.GetVersion(versionID)
}

// PromoteToStaging moves a registered version to staging, demoting any
// current staging version back to registered. Calling it on a version that
// is already staging is a no-op.
func (r *Registry) PromoteToStaging(versionID string) (*entities.ModelVersion, *contract.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.store.GetVersion(versionID)
	if err != nil {
		return nil, err
	}
	if target.State == entities.ModelStateStaging {
		return target, nil
	}
	if target.State != entities.ModelStateRegistered {
		return nil, contract.NewError(contract.ErrorCodeValidation,
			"cannot promote version %q from state %q to staging", versionID, target.State)
	}

	current, err := r.store.FindByState(entities.ModelStateStaging)
	if err != nil {
		return nil, err
	}

	ts := now()
	transitions := make([]store.StateTransition, 0, 2)
	if current != nil {
		transitions = append(transitions, store.StateTransition{
			VersionID: current.VersionID,
			ToState:   entities.ModelStateRegistered,
			ChangedAt: ts,
		})
	}
	transitions = append(transitions, store.StateTransition{
		VersionID: versionID,
		ToState:   entities.ModelStateStaging,
		ChangedAt: ts,
	})

	if err := r.store.ApplyTransitions(transitions); err != nil {
		return nil, err
	}

	r.logger.WithField("version_id", versionID).Info("promoted model version to staging")

	target.State = entities.ModelStateStaging
	target.StateChangedAt = ts
	return target, nil
}

// PromoteToProduction moves a staging version to production, archiving the
// current production version. Rollback is the only other way a version
// enters production.
func (r *Registry) PromoteToProduction(versionID string) (*entities.ModelVersion, *contract.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.store.GetVersion(versionID)
	if err != nil {
		return nil, err
	}
	if target.State == entities.ModelStateProduction {
		return target, nil
	}
	if target.State != entities.ModelStateStaging {
		return nil, contract.NewError(contract.ErrorCodeValidation,
			"cannot promote version %q from state %q to production", versionID, target.State)
	}

	current, err := r.store.FindByState(entities.ModelStateProduction)
	if err != nil {
		return nil, err
	}

	ts := now()
	transitions := make([]store.StateTransition, 0, 2)
	if current != nil {
		transitions = append(transitions, store.StateTransition{
			VersionID:     current.VersionID,
			ToState:       entities.ModelStateArchived,
			ChangedAt:     ts,
			StampArchived: true,
		})
	}
	transitions = append(transitions, store.StateTransition{
		VersionID: versionID,
		ToState:   entities.ModelStateProduction,
		ChangedAt: ts,
	})

	if err := r.store.ApplyTransitions(transitions); err != nil {
		return nil, err
	}

	r.logger.WithField("version_id", versionID).Info("promoted model version to production")

	target.State = entities.ModelStateProduction
	target.StateChangedAt = ts
	return target, nil
}

// Rollback restores the most recently archived version to production. The
// displaced production version is demoted to registered rather than
// archived, so repeated rollbacks cannot ping-pong between two versions.
func (r *Registry) Rollback() (string, *contract.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	restore, err := r.store.LatestArchived()
	if err != nil {
		return "", err
	}
	if restore == nil {
		return "", contract.NewError(contract.ErrorCodeNoRollbackTarget, "no archived version available to roll back to")
	}

	current, err := r.store.FindByState(entities.ModelStateProduction)
	if err != nil {
		return "", err
	}

	ts := now()
	transitions := make([]store.StateTransition, 0, 2)
	if current != nil {
		transitions = append(transitions, store.StateTransition{
			VersionID: current.VersionID,
			ToState:   entities.ModelStateRegistered,
			ChangedAt: ts,
		})
	}
	transitions = append(transitions, store.StateTransition{
		VersionID: restore.VersionID,
		ToState:   entities.ModelStateProduction,
		ChangedAt: ts,
	})

	if err := r.store.ApplyTransitions(transitions); err != nil {
		return "", err
	}

	r.logger.WithFields(logrus.Fields{
		"restored_version_id": restore.VersionID,
	}).Warn("rolled back production model version")

	return restore.VersionID, nil
}

func (r *Registry) GetProduction() (*entities.ModelVersion, *contract.Error) {
	return r.findOne(entities.ModelStateProduction)
}

func (r *Registry) GetStaging() (*entities.ModelVersion, *contract.Error) {
	return r.findOne(entities.ModelStateStaging)
}

func (r *Registry) findOne(state entities.ModelState) (*entities.ModelVersion, *contract.Error) {
	v, err := r.store.FindByState(state)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, contract.NewError(contract.ErrorCodeNotFound, "no model version in state %q", state)
	}
	return v, nil
}

func (r *Registry) GetLatest() (*entities.ModelVersion, *contract.Error) {
	v, err := r.store.LatestVersion()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, contract.NewError(contract.ErrorCodeNotFound, "no model versions registered")
	}
	return v, nil
}

func (r *Registry) List(state *entities.ModelState) ([]*entities.ModelVersion, *contract.Error) {
	if state != nil && !state.Valid() {
		return nil, contract.NewError(contract.ErrorCodeValidation, "unknown state filter %q", *state)
	}
	return r.store.ListVersions(state)
}

func (r *Registry) Summary() (*entities.RegistrySummary, *contract.Error) {
	counts, err := r.store.CountsByState()
	if err != nil {
		return nil, err
	}

	summary := &entities.RegistrySummary{CountsByState: counts}
	for _, count := range counts {
		summary.TotalVersions += count
	}

	if production, err := r.store.FindByState(entities.ModelStateProduction); err != nil {
		return nil, err
	} else if production != nil {
		summary.ProductionVersionID = production.VersionID
	}
	if staging, err := r.store.FindByState(entities.ModelStateStaging); err != nil {
		return nil, err
	} else if staging != nil {
		summary.StagingVersionID = staging.VersionID
	}

	return summary, nil
}

// Delete removes a version from the catalog. Production and staging
// versions are protected.
func (r *Registry) Delete(versionID string, purgeArtifact bool) *contract.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	version, err := r.store.GetVersion(versionID)
	if err != nil {
		return err
	}
	if version.State == entities.ModelStateProduction || version.State == entities.ModelStateStaging {
		return contract.NewError(contract.ErrorCodeProtectedVersion,
			"version %q is in state %q and cannot be deleted", versionID, version.State)
	}

	if err := r.store.DeleteVersion(versionID); err != nil {
		return err
	}

	if purgeArtifact {
		if err := r.artifacts.Delete(version.ArtifactLocation); err != nil {
			return err
		}
	}

	r.logger.WithField("version_id", versionID).Info("deleted model version")
	return nil
}

// Compare evaluates version B against version A over every metric present
// on both.
func (r *Registry) Compare(versionA, versionB string) (*entities.ComparisonResult, *contract.Error) {
	a, err := r.store.GetVersion(versionA)
	if err != nil {
		return nil, err
	}
	b, err := r.store.GetVersion(versionB)
	if err != nil {
		return nil, err
	}

	return &entities.ComparisonResult{
		VersionA: versionA,
		VersionB: versionB,
		Metrics:  CompareMetrics(a.Metrics, b.Metrics),
	}, nil
}

// CompareMetrics computes per-metric deltas of b over a for every metric
// present in both mappings. Higher is better for every metric except
// loss-style ones; a tie never counts as an improvement.
func CompareMetrics(a, b map[string]float64) map[string]entities.MetricDelta {
	deltas := make(map[string]entities.MetricDelta)
	for name, valueA := range a {
		valueB, ok := b[name]
		if !ok {
			continue
		}

		difference := valueB - valueA
		percent := 0.0
		if valueA != 0 {
			percent = difference / math.Abs(valueA) * 100
		}

		improved := difference > 0
		if LowerIsBetter(name) {
			improved = difference < 0
		}

		deltas[name] = entities.MetricDelta{
			ValueA:        valueA,
			ValueB:        valueB,
			Difference:    difference,
			PercentChange: percent,
			Improved:      improved,
		}
	}
	return deltas
}

// LowerIsBetter reports whether a smaller value of the named metric is an
// improvement.
func LowerIsBetter(metric string) bool {
	name := strings.ToLower(metric)
	return strings.Contains(name, "loss") || name == "brier_score"
}
