package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelplane/modelplane/pkg/artifact"
	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/registry"
	"github.com/modelplane/modelplane/pkg/store/sql"
	"github.com/modelplane/modelplane/pkg/utils"
)

func newRegistry(t *testing.T) (*registry.Registry, *artifact.FileStore) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store, err := sql.NewSQLStore(logger, "file:"+filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)

	artifacts, cErr := artifact.NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	require.Nil(t, cErr)

	return registry.New(store, artifacts, logger), artifacts
}

func register(t *testing.T, reg *registry.Registry, versionID string, metrics map[string]float64) {
	t.Helper()
	_, err := reg.Register(versionID, entities.ModelTypeGradientBoosted, "loc-"+versionID, metrics, nil)
	require.Nil(t, err)
}

// promote walks a registered version through staging into production.
func promote(t *testing.T, reg *registry.Registry, versionID string) {
	t.Helper()
	_, err := reg.PromoteToStaging(versionID)
	require.Nil(t, err)
	_, err = reg.PromoteToProduction(versionID)
	require.Nil(t, err)
}

func TestRegisterRoundTrip(t *testing.T) {
	reg, _ := newRegistry(t)

	metrics := map[string]float64{"accuracy": 0.91, "f1_score": 0.88}
	metadata := map[string]string{"trained_on": "snapshot-42"}
	_, err := reg.Register("v1", entities.ModelTypeTreeEnsemble, "abc123", metrics, metadata)
	require.Nil(t, err)

	got, err := reg.Get("v1")
	require.Nil(t, err)
	assert.Equal(t, "abc123", got.ArtifactLocation)
	assert.Equal(t, metrics, got.Metrics)
	assert.Equal(t, metadata, got.Metadata)
	assert.Equal(t, entities.ModelStateRegistered, got.State)
	assert.NotZero(t, got.CreatedAt)
}

func TestRegisterDuplicateVersion(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)

	_, err := reg.Register("v1", entities.ModelTypeTreeEnsemble, "other", nil, nil)
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeDuplicateVersion, err.Code)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	reg, _ := newRegistry(t)

	scenarios := []struct {
		name      string
		versionID string
		modelType entities.ModelType
		location  string
	}{
		{name: "empty version id", versionID: "", modelType: entities.ModelTypeNeuralNet, location: "loc"},
		{name: "empty artifact location", versionID: "v1", modelType: entities.ModelTypeNeuralNet, location: ""},
		{name: "unknown model type", versionID: "v1", modelType: "quantum", location: "loc"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			_, err := reg.Register(scenario.versionID, scenario.modelType, scenario.location, nil, nil)
			require.NotNil(t, err)
			assert.Equal(t, contract.ErrorCodeValidation, err.Code)
		})
	}
}

func TestPromoteToStagingIsIdempotent(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)

	first, err := reg.PromoteToStaging("v1")
	require.Nil(t, err)
	second, err := reg.PromoteToStaging("v1")
	require.Nil(t, err)

	assert.Equal(t, first.State, second.State)

	staging, err := reg.GetStaging()
	require.Nil(t, err)
	assert.Equal(t, "v1", staging.VersionID)

	versions, err := reg.List(utils.PtrTo(entities.ModelStateStaging))
	require.Nil(t, err)
	assert.Len(t, versions, 1)
}

func TestStagingUniqueness(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)
	register(t, reg, "v2", nil)

	_, err := reg.PromoteToStaging("v1")
	require.Nil(t, err)
	_, err = reg.PromoteToStaging("v2")
	require.Nil(t, err)

	staging, err := reg.GetStaging()
	require.Nil(t, err)
	assert.Equal(t, "v2", staging.VersionID)

	demoted, err := reg.Get("v1")
	require.Nil(t, err)
	assert.Equal(t, entities.ModelStateRegistered, demoted.State)
}

func TestProductionUniquenessAndArchival(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)
	register(t, reg, "v2", nil)

	promote(t, reg, "v1")
	promote(t, reg, "v2")

	production, err := reg.GetProduction()
	require.Nil(t, err)
	assert.Equal(t, "v2", production.VersionID)

	archived, err := reg.Get("v1")
	require.Nil(t, err)
	assert.Equal(t, entities.ModelStateArchived, archived.State)
	assert.NotZero(t, archived.ArchivedAt)

	versions, err := reg.List(utils.PtrTo(entities.ModelStateProduction))
	require.Nil(t, err)
	assert.Len(t, versions, 1)
}

func TestIllegalTransitions(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)
	register(t, reg, "v2", nil)
	promote(t, reg, "v1")
	promote(t, reg, "v2") // v1 is now archived

	// Registered versions cannot jump straight to production.
	register(t, reg, "v3", nil)
	_, err := reg.PromoteToProduction("v3")
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeValidation, err.Code)

	// Archived versions only return via rollback.
	_, err = reg.PromoteToStaging("v1")
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeValidation, err.Code)

	_, err = reg.PromoteToStaging("unknown")
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeNotFound, err.Code)
}

func TestRollbackRestoresLatestArchived(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)
	register(t, reg, "v2", nil)
	promote(t, reg, "v1")
	promote(t, reg, "v2")

	restored, err := reg.Rollback()
	require.Nil(t, err)
	assert.Equal(t, "v1", restored)

	production, err := reg.GetProduction()
	require.Nil(t, err)
	assert.Equal(t, "v1", production.VersionID)

	// The displaced production version is demoted to registered, not
	// archived, so a second rollback has no target.
	displaced, err := reg.Get("v2")
	require.Nil(t, err)
	assert.Equal(t, entities.ModelStateRegistered, displaced.State)

	_, err = reg.Rollback()
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeNoRollbackTarget, err.Code)
}

func TestRollbackWithoutArchivedVersions(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)
	promote(t, reg, "v1")

	_, err := reg.Rollback()
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeNoRollbackTarget, err.Code)
}

func TestDeleteProtectsActiveVersions(t *testing.T) {
	reg, artifacts := newRegistry(t)

	location, cErr := artifacts.Put([]byte("model-bytes"))
	require.Nil(t, cErr)
	_, err := reg.Register("v1", entities.ModelTypeEnsemble, location, nil, nil)
	require.Nil(t, err)
	register(t, reg, "v2", nil)

	_, err = reg.PromoteToStaging("v2")
	require.Nil(t, err)
	err = reg.Delete("v2", false)
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeProtectedVersion, err.Code)

	require.Nil(t, reg.Delete("v1", true))
	assert.False(t, artifacts.Exists(location))

	_, err = reg.Get("v1")
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeNotFound, err.Code)
}

func TestSummary(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", nil)
	register(t, reg, "v2", nil)
	register(t, reg, "v3", nil)
	promote(t, reg, "v1")
	_, err := reg.PromoteToStaging("v2")
	require.Nil(t, err)

	summary, err := reg.Summary()
	require.Nil(t, err)
	assert.Equal(t, 3, summary.TotalVersions)
	assert.Equal(t, "v1", summary.ProductionVersionID)
	assert.Equal(t, "v2", summary.StagingVersionID)
	assert.Equal(t, 1, summary.CountsByState[entities.ModelStateProduction])
	assert.Equal(t, 1, summary.CountsByState[entities.ModelStateStaging])
	assert.Equal(t, 1, summary.CountsByState[entities.ModelStateRegistered])
}

func TestCompareVersions(t *testing.T) {
	reg, _ := newRegistry(t)
	register(t, reg, "v1", map[string]float64{"accuracy": 0.80, "log_loss": 0.50, "recall": 0.70})
	register(t, reg, "v2", map[string]float64{"accuracy": 0.90, "log_loss": 0.40, "precision": 0.85})

	result, err := reg.Compare("v1", "v2")
	require.Nil(t, err)

	require.Contains(t, result.Metrics, "accuracy")
	accuracy := result.Metrics["accuracy"]
	assert.InDelta(t, 0.10, accuracy.Difference, 1e-9)
	assert.InDelta(t, 12.5, accuracy.PercentChange, 1e-9)
	assert.True(t, accuracy.Improved)

	// Loss-style metrics improve downward.
	require.Contains(t, result.Metrics, "log_loss")
	assert.True(t, result.Metrics["log_loss"].Improved)

	// Metrics absent from either side are skipped.
	assert.NotContains(t, result.Metrics, "recall")
	assert.NotContains(t, result.Metrics, "precision")
}

func TestCompareMetricsTiesAreNotImprovements(t *testing.T) {
	deltas := registry.CompareMetrics(
		map[string]float64{"accuracy": 0.9, "log_loss": 0.3},
		map[string]float64{"accuracy": 0.9, "log_loss": 0.3},
	)
	assert.False(t, deltas["accuracy"].Improved)
	assert.False(t, deltas["log_loss"].Improved)
}
