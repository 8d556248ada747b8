package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelplane/modelplane/pkg/artifact"
	"github.com/modelplane/modelplane/pkg/drift"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/monitor"
	"github.com/modelplane/modelplane/pkg/orchestrator"
	"github.com/modelplane/modelplane/pkg/registry"
	"github.com/modelplane/modelplane/pkg/store/sql"
)

type fixedTrainer struct {
	result orchestrator.TrainingResult
}

func (f *fixedTrainer) Train(_ context.Context, _ string) (*orchestrator.TrainingResult, error) {
	result := f.result
	return &result, nil
}

type fixedEvaluator struct {
	metrics map[string]float64
}

func (f *fixedEvaluator) Evaluate(_ context.Context, _, _ string) (map[string]float64, error) {
	return f.metrics, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store, err := sql.NewSQLStore(logger, "file:"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)

	artifacts, cErr := artifact.NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	require.Nil(t, cErr)

	reg := registry.New(store, artifacts, logger)
	mon := monitor.New(store, logger)
	detector := drift.New(store, logger)
	orch := orchestrator.New(reg, mon, store,
		&fixedTrainer{result: orchestrator.TrainingResult{
			ArtifactLocation: "candidate-artifact",
			ModelType:        entities.ModelTypeGradientBoosted,
		}},
		&fixedEvaluator{metrics: map[string]float64{"accuracy": 0.9}},
		logger,
		orchestrator.Config{BaselineAccuracy: 0.85, MinPredictions: 100, AccuracyThreshold: 0.05},
	)

	return newAPIApp(&Services{
		Registry:     reg,
		Monitor:      mon,
		Detector:     detector,
		Orchestrator: orch,
	})
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := app.Test(request, -1)
	require.NoError(t, err)

	payload := make(map[string]any)
	raw, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	if len(raw) > 0 && response.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return response, payload
}

func registerVersion(t *testing.T, app *fiber.App, versionID string, metrics map[string]float64) {
	t.Helper()
	response, _ := doJSON(t, app, http.MethodPost, "/models", map[string]any{
		"version_id":        versionID,
		"model_type":        "gradient_boosted",
		"artifact_location": "loc-" + versionID,
		"metrics":           metrics,
	})
	require.Equal(t, http.StatusCreated, response.StatusCode)
}

func TestModelLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	registerVersion(t, app, "v1", map[string]float64{"accuracy": 0.9})

	response, payload := doJSON(t, app, http.MethodGet, "/models/v1", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "registered", payload["state"])

	response, _ = doJSON(t, app, http.MethodPost, "/models/v1/stage", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)

	response, payload = doJSON(t, app, http.MethodPost, "/models/v1/promote", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "production", payload["state"])

	response, payload = doJSON(t, app, http.MethodGet, "/models/production", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "v1", payload["version_id"])

	response, payload = doJSON(t, app, http.MethodGet, "/models/summary", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, float64(1), payload["total_versions"])
	assert.Equal(t, "v1", payload["production_version_id"])
}

func TestRegisterModelValidation(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodPost, "/models", map[string]any{
		"model_type": "gradient_boosted",
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", payload["error_code"])
}

func TestGetMissingModel(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodGet, "/models/ghost", nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "NOT_FOUND", payload["error_code"])
}

func TestRollbackWithoutTarget(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodPost, "/models/rollback", nil)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "NO_ROLLBACK_TARGET", payload["error_code"])
}

func TestPredictionAndOutcomeOverHTTP(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodPost, "/predictions", map[string]any{
		"model_version_id": "v1",
		"prediction":       "approve",
		"probability":      0.8,
		"confidence":       0.8,
	})
	require.Equal(t, http.StatusCreated, response.StatusCode)
	predictionID, _ := payload["prediction_id"].(string)
	require.NotEmpty(t, predictionID)

	response, _ = doJSON(t, app, http.MethodPost, "/predictions/"+predictionID+"/outcome",
		map[string]any{"actual_outcome": "approve"})
	require.Equal(t, http.StatusNoContent, response.StatusCode)

	// Second outcome for the same prediction is rejected.
	response, payload = doJSON(t, app, http.MethodPost, "/predictions/"+predictionID+"/outcome",
		map[string]any{"actual_outcome": "reject"})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "ALREADY_RECORDED", payload["error_code"])

	response, payload = doJSON(t, app, http.MethodGet, "/performance/accuracy?window_days=30", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, float64(1), payload["total_predictions"])
}

func TestAccuracyRejectsNonPositiveWindow(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodGet, "/performance/accuracy?window_days=0", nil)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", payload["error_code"])
}

func TestAccuracyWithoutDataIsSoftError(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodGet, "/performance/accuracy", nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "INSUFFICIENT_DATA", payload["error_code"])
}

func TestDriftCheckOverHTTP(t *testing.T) {
	app := newTestApp(t)

	reference := make([]float64, 100)
	current := make([]float64, 100)
	for i := range reference {
		reference[i] = 1
		current[i] = 5
	}

	response, payload := doJSON(t, app, http.MethodPost, "/drift/check", map[string]any{
		"model_version_id": "v1",
		"reference":        map[string]any{"f": reference},
		"current":          map[string]any{"f": current},
	})
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, true, payload["overall_drift_detected"])

	response, payload = doJSON(t, app, http.MethodGet, "/drift/reports", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	reports, ok := payload["drift_reports"].([]any)
	require.True(t, ok)
	assert.Len(t, reports, 1)
}

func TestRetrainingRunIsAsynchronous(t *testing.T) {
	app := newTestApp(t)

	response, payload := doJSON(t, app, http.MethodPost, "/retraining/run",
		map[string]any{"force": true, "requester": "ops"})
	require.Equal(t, http.StatusAccepted, response.StatusCode)
	decisionID, _ := payload["decision_id"].(string)
	require.NotEmpty(t, decisionID)

	// The decision record appears once the background run finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		response, payload = doJSON(t, app, http.MethodGet, "/retraining/decisions", nil)
		require.Equal(t, http.StatusOK, response.StatusCode)
		decisions, _ := payload["decisions"].([]any)
		if len(decisions) == 1 {
			record, ok := decisions[0].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, decisionID, record["decision_id"])
			return
		}
		require.True(t, time.Now().Before(deadline), "decision record never appeared")
		time.Sleep(20 * time.Millisecond)
	}
}
