package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/orchestrator"
)

// ExecTrainer shells out to an external training command. The command gets
// the dataset reference as its last argument and must print a single JSON
// object to stdout:
//
//	{"artifact_location": "...", "model_type": "...", "metrics": {"accuracy": 0.9, ...}}
//
// Model fitting itself stays outside this control plane.
type ExecTrainer struct {
	Command []string
	Logger  *logrus.Logger
}

type trainOutput struct {
	ArtifactLocation string             `json:"artifact_location"`
	ModelType        string             `json:"model_type"`
	Metrics          map[string]float64 `json:"metrics"`
}

func (t *ExecTrainer) Train(ctx context.Context, datasetReference string) (*orchestrator.TrainingResult, error) {
	if len(t.Command) == 0 {
		return nil, errors.New("no trainer command configured")
	}

	args := append(append([]string(nil), t.Command[1:]...), datasetReference)
	cmd := exec.CommandContext(ctx, t.Command[0], args...)

	t.Logger.WithField("command", t.Command[0]).Info("invoking trainer")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("trainer command failed: %w", err)
	}

	var result trainOutput
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse trainer output: %w", err)
	}
	if result.ArtifactLocation == "" {
		return nil, errors.New("trainer output is missing artifact_location")
	}

	return &orchestrator.TrainingResult{
		ArtifactLocation: result.ArtifactLocation,
		ModelType:        entities.ModelType(result.ModelType),
		Metrics:          result.Metrics,
	}, nil
}

// ExecEvaluator shells out to an external scoring command. The command gets
// the artifact location and test-set reference as its last two arguments and
// must print a JSON metric mapping to stdout.
type ExecEvaluator struct {
	Command []string
	Logger  *logrus.Logger
}

func (e *ExecEvaluator) Evaluate(ctx context.Context, artifactLocation, testSetReference string) (map[string]float64, error) {
	if len(e.Command) == 0 {
		return nil, errors.New("no evaluator command configured")
	}

	args := append(append([]string(nil), e.Command[1:]...), artifactLocation, testSetReference)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)

	e.Logger.WithField("command", e.Command[0]).Info("invoking evaluator")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("evaluator command failed: %w", err)
	}

	var metrics map[string]float64
	if err := json.Unmarshal(out, &metrics); err != nil {
		return nil, fmt.Errorf("failed to parse evaluator output: %w", err)
	}
	return metrics, nil
}

var (
	_ orchestrator.Trainer   = (*ExecTrainer)(nil)
	_ orchestrator.Evaluator = (*ExecEvaluator)(nil)
)
