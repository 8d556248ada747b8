package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/monitor"
	"github.com/modelplane/modelplane/pkg/registry"
	"github.com/modelplane/modelplane/pkg/store"
	"github.com/modelplane/modelplane/pkg/utils"
)

// TrainingResult is what the Trainer collaborator hands back: an artifact
// already persisted to the artifact store plus its training-time metrics.
type TrainingResult struct {
	ArtifactLocation string
	ModelType        entities.ModelType
	Metrics          map[string]float64
}

// Trainer produces a new candidate artifact from a dataset snapshot. The
// model-fitting math lives entirely behind this interface.
type Trainer interface {
	Train(ctx context.Context, datasetReference string) (*TrainingResult, error)
}

// Evaluator scores a candidate artifact on a held-out set, using the same
// metric vocabulary as ModelVersion metrics.
type Evaluator interface {
	Evaluate(ctx context.Context, artifactLocation, testSetReference string) (map[string]float64, error)
}

// gateMetrics are the metrics a candidate must improve on (at least two,
// strictly) to be judged better than production.
var gateMetrics = []string{"accuracy", "f1_score", "auc_roc"}

const gateRequired = 2

type Config struct {
	BaselineAccuracy  float64
	MinPredictions    int
	AccuracyThreshold float64
	DatasetReference  string
	TestSetReference  string
}

// Orchestrator coordinates one retraining cycle: trigger evaluation,
// training, candidate scoring, comparison against production, and the
// staging promotion. Promotion to production is never automatic.
type Orchestrator struct {
	registry  *registry.Registry
	monitor   *monitor.Monitor
	decisions store.ReportStore
	trainer   Trainer
	evaluator Evaluator
	logger    *logrus.Logger
	cfg       Config

	// One run at a time; a run may take minutes inside the trainer.
	mu sync.Mutex
}

func New(
	reg *registry.Registry,
	mon *monitor.Monitor,
	decisions store.ReportStore,
	trainer Trainer,
	evaluator Evaluator,
	logger *logrus.Logger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		registry:  reg,
		monitor:   mon,
		decisions: decisions,
		trainer:   trainer,
		evaluator: evaluator,
		logger:    logger,
		cfg:       cfg,
	}
}

// CheckOptions override the configured trigger thresholds for one check.
// A recent drift report with drift detected forces a positive verdict even
// when performance is within threshold.
type CheckOptions struct {
	BaselineAccuracy  float64
	MinPredictions    int
	AccuracyThreshold float64
	DriftReport       *entities.DriftReport
}

func (o *Orchestrator) checkDefaults(opts CheckOptions) CheckOptions {
	if opts.BaselineAccuracy == 0 {
		opts.BaselineAccuracy = o.cfg.BaselineAccuracy
	}
	if opts.MinPredictions == 0 {
		opts.MinPredictions = o.cfg.MinPredictions
	}
	if opts.AccuracyThreshold == 0 {
		opts.AccuracyThreshold = o.cfg.AccuracyThreshold
	}
	return opts
}

// Check evaluates the retraining triggers without side effects. The
// returned decision is not persisted; Run is the only writer of the
// decision log.
func (o *Orchestrator) Check(opts CheckOptions) (*entities.RetrainingDecision, *contract.Error) {
	opts = o.checkDefaults(opts)

	decision := &entities.RetrainingDecision{
		DecisionID:    uuid.NewString(),
		TriggeredAt:   time.Now().UnixMilli(),
		TriggerReason: entities.TriggerScheduled,
	}

	triggered, reason, err := o.monitor.ShouldRetrain(
		opts.BaselineAccuracy, opts.MinPredictions, opts.AccuracyThreshold)
	if err != nil {
		return nil, err
	}

	if triggered {
		decision.TriggerReason = entities.TriggerPerformanceDegradation
	} else if opts.DriftReport != nil && opts.DriftReport.OverallDriftDetected {
		// Drift triggering is additive: it overrides a negative
		// performance verdict.
		triggered = true
		decision.TriggerReason = entities.TriggerDrift
		reason = fmt.Sprintf("drift detected in %d of %d features (report %s)",
			opts.DriftReport.DriftedFeatureCount,
			opts.DriftReport.AnalyzedFeatureCount,
			opts.DriftReport.ReportID)
	}

	decision.RetrainingPerformed = triggered
	decision.Reason = reason
	return decision, nil
}

// RunOptions control one orchestrator run.
type RunOptions struct {
	CheckOptions

	// Force skips trigger evaluation.
	Force bool
	// AutoPromote lets a better candidate advance to staging.
	AutoPromote bool
	// Requester identifies who asked for the run; recorded for audit.
	Requester string
	// DecisionID pre-assigns the audit record id so asynchronous callers
	// can hand it out before the run completes. Empty means mint one.
	DecisionID string
}

// Run drives a full retraining cycle and always appends a decision record,
// including for failed runs, so no cycle is silently lost. When both a
// decision and an error are returned, the decision has been persisted.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*entities.RetrainingDecision, *contract.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	decisionID := opts.DecisionID
	if decisionID == "" {
		decisionID = uuid.NewString()
	}
	decision := &entities.RetrainingDecision{
		DecisionID:    decisionID,
		TriggeredAt:   time.Now().UnixMilli(),
		TriggerReason: entities.TriggerManual,
		Requester:     opts.Requester,
	}

	log := o.logger.WithField("decision_id", decision.DecisionID)

	if !opts.Force {
		check, err := o.Check(opts.CheckOptions)
		if err != nil {
			return nil, err
		}
		decision.TriggerReason = check.TriggerReason
		if !check.RetrainingPerformed {
			decision.RetrainingPerformed = false
			decision.Reason = check.Reason
			log.WithField("reason", check.Reason).Info("retraining skipped")
			return o.record(decision, nil)
		}
		decision.Reason = check.Reason
	}

	log.WithField("trigger", decision.TriggerReason).Info("starting training run")

	result, trainErr := o.trainer.Train(ctx, o.cfg.DatasetReference)
	if trainErr != nil {
		decision.RetrainingPerformed = false
		decision.Reason = fmt.Sprintf("training failed: %v", trainErr)
		return o.record(decision, contract.NewErrorWith(contract.ErrorCodeTrainingFailed, trainErr, "trainer failed"))
	}

	// From here on an artifact exists; every outcome, including failure,
	// is recorded as a performed run so the artifact's provenance is kept.
	decision.RetrainingPerformed = true

	metrics, evalErr := o.evaluator.Evaluate(ctx, result.ArtifactLocation, o.cfg.TestSetReference)
	if evalErr != nil {
		decision.Reason = fmt.Sprintf("candidate evaluation failed: %v", evalErr)
		return o.record(decision, contract.NewErrorWith(contract.ErrorCodeInternal, evalErr, "evaluator failed"))
	}

	production, prodErr := o.registry.GetProduction()
	if prodErr != nil && prodErr.Code != contract.ErrorCodeNotFound {
		decision.Reason = fmt.Sprintf("failed to load production version: %v", prodErr)
		return o.record(decision, prodErr)
	}

	improvedCount := 0
	if production != nil {
		decision.ComparisonSummary = registry.CompareMetrics(production.Metrics, metrics)
		for _, name := range gateMetrics {
			if delta, ok := decision.ComparisonSummary[name]; ok && delta.Improved {
				improvedCount++
			}
		}
	}
	// No production model means any scored candidate is an improvement.
	better := production == nil || improvedCount >= gateRequired

	if !better {
		decision.Reason = fmt.Sprintf(
			"candidate improved on %d of %d gate metrics; production left untouched",
			improvedCount, len(gateMetrics))
		log.Info(decision.Reason)
		return o.record(decision, nil)
	}

	if !opts.AutoPromote {
		decision.Reason = "candidate is better but auto-promotion is disabled"
		log.Info(decision.Reason)
		return o.record(decision, nil)
	}

	candidateID := newCandidateVersionID()
	_, regErr := o.registry.Register(candidateID, result.ModelType, result.ArtifactLocation, metrics,
		map[string]string{
			"trained_by":  "retraining-orchestrator",
			"decision_id": decision.DecisionID,
		})
	if regErr != nil {
		decision.Reason = fmt.Sprintf("failed to register candidate: %v", regErr)
		return o.record(decision, regErr)
	}
	decision.CandidateVersionID = utils.PtrTo(candidateID)

	if _, stageErr := o.registry.PromoteToStaging(candidateID); stageErr != nil {
		decision.Reason = fmt.Sprintf("failed to promote candidate to staging: %v", stageErr)
		return o.record(decision, stageErr)
	}

	// Staging is the terminal automated action: moving to production takes
	// an explicit operator call.
	decision.Promoted = true
	if production == nil {
		decision.Reason = "no production model; candidate promoted to staging"
	} else {
		decision.Reason = fmt.Sprintf(
			"candidate improved on %d of %d gate metrics; promoted to staging",
			improvedCount, len(gateMetrics))
	}

	log.WithField("candidate_version_id", candidateID).Info(decision.Reason)
	return o.record(decision, nil)
}

// record persists the decision and pairs it with the run error, if any.
func (o *Orchestrator) record(decision *entities.RetrainingDecision, runErr *contract.Error) (*entities.RetrainingDecision, *contract.Error) {
	if err := o.decisions.InsertDecision(decision); err != nil {
		o.logger.WithError(err).Error("failed to persist retraining decision")
		if runErr != nil {
			return decision, runErr
		}
		return decision, err
	}
	return decision, runErr
}

// Decisions lists the newest audit records.
func (o *Orchestrator) Decisions(limit int) ([]*entities.RetrainingDecision, *contract.Error) {
	return o.decisions.Decisions(limit)
}

func newCandidateVersionID() string {
	return fmt.Sprintf("auto-%s-%s",
		time.Now().UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
}
