package monitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/store"
)

// Monitor owns the prediction log and derives rolling performance
// statistics from it. It never mutates registry state.
type Monitor struct {
	store  store.PredictionStore
	logger *logrus.Logger
}

func New(s store.PredictionStore, logger *logrus.Logger) *Monitor {
	return &Monitor{store: s, logger: logger}
}

// EvaluationWindowDays is the trailing window ShouldRetrain evaluates.
const EvaluationWindowDays = 90

// DayBucket is per-day accuracy inside the evaluation window.
type DayBucket struct {
	Day      string  `json:"day"`
	Count    int     `json:"count"`
	Accuracy float64 `json:"accuracy"`
}

// CalibrationBucket checks predicted confidence against empirical accuracy
// inside one confidence range.
type CalibrationBucket struct {
	Range          string  `json:"range"`
	Count          int     `json:"count"`
	Accuracy       float64 `json:"accuracy"`
	MeanConfidence float64 `json:"mean_confidence"`
}

type AccuracyReport struct {
	WindowDays       int                 `json:"window_days"`
	ModelVersionID   string              `json:"model_version_id,omitempty"`
	TotalPredictions int                 `json:"total_predictions"`
	OverallAccuracy  float64             `json:"overall_accuracy"`
	PerDay           []DayBucket         `json:"per_day"`
	Calibration      []CalibrationBucket `json:"calibration"`
}

type DegradationResult struct {
	Degraded         bool    `json:"degraded"`
	BaselineAccuracy float64 `json:"baseline_accuracy"`
	CurrentAccuracy  float64 `json:"current_accuracy"`
	AccuracyDrop     float64 `json:"accuracy_drop"`
	TotalPredictions int     `json:"total_predictions"`
}

// RecordPrediction appends one served prediction to the log. A missing
// prediction id is assigned here so inference callers do not have to mint
// their own.
func (m *Monitor) RecordPrediction(entry *entities.PredictionLogEntry) (*entities.PredictionLogEntry, *contract.Error) {
	if entry.ModelVersionID == "" {
		return nil, contract.NewError(contract.ErrorCodeValidation, "model_version_id must not be empty")
	}
	if entry.Probability < 0 || entry.Probability > 1 {
		return nil, contract.NewError(contract.ErrorCodeValidation, "probability %v outside [0,1]", entry.Probability)
	}
	if entry.Confidence < 0 || entry.Confidence > 1 {
		return nil, contract.NewError(contract.ErrorCodeValidation, "confidence %v outside [0,1]", entry.Confidence)
	}

	if entry.PredictionID == "" {
		entry.PredictionID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UnixMilli()
	entry.ActualOutcome = nil
	entry.OutcomeUpdatedAt = nil

	if err := m.store.InsertPrediction(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (m *Monitor) GetPrediction(predictionID string) (*entities.PredictionLogEntry, *contract.Error) {
	return m.store.GetPrediction(predictionID)
}

// RecordOutcome fills in the ground truth for one prediction. Outcomes are
// write-once; a second call for the same id fails and leaves the stored
// outcome untouched.
func (m *Monitor) RecordOutcome(predictionID, actualOutcome string) *contract.Error {
	if predictionID == "" {
		return contract.NewError(contract.ErrorCodeValidation, "prediction_id must not be empty")
	}
	if actualOutcome == "" {
		return contract.NewError(contract.ErrorCodeValidation, "actual_outcome must not be empty")
	}
	return m.store.SetOutcome(predictionID, actualOutcome, time.Now().UnixMilli())
}

// ComputeAccuracy reports overall, per-day and calibration accuracy over
// outcome-labeled predictions in the trailing window.
func (m *Monitor) ComputeAccuracy(windowDays int, modelVersionID string) (*AccuracyReport, *contract.Error) {
	if windowDays <= 0 {
		return nil, contract.NewError(contract.ErrorCodeValidation, "window_days must be positive, got %d", windowDays)
	}

	entries, err := m.labeledWindow(windowDays, modelVersionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, contract.NewError(contract.ErrorCodeInsufficientData,
			"no labeled predictions in the last %d days", windowDays)
	}

	report := &AccuracyReport{
		WindowDays:       windowDays,
		ModelVersionID:   modelVersionID,
		TotalPredictions: len(entries),
		OverallAccuracy:  accuracy(entries),
		PerDay:           perDayBuckets(entries),
		Calibration:      calibrationBuckets(entries),
	}
	return report, nil
}

// CheckDegradation compares current windowed accuracy against a stored
// baseline. Degraded means the drop exceeds the threshold.
func (m *Monitor) CheckDegradation(baselineAccuracy float64, windowDays int, threshold float64) (*DegradationResult, *contract.Error) {
	report, err := m.ComputeAccuracy(windowDays, "")
	if err != nil {
		return nil, err
	}

	drop := baselineAccuracy - report.OverallAccuracy
	return &DegradationResult{
		Degraded:         drop > threshold,
		BaselineAccuracy: baselineAccuracy,
		CurrentAccuracy:  report.OverallAccuracy,
		AccuracyDrop:     drop,
		TotalPredictions: report.TotalPredictions,
	}, nil
}

// ShouldRetrain is the structured retraining verdict: it requires a minimum
// amount of labeled evidence before consulting the degradation check, so a
// cold-start system never triggers retraining off a handful of outcomes.
func (m *Monitor) ShouldRetrain(baselineAccuracy float64, minPredictions int, accuracyThreshold float64) (bool, string, *contract.Error) {
	entries, err := m.labeledWindow(EvaluationWindowDays, "")
	if err != nil {
		return false, "", err
	}
	if len(entries) < minPredictions {
		return false, "insufficient data", nil
	}

	result, cErr := m.CheckDegradation(baselineAccuracy, EvaluationWindowDays, accuracyThreshold)
	if cErr != nil {
		return false, "", cErr
	}
	if result.Degraded {
		return true, fmt.Sprintf("accuracy dropped %.4f below baseline %.4f (current %.4f)",
			result.AccuracyDrop, baselineAccuracy, result.CurrentAccuracy), nil
	}
	return false, fmt.Sprintf("performance within threshold (current accuracy %.4f)", result.CurrentAccuracy), nil
}

func (m *Monitor) labeledWindow(windowDays int, modelVersionID string) ([]*entities.PredictionLogEntry, *contract.Error) {
	since := time.Now().Add(-time.Duration(windowDays) * 24 * time.Hour).UnixMilli()
	return m.store.LabeledPredictions(since, modelVersionID)
}

func accuracy(entries []*entities.PredictionLogEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	correct := 0
	for _, e := range entries {
		if e.Correct() {
			correct++
		}
	}
	return float64(correct) / float64(len(entries))
}

func perDayBuckets(entries []*entities.PredictionLogEntry) []DayBucket {
	byDay := make(map[string][]*entities.PredictionLogEntry)
	days := make([]string, 0)
	for _, e := range entries {
		day := time.UnixMilli(e.CreatedAt).UTC().Format("2006-01-02")
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], e)
	}

	buckets := make([]DayBucket, 0, len(days))
	for _, day := range days {
		group := byDay[day]
		buckets = append(buckets, DayBucket{
			Day:      day,
			Count:    len(group),
			Accuracy: accuracy(group),
		})
	}
	return buckets
}

var calibrationRanges = []struct {
	label string
	low   float64
	high  float64
}{
	{"[0.0,0.5)", 0.0, 0.5},
	{"[0.5,0.7)", 0.5, 0.7},
	{"[0.7,0.9)", 0.7, 0.9},
	{"[0.9,1.0]", 0.9, 1.0 + 1e-9},
}

func calibrationBuckets(entries []*entities.PredictionLogEntry) []CalibrationBucket {
	buckets := make([]CalibrationBucket, 0, len(calibrationRanges))
	for _, r := range calibrationRanges {
		var group []*entities.PredictionLogEntry
		var confidences []float64
		for _, e := range entries {
			if e.Confidence >= r.low && e.Confidence < r.high {
				group = append(group, e)
				confidences = append(confidences, e.Confidence)
			}
		}

		bucket := CalibrationBucket{Range: r.label, Count: len(group)}
		if len(group) > 0 {
			bucket.Accuracy = accuracy(group)
			bucket.MeanConfidence = stat.Mean(confidences, nil)
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}
