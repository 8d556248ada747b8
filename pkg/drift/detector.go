package drift

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/store"
)

// DefaultPValueThreshold flags a feature when the KS test rejects "same
// distribution" at this significance level.
const DefaultPValueThreshold = 0.05

// minObservations is the smallest per-feature sample the tests accept.
const minObservations = 2

// Detector compares a reference feature distribution captured at training
// time against a recent production sample and appends an immutable report
// per comparison. It is a read-only consumer of feature samples.
type Detector struct {
	store  store.ReportStore
	logger *logrus.Logger
}

func New(s store.ReportStore, logger *logrus.Logger) *Detector {
	return &Detector{store: s, logger: logger}
}

// DetectDrift runs the per-feature KS test and PSI over every feature
// present in both samples, persists the report, and returns it.
func (d *Detector) DetectDrift(
	modelVersionID string,
	reference, current map[string][]float64,
	pValueThreshold float64,
) (*entities.DriftReport, *contract.Error) {
	if pValueThreshold == 0 {
		pValueThreshold = DefaultPValueThreshold
	}
	if pValueThreshold < 0 || pValueThreshold >= 1 {
		return nil, contract.NewError(contract.ErrorCodeValidation,
			"p_value_threshold %v outside (0,1)", pValueThreshold)
	}
	if len(reference) == 0 || len(current) == 0 {
		return nil, contract.NewError(contract.ErrorCodeValidation, "both samples must contain at least one feature")
	}

	report := &entities.DriftReport{
		ReportID:         uuid.NewString(),
		ModelVersionID:   modelVersionID,
		GeneratedAt:      time.Now().UnixMilli(),
		PerFeatureScores: make(map[string]entities.FeatureDrift),
		SkippedFeatures:  make(map[string]string),
	}

	for _, feature := range sortedFeatures(reference) {
		refValues := dropNonFinite(reference[feature])

		curRaw, ok := current[feature]
		if !ok {
			report.SkippedFeatures[feature] = "missing from current sample"
			continue
		}
		curValues := dropNonFinite(curRaw)

		if len(refValues) < minObservations {
			report.SkippedFeatures[feature] = "fewer than 2 observations in reference sample"
			continue
		}
		if len(curValues) < minObservations {
			report.SkippedFeatures[feature] = "fewer than 2 observations in current sample"
			continue
		}

		statistic, pValue := KolmogorovSmirnov(refValues, curValues)
		psi := PopulationStabilityIndex(refValues, curValues)
		drifted := pValue < pValueThreshold || psi > entities.PSISignificantShift

		report.PerFeatureScores[feature] = entities.FeatureDrift{
			Statistic:                statistic,
			PValue:                   pValue,
			PopulationStabilityIndex: psi,
			Drifted:                  drifted,
		}
		report.AnalyzedFeatureCount++
		if drifted {
			report.DriftedFeatureCount++
		}
	}

	for feature := range current {
		if _, ok := reference[feature]; !ok {
			report.SkippedFeatures[feature] = "missing from reference sample"
		}
	}

	report.OverallDriftDetected = report.DriftedFeatureCount > 0
	if report.AnalyzedFeatureCount > 0 {
		report.DriftFraction = float64(report.DriftedFeatureCount) / float64(report.AnalyzedFeatureCount)
	}

	if err := d.store.InsertDriftReport(report); err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"report_id":        report.ReportID,
		"model_version_id": modelVersionID,
		"analyzed":         report.AnalyzedFeatureCount,
		"drifted":          report.DriftedFeatureCount,
		"drift_detected":   report.OverallDriftDetected,
	}).Info("drift comparison completed")

	return report, nil
}

// History returns prior reports inside the trailing window, newest first.
func (d *Detector) History(modelVersionID string, windowDays int) ([]*entities.DriftReport, *contract.Error) {
	if windowDays <= 0 {
		return nil, contract.NewError(contract.ErrorCodeValidation, "window_days must be positive, got %d", windowDays)
	}
	since := time.Now().Add(-time.Duration(windowDays) * 24 * time.Hour).UnixMilli()
	return d.store.DriftReports(modelVersionID, since)
}

func sortedFeatures(sample map[string][]float64) []string {
	features := make([]string, 0, len(sample))
	for feature := range sample {
		features = append(features, feature)
	}
	sort.Strings(features)
	return features
}

func dropNonFinite(values []float64) []float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			kept = append(kept, v)
		}
	}
	return kept
}
