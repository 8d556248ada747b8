package sql

import (
	"errors"

	"gorm.io/gorm"

	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/store/sql/model"
)

func (s *Store) InsertPrediction(p *entities.PredictionLogEntry) *contract.Error {
	record := model.NewPredictionFromEntity(p)
	if err := s.db.Create(record).Error; err != nil {
		return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to log prediction %q", record.PredictionID)
	}
	return nil
}

func (s *Store) GetPrediction(predictionID string) (*entities.PredictionLogEntry, *contract.Error) {
	var record model.Prediction
	if err := s.db.Where("prediction_id = ?", predictionID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(contract.ErrorCodeNotFound, "prediction %q not found", predictionID)
		}
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to get prediction %q", predictionID)
	}
	return record.ToEntity(), nil
}

// SetOutcome relies on a conditional update rather than a lock: the write
// only lands on a row that has no outcome yet, so concurrent feedback calls
// for the same id cannot both succeed.
func (s *Store) SetOutcome(predictionID, outcome string, updatedAt int64) *contract.Error {
	result := s.db.Model(&model.Prediction{}).
		Where("prediction_id = ? AND actual_outcome IS NULL", predictionID).
		Updates(map[string]interface{}{
			"actual_outcome":       outcome,
			"outcome_updated_time": updatedAt,
		})
	if result.Error != nil {
		return contract.NewErrorWith(contract.ErrorCodeStorage, result.Error, "failed to record outcome for %q", predictionID)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// Distinguish "unknown id" from "outcome already written".
	var count int64
	if err := s.db.Model(&model.Prediction{}).
		Where("prediction_id = ?", predictionID).
		Count(&count).Error; err != nil {
		return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to check prediction %q", predictionID)
	}
	if count == 0 {
		return contract.NewError(contract.ErrorCodeNotFound, "prediction %q not found", predictionID)
	}
	return contract.NewError(contract.ErrorCodeAlreadyRecorded, "outcome for prediction %q already recorded", predictionID)
}

func (s *Store) LabeledPredictions(since int64, modelVersionID string) ([]*entities.PredictionLogEntry, *contract.Error) {
	query := s.db.
		Where("actual_outcome IS NOT NULL").
		Where("creation_time >= ?", since).
		Order("creation_time ASC")
	if modelVersionID != "" {
		query = query.Where("model_version_id = ?", modelVersionID)
	}

	var records []model.Prediction
	if err := query.Find(&records).Error; err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to query labeled predictions")
	}

	entries := make([]*entities.PredictionLogEntry, 0, len(records))
	for i := range records {
		entries = append(entries, records[i].ToEntity())
	}
	return entries, nil
}
