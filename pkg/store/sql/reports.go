package sql

import (
	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/store/sql/model"
)

func (s *Store) InsertDriftReport(r *entities.DriftReport) *contract.Error {
	record := model.NewDriftReportFromEntity(r)
	if err := s.db.Create(record).Error; err != nil {
		return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to store drift report %q", record.ReportID)
	}
	return nil
}

func (s *Store) DriftReports(modelVersionID string, since int64) ([]*entities.DriftReport, *contract.Error) {
	query := s.db.
		Where("generated_time >= ?", since).
		Order("generated_time DESC")
	if modelVersionID != "" {
		query = query.Where("model_version_id = ?", modelVersionID)
	}

	var records []model.DriftReport
	if err := query.Find(&records).Error; err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to query drift reports")
	}

	reports := make([]*entities.DriftReport, 0, len(records))
	for i := range records {
		reports = append(reports, records[i].ToEntity())
	}
	return reports, nil
}

func (s *Store) InsertDecision(d *entities.RetrainingDecision) *contract.Error {
	record := model.NewRetrainingDecisionFromEntity(d)
	if err := s.db.Create(record).Error; err != nil {
		return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to store decision %q", record.DecisionID)
	}
	return nil
}

func (s *Store) Decisions(limit int) ([]*entities.RetrainingDecision, *contract.Error) {
	query := s.db.Order("triggered_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []model.RetrainingDecision
	if err := query.Find(&records).Error; err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to query decisions")
	}

	decisions := make([]*entities.RetrainingDecision, 0, len(records))
	for i := range records {
		decisions = append(decisions, records[i].ToEntity())
	}
	return decisions, nil
}
