package sql

import (
	"errors"

	"gorm.io/gorm"

	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/store"
	"github.com/modelplane/modelplane/pkg/store/sql/model"
)

func (s *Store) CreateVersion(v *entities.ModelVersion) *contract.Error {
	record := model.NewModelVersionFromEntity(v)

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ModelVersion{}).
			Where("version_id = ?", record.VersionID).
			Count(&count).Error; err != nil {
			return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to check version %q", record.VersionID)
		}
		if count > 0 {
			return contract.NewError(contract.ErrorCodeDuplicateVersion, "version %q already registered", record.VersionID)
		}
		if err := tx.Create(record).Error; err != nil {
			return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to create version %q", record.VersionID)
		}
		return nil
	}); err != nil {
		return asContractError(err)
	}

	return nil
}

func (s *Store) GetVersion(versionID string) (*entities.ModelVersion, *contract.Error) {
	var record model.ModelVersion
	if err := s.db.Where("version_id = ?", versionID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(contract.ErrorCodeNotFound, "model version %q not found", versionID)
		}
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to get version %q", versionID)
	}
	return record.ToEntity(), nil
}

func (s *Store) ListVersions(state *entities.ModelState) ([]*entities.ModelVersion, *contract.Error) {
	query := s.db.Order("creation_time DESC")
	if state != nil {
		query = query.Where("state = ?", string(*state))
	}

	var records []model.ModelVersion
	if err := query.Find(&records).Error; err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to list versions")
	}

	versions := make([]*entities.ModelVersion, 0, len(records))
	for i := range records {
		versions = append(versions, records[i].ToEntity())
	}
	return versions, nil
}

func (s *Store) LatestVersion() (*entities.ModelVersion, *contract.Error) {
	return s.firstVersion(s.db.Order("creation_time DESC"))
}

func (s *Store) FindByState(state entities.ModelState) (*entities.ModelVersion, *contract.Error) {
	return s.firstVersion(s.db.Where("state = ?", string(state)))
}

func (s *Store) LatestArchived() (*entities.ModelVersion, *contract.Error) {
	return s.firstVersion(s.db.
		Where("state = ?", string(entities.ModelStateArchived)).
		Order("archived_time DESC"))
}

func (s *Store) firstVersion(query *gorm.DB) (*entities.ModelVersion, *contract.Error) {
	var record model.ModelVersion
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to query versions")
	}
	return record.ToEntity(), nil
}

func (s *Store) ApplyTransitions(transitions []store.StateTransition) *contract.Error {
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range transitions {
			updates := map[string]interface{}{
				"state":              string(t.ToState),
				"state_changed_time": t.ChangedAt,
			}
			if t.StampArchived {
				updates["archived_time"] = t.ChangedAt
			}

			result := tx.Model(&model.ModelVersion{}).
				Where("version_id = ?", t.VersionID).
				Updates(updates)
			if result.Error != nil {
				return contract.NewErrorWith(contract.ErrorCodeStorage, result.Error, "failed to transition version %q", t.VersionID)
			}
			if result.RowsAffected != 1 {
				return contract.NewError(contract.ErrorCodeNotFound, "model version %q not found", t.VersionID)
			}
		}
		return nil
	}); err != nil {
		return asContractError(err)
	}

	return nil
}

func (s *Store) DeleteVersion(versionID string) *contract.Error {
	result := s.db.Where("version_id = ?", versionID).Delete(&model.ModelVersion{})
	if result.Error != nil {
		return contract.NewErrorWith(contract.ErrorCodeStorage, result.Error, "failed to delete version %q", versionID)
	}
	if result.RowsAffected != 1 {
		return contract.NewError(contract.ErrorCodeNotFound, "model version %q not found", versionID)
	}
	return nil
}

func (s *Store) CountsByState() (map[entities.ModelState]int, *contract.Error) {
	type stateCount struct {
		State string
		Count int
	}

	var rows []stateCount
	if err := s.db.Model(&model.ModelVersion{}).
		Select("state, count(*) as count").
		Group("state").
		Find(&rows).Error; err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to count versions by state")
	}

	counts := make(map[entities.ModelState]int, len(rows))
	for _, row := range rows {
		counts[entities.ModelState(row.State)] = row.Count
	}
	return counts, nil
}

// asContractError keeps typed errors raised inside a transaction callback and
// wraps anything else as a storage failure.
func asContractError(err error) *contract.Error {
	var cErr *contract.Error
	if errors.As(err, &cErr) {
		return cErr
	}
	return contract.NewErrorWith(contract.ErrorCodeStorage, err, "storage operation failed")
}
