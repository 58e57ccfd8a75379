package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"muhtaref/internal/model"
)

// SettingsRepository reads and writes the singleton settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*model.SystemSettings, error)
	SetEngineerApprovalRequired(ctx context.Context, required bool, updatedBy uuid.UUID) (*model.SystemSettings, error)
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the settings row, creating it with defaults if absent. When a
// concurrent caller inserts the row first, the row is read again.
func (r *settingsRepository) Get(ctx context.Context) (*model.SystemSettings, error) {
	settings, err := r.firstOrCreate(ctx)
	if isDuplicateKey(err) {
		settings, err = r.firstOrCreate(ctx)
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingsRepository) firstOrCreate(ctx context.Context) (*model.SystemSettings, error) {
	var settings model.SystemSettings
	err := r.db.WithContext(ctx).
		Where("id = ?", model.SettingsID).
		Attrs(model.DefaultSettings()).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) SetEngineerApprovalRequired(ctx context.Context, required bool, updatedBy uuid.UUID) (*model.SystemSettings, error) {
	settings, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&model.SystemSettings{}).
		Where("id = ?", model.SettingsID).
		Updates(map[string]interface{}{
			"engineer_approval_required": required,
			"updated_by":                 updatedBy,
		}).Error
	if err != nil {
		return nil, err
	}

	settings.EngineerApprovalRequired = required
	settings.UpdatedBy = &updatedBy
	return settings, nil
}
