package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muhtaref/internal/audit"
	"muhtaref/internal/errors"
	"muhtaref/internal/model"
	"muhtaref/internal/repository"
)

// SettingsService reads and edits system wide policy flags.
type SettingsService interface {
	Get(ctx context.Context) (*model.SystemSettings, error)
	SetEngineerApprovalRequired(ctx context.Context, adminID uuid.UUID, required bool) (*model.SystemSettings, error)
}

type settingsService struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	audit    *audit.Recorder
	logger   *zap.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(users repository.UserRepository, settings repository.SettingsRepository, recorder *audit.Recorder, logger *zap.Logger) SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settingsService{users: users, settings: settings, audit: recorder, logger: logger.Named("settings")}
}

func (s *settingsService) Get(ctx context.Context) (*model.SystemSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Error("read system settings", zap.Error(err))
		return nil, errors.Wrap(errors.ErrSettingsUnavailable, err)
	}
	return settings, nil
}

func (s *settingsService) SetEngineerApprovalRequired(ctx context.Context, adminID uuid.UUID, required bool) (*model.SystemSettings, error) {
	if err := requireActiveAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}

	settings, err := s.settings.SetEngineerApprovalRequired(ctx, required, adminID)
	if err != nil {
		s.logger.Error("update system settings", zap.Error(err))
		return nil, errors.Wrap(errors.ErrSettingsUnavailable, err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  model.ActionUpdateSettings,
		Level:   model.LogLevelInfo,
		Message: fmt.Sprintf("engineer approval required set to %t", required),
		ActorID: audit.Ref(adminID),
	})
	return settings, nil
}
