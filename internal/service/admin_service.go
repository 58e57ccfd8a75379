package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"muhtaref/internal/audit"
	"muhtaref/internal/auth"
	"muhtaref/internal/cache"
	"muhtaref/internal/errors"
	"muhtaref/internal/model"
	"muhtaref/internal/repository"
)

// AdminService performs administrative transitions on user accounts. Every
// operation is refused unless the actor is an active administrator.
type AdminService interface {
	ApproveEngineer(ctx context.Context, adminID, userID uuid.UUID) error
	SuspendOrReactivateUser(ctx context.Context, adminID, userID uuid.UUID) (model.Status, error)
	DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error
	AdminResetPassword(ctx context.Context, adminID, userID uuid.UUID, newPassword string) error
	ChangeRole(ctx context.Context, adminID, userID uuid.UUID, role model.Role) error
	ListUsers(ctx context.Context, adminID uuid.UUID, filter repository.UserFilter) ([]model.Profile, error)
	ListLogs(ctx context.Context, adminID uuid.UUID, filter repository.LogFilter) ([]model.AuditLog, error)
}

type adminService struct {
	users  repository.UserRepository
	logs   repository.AuditLogRepository
	hasher   auth.PasswordHasher
	cache    *cache.Client
	sessions auth.TokenStoreInterface
	audit    *audit.Recorder
	logger   *zap.Logger
}

// NewAdminService creates a new admin service. sessions may be nil, in which
// case suspension, deletion and password resets leave refresh tokens alone.
func NewAdminService(
	users repository.UserRepository,
	logs repository.AuditLogRepository,
	hasher auth.PasswordHasher,
	cache *cache.Client,
	sessions auth.TokenStoreInterface,
	recorder *audit.Recorder,
	logger *zap.Logger,
) AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminService{
		users:    users,
		logs:     logs,
		hasher:   hasher,
		cache:    cache,
		sessions: sessions,
		audit:    recorder,
		logger:   logger.Named("admin"),
	}
}

// ApproveEngineer moves a pending engineer to ACTIVE.
func (s *adminService) ApproveEngineer(ctx context.Context, adminID, userID uuid.UUID) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	user, err := s.findTarget(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != model.RoleEngineer || user.Status != model.StatusPendingApproval {
		return errors.ErrInvalidTransition
	}

	if err := s.setStatus(ctx, user.ID, model.StatusActive); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  model.ActionApproveEngineer,
		Level:   model.LogLevelSuccess,
		Message: fmt.Sprintf("engineer %s approved", user.Email),
		UserID:  audit.Ref(user.ID),
		ActorID: audit.Ref(adminID),
	})
	return nil
}

// SuspendOrReactivateUser toggles between ACTIVE and SUSPENDED and returns
// the resulting status. Administrators cannot be suspended through this path.
func (s *adminService) SuspendOrReactivateUser(ctx context.Context, adminID, userID uuid.UUID) (model.Status, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return "", err
	}
	user, err := s.findTarget(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Role == model.RoleAdmin {
		return "", errors.ErrForbidden
	}

	var next model.Status
	var action string
	switch user.Status {
	case model.StatusActive:
		next, action = model.StatusSuspended, model.ActionSuspendUser
	case model.StatusSuspended:
		next, action = model.StatusActive, model.ActionReactivateUser
	default:
		return "", errors.ErrInvalidTransition
	}

	if err := s.setStatus(ctx, user.ID, next); err != nil {
		return "", err
	}
	if next == model.StatusSuspended {
		revokeSessions(ctx, s.sessions, user.ID, s.logger)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  action,
		Level:   model.LogLevelSuccess,
		Message: fmt.Sprintf("user %s is now %s", user.Email, next),
		UserID:  audit.Ref(user.ID),
		ActorID: audit.Ref(adminID),
	})
	return next, nil
}

// DeleteUser marks the account DELETED. The transition is terminal.
func (s *adminService) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if adminID == userID {
		return errors.ErrForbidden
	}
	user, err := s.findTarget(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		return errors.ErrForbidden
	}
	if user.Status == model.StatusDeleted {
		return errors.ErrInvalidTransition
	}

	if err := s.setStatus(ctx, user.ID, model.StatusDeleted); err != nil {
		return err
	}
	revokeSessions(ctx, s.sessions, user.ID, s.logger)

	s.audit.Record(ctx, audit.Entry{
		Action:  model.ActionDeleteUser,
		Level:   model.LogLevelWarning,
		Message: fmt.Sprintf("user %s deleted (was %s)", user.Email, user.Status),
		UserID:  audit.Ref(user.ID),
		ActorID: audit.Ref(adminID),
	})
	return nil
}

// AdminResetPassword overwrites the target's password hash directly.
func (s *adminService) AdminResetPassword(ctx context.Context, adminID, userID uuid.UUID, newPassword string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLength {
		return errors.ErrInvalidInput
	}
	user, err := s.findTarget(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	if err := s.update(ctx, user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}
	revokeSessions(ctx, s.sessions, user.ID, s.logger)

	s.audit.Record(ctx, audit.Entry{
		Action:  model.ActionAdminPasswordReset,
		Level:   model.LogLevelWarning,
		Message: fmt.Sprintf("password of %s reset by administrator", user.Email),
		UserID:  audit.Ref(user.ID),
		ActorID: audit.Ref(adminID),
	})
	return nil
}

// ChangeRole assigns a new role. Administrators cannot change their own role.
func (s *adminService) ChangeRole(ctx context.Context, adminID, userID uuid.UUID, role model.Role) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if !role.Valid() {
		return errors.ErrInvalidInput
	}
	if adminID == userID {
		return errors.ErrForbidden
	}
	user, err := s.findTarget(ctx, userID)
	if err != nil {
		return err
	}
	if user.Status == model.StatusDeleted {
		return errors.ErrInvalidTransition
	}
	if user.Role == role {
		return nil
	}

	if err := s.update(ctx, user.ID, map[string]interface{}{"role": role}); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  model.ActionChangeRole,
		Level:   model.LogLevelSuccess,
		Message: fmt.Sprintf("role of %s changed from %s to %s", user.Email, user.Role, role),
		UserID:  audit.Ref(user.ID),
		ActorID: audit.Ref(adminID),
	})
	return nil
}

func (s *adminService) ListUsers(ctx context.Context, adminID uuid.UUID, filter repository.UserFilter) ([]model.Profile, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		s.logger.Error("list users", zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	profiles := make([]model.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, nil
}

func (s *adminService) ListLogs(ctx context.Context, adminID uuid.UUID, filter repository.LogFilter) ([]model.AuditLog, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		s.logger.Error("list audit logs", zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	return logs, nil
}

func (s *adminService) requireAdmin(ctx context.Context, adminID uuid.UUID) error {
	return requireActiveAdmin(ctx, s.users, adminID)
}

// requireActiveAdmin verifies that id names an ACTIVE ADMIN account.
func requireActiveAdmin(ctx context.Context, users repository.UserRepository, id uuid.UUID) error {
	actor, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrForbidden
		}
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	if actor.Role != model.RoleAdmin || actor.Status != model.StatusActive {
		return errors.ErrForbidden
	}
	return nil
}

func (s *adminService) findTarget(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		s.logger.Error("find user", zap.String("user_id", id.String()), zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	return user, nil
}

func (s *adminService) setStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	return s.update(ctx, id, map[string]interface{}{"status": status})
}

func (s *adminService) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if err := s.users.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrUserNotFound
		}
		s.logger.Error("update user", zap.String("user_id", id.String()), zap.Error(err))
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	invalidateProfile(ctx, s.cache, id)
	return nil
}
