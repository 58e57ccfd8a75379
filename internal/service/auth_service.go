package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"muhtaref/internal/audit"
	"muhtaref/internal/auth"
	"muhtaref/internal/errors"
	"muhtaref/internal/mail"
	"muhtaref/internal/model"
	"muhtaref/internal/repository"
)

// RegisterInput carries an already validated registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Phone    *string
}

// RegisterResult is returned on successful registration. PendingApproval tells
// the caller to show the "awaiting approval" message instead of logging in.
type RegisterResult struct {
	UserID          uuid.UUID     `json:"user_id"`
	PendingApproval bool          `json:"pending_approval"`
	Profile         model.Profile `json:"profile"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Profile      model.Profile `json:"profile"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}

// ResetRequestResult is the uniform answer to a forgot-password request.
type ResetRequestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthService handles registration, authentication and password recovery.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string, accessClaims *auth.Claims) error
	RequestPasswordReset(ctx context.Context, email string) *ResetRequestResult
	RedeemPasswordReset(ctx context.Context, token, newPassword string) error
	// Drain waits for background reset requests, for graceful shutdown.
	Drain(ctx context.Context) error
}

// AuthDeps groups the collaborators of the auth service.
type AuthDeps struct {
	Users       repository.UserRepository
	Settings    repository.SettingsRepository
	Hasher      auth.PasswordHasher
	JWT         *auth.JWTService
	Sessions    auth.TokenStoreInterface
	ResetTokens auth.ResetTokenStore
	Mailer      mail.Sender
	Audit       *audit.Recorder
	Logger      *zap.Logger
	// AppBaseURL is the front-end origin that reset links point to.
	AppBaseURL string
}

type authService struct {
	AuthDeps

	dummyOnce sync.Once
	dummyHash string

	pending sync.WaitGroup
}

// NewAuthService creates a new authentication service.
func NewAuthService(deps AuthDeps) AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Logger = deps.Logger.Named("auth")
	return &authService{AuthDeps: deps}
}

// Register creates a new user with a hashed password. The initial status
// depends on the role and the engineer approval setting.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := strings.TrimSpace(in.Email)
	if !in.Role.Valid() {
		return nil, errors.ErrInvalidInput
	}

	existing, err := s.Users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		s.Audit.Record(ctx, audit.Entry{
			Action:  model.ActionRegister,
			Level:   model.LogLevelWarning,
			Message: "registration rejected: email already registered",
			UserID:  audit.Ref(existing.ID),
		})
		return nil, errors.ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.Logger.Error("check email existence", zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	settings, err := s.Settings.Get(ctx)
	if err != nil {
		s.Logger.Error("read system settings", zap.Error(err))
		return nil, errors.Wrap(errors.ErrSettingsUnavailable, err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.Logger.Error("hash password", zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	status := model.StatusActive
	if in.Role == model.RoleEngineer && settings.EngineerApprovalRequired {
		status = model.StatusPendingApproval
	}

	user := &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       status,
		Phone:        in.Phone,
	}

	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.Audit.Record(ctx, audit.Entry{
				Action:  model.ActionRegister,
				Level:   model.LogLevelWarning,
				Message: "registration rejected: email already registered",
			})
			return nil, errors.ErrEmailExists
		}
		s.Logger.Error("create user", zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	s.Audit.Record(ctx, audit.Entry{
		Action:  model.ActionRegister,
		Level:   model.LogLevelSuccess,
		Message: fmt.Sprintf("user registered with role %s and status %s", user.Role, user.Status),
		UserID:  audit.Ref(user.ID),
	})

	return &RegisterResult{
		UserID:          user.ID,
		PendingApproval: status == model.StatusPendingApproval,
		Profile:         user.Profile(),
	}, nil
}

// Login authenticates a user and issues an access and refresh token pair.
// Unknown email and wrong password stay distinct outcomes.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.Logger.Error("find user by email", zap.Error(err))
			return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
		}
		// equalize timing with the wrong-password path
		s.Hasher.Verify(password, s.dummy())
		s.Audit.Record(ctx, audit.Entry{
			Action:  model.ActionLogin,
			Level:   model.LogLevelWarning,
			Message: "login failed: email not found",
		})
		return nil, errors.ErrEmailNotFound
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		s.Audit.Record(ctx, audit.Entry{
			Action:  model.ActionLogin,
			Level:   model.LogLevelWarning,
			Message: "login failed: invalid password",
			UserID:  audit.Ref(user.ID),
		})
		return nil, errors.ErrInvalidPassword
	}

	if err := statusError(user.Status); err != nil {
		s.Audit.Record(ctx, audit.Entry{
			Action:  model.ActionLogin,
			Level:   model.LogLevelWarning,
			Message: fmt.Sprintf("login refused: account status %s", user.Status),
			UserID:  audit.Ref(user.ID),
		})
		return nil, err
	}

	access, err := s.JWT.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	tokenID, refresh, err := s.JWT.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.Sessions.StoreRefreshToken(ctx, tokenID, user.ID, auth.RefreshTokenExpiry); err != nil {
		s.Logger.Error("store refresh token", zap.Error(err))
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	s.Audit.Record(ctx, audit.Entry{
		Action:  model.ActionLogin,
		Level:   model.LogLevelSuccess,
		Message: "login succeeded",
		UserID:  audit.Ref(user.ID),
	})

	return &LoginResult{
		Profile:      user.Profile(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Refresh exchanges a stored refresh token for a new access token. The
// user's status is checked again so suspended accounts lose access.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.JWT.ValidateRefreshToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", errors.ErrInvalidToken
	}

	storedUserID, err := s.Sessions.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", errors.ErrInvalidToken
	}
	if storedUserID.String() != claims.UserID {
		return "", errors.ErrInvalidToken
	}

	user, err := s.Users.FindByID(ctx, storedUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.ErrInvalidToken
		}
		return "", errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	if err := statusError(user.Status); err != nil {
		_ = s.Sessions.DeleteRefreshToken(ctx, claims.ID)
		return "", err
	}

	access, err := s.JWT.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return access, nil
}

// Logout invalidates the refresh token and blacklists the current access
// token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, refreshToken string, accessClaims *auth.Claims) error {
	if refreshToken != "" {
		claims, err := s.JWT.ValidateRefreshToken(refreshToken)
		if err != nil || claims.ID == "" {
			return errors.ErrInvalidToken
		}
		if err := s.Sessions.DeleteRefreshToken(ctx, claims.ID); err != nil {
			return errors.Wrap(errors.ErrPersistenceFailure, err)
		}
	}

	if accessClaims != nil && accessClaims.ID != "" {
		if ttl := auth.RemainingTTL(accessClaims); ttl > 0 {
			if err := s.Sessions.BlacklistAccessToken(ctx, accessClaims.ID, ttl); err != nil {
				return errors.Wrap(errors.ErrPersistenceFailure, err)
			}
		}
		if id, err := accessClaims.UserUUID(); err == nil {
			s.Audit.Record(ctx, audit.Entry{
				Action:  model.ActionLogout,
				Level:   model.LogLevelInfo,
				Message: "user logged out",
				UserID:  audit.Ref(id),
			})
		}
	}
	return nil
}

// statusError maps a non-active status to its login error, in precedence order.
func statusError(status model.Status) error {
	switch status {
	case model.StatusActive:
		return nil
	case model.StatusPendingApproval:
		return errors.ErrPendingApproval
	case model.StatusSuspended:
		return errors.ErrAccountSuspended
	case model.StatusDeleted:
		return errors.ErrAccountDeleted
	default:
		return errors.ErrNotActive
	}
}

// revokeSessions ends every refresh token of the user. The triggering change
// is already committed, so a failure is only logged.
func revokeSessions(ctx context.Context, sessions auth.TokenStoreInterface, id uuid.UUID, logger *zap.Logger) {
	if sessions == nil {
		return
	}
	if err := sessions.RevokeSessions(ctx, id); err != nil {
		logger.Error("revoke sessions", zap.String("user_id", id.String()), zap.Error(err))
	}
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.Hasher.Hash("muhtaref-dummy-password")
		if err != nil {
			s.Logger.Warn("dummy hash unavailable", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
