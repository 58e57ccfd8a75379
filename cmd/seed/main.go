package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"muhtaref/internal/auth"
	"muhtaref/internal/config"
	"muhtaref/internal/db"
	"muhtaref/internal/logging"
	"muhtaref/internal/model"
	"muhtaref/internal/repository"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting seed script")

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close(gormDB) }()

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := repository.NewSettingsRepository(gormDB).Get(ctx)
	if err != nil {
		logger.Fatal("ensure system settings", zap.Error(err))
	}
	logger.Info("system settings ready", zap.Bool("engineer_approval_required", settings.EngineerApprovalRequired))

	if cfg.SeedAdmin.Email == "" || cfg.SeedAdmin.Password == "" {
		logger.Warn("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping administrator")
		return
	}

	created, err := seedAdmin(ctx, repository.NewUserRepository(gormDB), auth.NewBcryptHasher(auth.BcryptCost), cfg.SeedAdmin)
	if err != nil {
		logger.Fatal("seed administrator", zap.Error(err))
	}
	logger.Info("seed completed", zap.String("email", cfg.SeedAdmin.Email), zap.Bool("created", created))
}

// seedAdmin creates the bootstrap administrator or, when the email is
// already registered, promotes that account and resets its password.
func seedAdmin(ctx context.Context, users repository.UserRepository, hasher auth.PasswordHasher, admin config.SeedAdminConfig) (bool, error) {
	if len(admin.Password) < 6 {
		return false, fmt.Errorf("administrator password must have at least 6 characters")
	}
	hash, err := hasher.Hash(admin.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	email := strings.TrimSpace(admin.Email)
	existing, err := users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("error checking user %s: %w", email, err)
	}

	if existing != nil {
		err := users.UpdateFields(ctx, existing.ID, map[string]interface{}{
			"password_hash": hash,
			"role":          model.RoleAdmin,
			"status":        model.StatusActive,
		})
		if err != nil {
			return false, fmt.Errorf("error updating user %s: %w", email, err)
		}
		return false, nil
	}

	user := &model.User{
		ID:           uuid.New(),
		Name:         admin.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
	}
	if err := users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("error creating user %s: %w", email, err)
	}
	return true, nil
}
