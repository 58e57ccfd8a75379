package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"muhtaref/internal/auth"
	"muhtaref/internal/config"
	"muhtaref/internal/model"
	"muhtaref/internal/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.User), args.Error(1)
}

var seedConfig = config.SeedAdminConfig{Name: "Administrator", Email: " admin@example.com ", Password: "secret123"}

func TestSeedAdmin_CreatesAdministrator(t *testing.T) {
	repo := new(MockUserRepository)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	repo.On("FindByEmail", mock.Anything, "admin@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RoleAdmin &&
			u.Status == model.StatusActive &&
			u.Email == "admin@example.com" &&
			hasher.Verify("secret123", u.PasswordHash)
	})).Return(nil)

	created, err := seedAdmin(context.Background(), repo, hasher, seedConfig)

	require.NoError(t, err)
	assert.True(t, created)
	repo.AssertExpectations(t)
}

func TestSeedAdmin_PromotesExistingUser(t *testing.T) {
	repo := new(MockUserRepository)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	existing := &model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleOwner, Status: model.StatusSuspended}

	repo.On("FindByEmail", mock.Anything, "admin@example.com").Return(existing, nil)
	repo.On("UpdateFields", mock.Anything, existing.ID, mock.MatchedBy(func(f map[string]interface{}) bool {
		hash, _ := f["password_hash"].(string)
		return f["role"] == model.RoleAdmin && f["status"] == model.StatusActive && hasher.Verify("secret123", hash)
	})).Return(nil)

	created, err := seedAdmin(context.Background(), repo, hasher, seedConfig)

	require.NoError(t, err)
	assert.False(t, created)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSeedAdmin_RejectsShortPassword(t *testing.T) {
	repo := new(MockUserRepository)

	_, err := seedAdmin(context.Background(), repo, auth.NewBcryptHasher(bcrypt.MinCost),
		config.SeedAdminConfig{Email: "admin@example.com", Password: "123"})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}
