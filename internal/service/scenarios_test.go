package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"muhtaref/internal/audit"
	apperrors "muhtaref/internal/errors"
	"muhtaref/internal/model"
)

// TestAccountLifecycle walks through registration, approval, login and
// password recovery against in-memory stores.
func TestAccountLifecycle(t *testing.T) {
	users := newMemoryUsers()
	admin := seedUser(t, users, "admin@example.com", "adminpass", model.RoleAdmin, model.StatusActive)
	settings := new(MockSettingsRepository)
	settings.On("Get", mock.Anything).Return(approval(true), nil)
	sender := new(MockSender)

	f := newAuthFixture(t, users, settings, sender)
	admins := NewAdminService(users, nil, testHasher(), nil, f.tokens, audit.NewRecorder(f.sink, nil), nil)
	ctx := context.Background()

	// 1. engineer registration waits for approval
	reg, err := f.svc.Register(ctx, RegisterInput{Name: "Engineer", Email: "engineer@example.com", Password: "secret123", Role: model.RoleEngineer})
	require.NoError(t, err)
	assert.True(t, reg.PendingApproval)
	stored, err := users.FindByID(ctx, reg.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingApproval, stored.Status)

	// 2. pending engineers cannot log in
	_, err = f.svc.Login(ctx, "engineer@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrPendingApproval)

	// 3. approval unlocks login
	require.NoError(t, admins.ApproveEngineer(ctx, admin.ID, reg.UserID))
	login, err := f.svc.Login(ctx, "engineer@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, login.Profile.Status)

	// 4. a second registration with the same email is refused
	_, err = f.svc.Register(ctx, RegisterInput{Name: "Owner", Email: "owner@example.com", Password: "secret123", Role: model.RoleOwner})
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, RegisterInput{Name: "Owner", Email: "owner@example.com", Password: "other123", Role: model.RoleOwner})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
	assert.Equal(t, 1, users.countEmail("owner@example.com"))

	// 5. unknown email still gets the generic answer and no mail
	result := f.svc.RequestPasswordReset(ctx, "nobody@nowhere.com")
	require.NoError(t, f.svc.Drain(ctx))
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "if the email is registered")
	assert.NotEmpty(t, f.sink.find(model.ActionPasswordResetRequest, model.LogLevelInfo))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	// 6. wrong password is audited against the user
	owner, err := users.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "owner@example.com", "wrongpassword")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
	var tied int
	for _, e := range f.sink.find(model.ActionLogin, model.LogLevelWarning) {
		if e.UserID != nil && *e.UserID == owner.ID {
			tied++
		}
	}
	assert.Equal(t, 1, tied)
}
