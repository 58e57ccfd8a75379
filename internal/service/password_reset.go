package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"muhtaref/internal/audit"
	"muhtaref/internal/auth"
	"muhtaref/internal/errors"
	"muhtaref/internal/mail"
	"muhtaref/internal/model"
)

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 6

// ResetRequestMessage is returned for every forgot-password request, whether
// or not the email belongs to an account.
const ResetRequestMessage = "if the email is registered, a password reset link has been sent to it"

// resetDispatchTimeout bounds the background work of one reset request.
const resetDispatchTimeout = 30 * time.Second

// RequestPasswordReset always reports success. Everything after the email
// lookup runs in the background, so the response time does not depend on
// whether the email is registered. Store and mail failures are logged and
// audited but never reach the caller.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) *ResetRequestResult {
	user, err := s.Users.FindByEmail(ctx, strings.TrimSpace(email))

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.Logger.Error("password reset dispatch panicked", zap.Any("panic", r))
			}
		}()

		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetDispatchTimeout)
		defer cancel()
		s.completeResetRequest(bg, user, err)
	}()

	return &ResetRequestResult{Success: true, Message: ResetRequestMessage}
}

// Drain waits until background reset requests have finished or ctx is done.
func (s *authService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *authService) completeResetRequest(ctx context.Context, user *model.User, lookupErr error) {
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			s.Audit.Record(ctx, audit.Entry{
				Action:  model.ActionPasswordResetRequest,
				Level:   model.LogLevelInfo,
				Message: "password reset requested for non-existent email",
			})
		} else {
			s.Logger.Error("password reset lookup failed", zap.Error(lookupErr))
		}
		return
	}

	// deleted accounts can never redeem a token
	if user.Status == model.StatusDeleted {
		s.Audit.Record(ctx, audit.Entry{
			Action:  model.ActionPasswordResetRequest,
			Level:   model.LogLevelInfo,
			Message: "password reset requested for deleted account",
			UserID:  audit.Ref(user.ID),
		})
		return
	}

	token, err := s.ResetTokens.IssueResetToken(ctx, user.ID, user.Email, auth.ResetTokenExpiry)
	if err != nil {
		s.Logger.Error("issue reset token", zap.String("user_id", user.ID.String()), zap.Error(err))
		s.auditResetFailure(ctx, user, "password reset token could not be stored")
		return
	}

	link := s.AppBaseURL + "/reset-password?token=" + url.QueryEscape(token)
	msg, err := mail.RenderPasswordReset(user.Email, user.Name, link, auth.ResetTokenExpiry)
	if err != nil {
		s.Logger.Error("render reset email", zap.Error(err))
		s.auditResetFailure(ctx, user, "password reset email could not be rendered")
		return
	}

	if err := s.send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			s.Logger.Error("mail transport not configured",
				zap.Strings("missing", mail.MissingSettings(err)),
				zap.String("user_id", user.ID.String()),
			)
			s.auditResetFailure(ctx, user, errors.ErrMailConfigurationMissing.Message)
		} else {
			s.Logger.Error("send reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
			s.auditResetFailure(ctx, user, errors.ErrMailDispatchFailure.Message)
		}
		return
	}

	s.Audit.Record(ctx, audit.Entry{
		Action:  model.ActionPasswordResetRequest,
		Level:   model.LogLevelInfo,
		Message: "password reset email sent",
		UserID:  audit.Ref(user.ID),
	})
}

// RedeemPasswordReset consumes a reset token and sets the new password. A
// token is usable once; any failure after redemption requires a new request.
func (s *authService) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return errors.ErrInvalidInput
	}

	rt, err := s.ResetTokens.RedeemResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) {
			return errors.ErrInvalidToken
		}
		s.Logger.Error("redeem reset token", zap.Error(err))
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	user, err := s.Users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrInvalidToken
		}
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	if user.Status == model.StatusDeleted || user.Email != rt.Email {
		return errors.ErrInvalidToken
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	if err := s.Users.UpdateFields(ctx, user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		s.Logger.Error("update password", zap.Error(err))
		return errors.Wrap(errors.ErrPersistenceFailure, err)
	}
	revokeSessions(ctx, s.Sessions, user.ID, s.Logger)

	s.Audit.Record(ctx, audit.Entry{
		Action:  model.ActionPasswordReset,
		Level:   model.LogLevelSuccess,
		Message: "password reset with emailed token",
		UserID:  audit.Ref(user.ID),
	})
	return nil
}

func (s *authService) send(ctx context.Context, msg mail.Message) error {
	if s.Mailer == nil {
		return &mail.ConfigError{Transport: "none", Missing: []string{"MAIL_TRANSPORT"}}
	}
	return s.Mailer.Send(ctx, msg)
}

func (s *authService) auditResetFailure(ctx context.Context, user *model.User, message string) {
	s.Audit.Record(ctx, audit.Entry{
		Action:  model.ActionPasswordResetRequest,
		Level:   model.LogLevelError,
		Message: message,
		UserID:  audit.Ref(user.ID),
	})
}
