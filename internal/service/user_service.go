package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"muhtaref/internal/audit"
	"muhtaref/internal/cache"
	"muhtaref/internal/errors"
	"muhtaref/internal/model"
	"muhtaref/internal/repository"
)

const profileCacheTTL = 5 * time.Minute

// ProfileUpdate holds the self-editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name         *string
	Phone        *string
	ProfileImage *string
}

// UserService exposes the caller's own profile. Only ACTIVE accounts may read
// or edit it, so a suspension takes effect before the access token expires.
type UserService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.Profile, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	audit *audit.Recorder
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, recorder *audit.Recorder) UserService {
	return &userService{repo: repo, cache: cache, audit: recorder}
}

func profileCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("profile:%s", id.String())
}

func invalidateProfile(ctx context.Context, c *cache.Client, id uuid.UUID) {
	if c == nil {
		return
	}
	_ = c.Delete(ctx, profileCacheKey(id))
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := statusError(profile.Status); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *userService) loadProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	if s.cache != nil {
		if data, _ := s.cache.Get(ctx, profileCacheKey(id)); data != nil {
			var cached model.Profile
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
	}

	profile := user.Profile()
	if s.cache != nil {
		if payload, err := json.Marshal(profile); err == nil {
			_ = s.cache.Set(ctx, profileCacheKey(id), payload, profileCacheTTL)
		}
	}
	return &profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.Profile, error) {
	if _, err := s.GetProfile(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if len([]rune(name)) < 3 {
			return nil, errors.ErrInvalidInput
		}
		fields["name"] = name
	}
	if update.Phone != nil {
		fields["phone"] = optional(*update.Phone)
	}
	if update.ProfileImage != nil {
		fields["profile_image"] = optional(*update.ProfileImage)
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.ErrUserNotFound
			}
			return nil, errors.Wrap(errors.ErrPersistenceFailure, err)
		}
		invalidateProfile(ctx, s.cache, id)
		s.audit.Record(ctx, audit.Entry{
			Action:  model.ActionUpdateProfile,
			Level:   model.LogLevelInfo,
			Message: "profile updated",
			UserID:  audit.Ref(id),
		})
	}

	return s.GetProfile(ctx, id)
}

// optional maps an empty string to SQL NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
