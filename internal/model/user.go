package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the capability class of an account.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleEngineer    Role = "ENGINEER"
	RoleOwner       Role = "OWNER"
	RoleGeneralUser Role = "GENERAL_USER"
)

// Status is the lifecycle state of an account. Only StatusActive permits login.
type Status string

const (
	StatusActive          Status = "ACTIVE"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusSuspended       Status = "SUSPENDED"
	StatusDeleted         Status = "DELETED"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEngineer, RoleOwner, RoleGeneralUser:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPendingApproval, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// ParseRole converts a role spelled by an API client ("engineer", "General-User")
// into the canonical value.
func ParseRole(s string) (Role, error) {
	r := Role(canonical(s))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ParseStatus converts a status spelled by an API client into the canonical value.
func ParseStatus(s string) (Status, error) {
	st := Status(canonical(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

func canonical(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// User represents one account of the platform.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"type:varchar(255) COLLATE utf8mb4_bin;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	Status       Status    `json:"status" gorm:"type:varchar(20);not null;index"`
	Phone        *string   `json:"phone,omitempty" gorm:"size:32"`
	ProfileImage *string   `json:"profile_image,omitempty" gorm:"size:512"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile is the public view of a user returned to callers outside the store.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	Phone        *string   `json:"phone,omitempty"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile projects the user onto its public fields.
func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Status:       u.Status,
		Phone:        u.Phone,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}
