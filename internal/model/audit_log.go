package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogLevel grades an audit entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
	LogLevelSuccess LogLevel = "SUCCESS"
)

// Audit actions recorded by the account lifecycle services.
const (
	ActionRegister             = "USER_REGISTER"
	ActionLogin                = "USER_LOGIN"
	ActionLogout               = "USER_LOGOUT"
	ActionPasswordResetRequest = "PASSWORD_RESET_REQUEST"
	ActionPasswordReset        = "PASSWORD_RESET"
	ActionAdminPasswordReset   = "ADMIN_PASSWORD_RESET"
	ActionApproveEngineer      = "ENGINEER_APPROVED"
	ActionSuspendUser          = "USER_SUSPENDED"
	ActionReactivateUser       = "USER_REACTIVATED"
	ActionDeleteUser           = "USER_DELETED"
	ActionChangeRole           = "USER_ROLE_CHANGED"
	ActionUpdateSettings       = "SETTINGS_UPDATED"
	ActionUpdateProfile        = "PROFILE_UPDATED"
)

// AuditLog is an append-only record of a security relevant action.
// All attempts are logged regardless of success or failure.
type AuditLog struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Action    string     `json:"action" gorm:"type:varchar(64);not null;index"`
	Level     LogLevel   `json:"level" gorm:"type:varchar(16);not null;index"`
	Message   string     `json:"message" gorm:"type:text"`
	UserID    *uuid.UUID `json:"user_id,omitempty" gorm:"type:char(36);index"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
