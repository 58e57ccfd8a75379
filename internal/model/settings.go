package model

import (
	"time"

	"github.com/google/uuid"
)

// SettingsID is the primary key of the singleton settings row.
const SettingsID uint = 1

// SystemSettings holds global policy flags edited by administrators.
type SystemSettings struct {
	ID                       uint       `json:"-" gorm:"primaryKey;autoIncrement:false"`
	EngineerApprovalRequired bool       `json:"engineer_approval_required" gorm:"not null"`
	UpdatedBy                *uuid.UUID `json:"updated_by,omitempty" gorm:"type:char(36)"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// DefaultSettings is the row created on first read.
func DefaultSettings() SystemSettings {
	return SystemSettings{
		ID:                       SettingsID,
		EngineerApprovalRequired: true,
	}
}
