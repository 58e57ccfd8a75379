package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"muhtaref/internal/model"
)

// LogFilter narrows audit log listings.
type LogFilter struct {
	Level  model.LogLevel
	Action string
	UserID *uuid.UUID
	Limit  int
	Offset int
}

// AuditLogRepository defines audit log persistence. Entries are never updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter LogFilter) ([]model.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) List(ctx context.Context, filter LogFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.Level != "" {
		q = q.Where("level = ?", filter.Level)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []model.AuditLog
	if err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
