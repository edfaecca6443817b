package repository

import (
	"context"
	"time"

	"adgen/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PendingRefundRepository struct {
	db *gorm.DB
}

func NewPendingRefundRepository(db *gorm.DB) *PendingRefundRepository {
	return &PendingRefundRepository{db: db}
}

// Enqueue records a refund to retry. A second enqueue for the same correlation id is a no-op.
func (r *PendingRefundRepository) Enqueue(ctx context.Context, p *models.PendingRefund) error {
	p.LastError = truncate(p.LastError, 512)
	p.Reason = truncate(p.Reason, 512)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error
}

func (r *PendingRefundRepository) ListUnresolved(ctx context.Context, limit int) ([]models.PendingRefund, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.PendingRefund
	err := r.db.WithContext(ctx).Where("resolved_at IS NULL").Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

// ListRetryable returns unresolved refunds that have not used up maxAttempts, least recently
// tried first.
func (r *PendingRefundRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]models.PendingRefund, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.PendingRefund
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL AND attempts < ?", maxAttempts).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *PendingRefundRepository) CountUnresolved(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PendingRefund{}).Where("resolved_at IS NULL").Count(&n).Error
	return n, err
}

func (r *PendingRefundRepository) MarkResolved(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PendingRefund{}).Where("id = ?", id).Updates(map[string]interface{}{
		"resolved_at": at,
		"attempts":    gorm.Expr("attempts + 1"),
	}).Error
}

func (r *PendingRefundRepository) RecordFailure(ctx context.Context, id uint, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.PendingRefund{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_error": truncate(errMsg, 512),
		"attempts":   gorm.Expr("attempts + 1"),
	}).Error
}
