package repository

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"adgen/internal/domain"
	"adgen/internal/models"

	"gorm.io/gorm"
)

var ErrInsufficientTokens = errors.New("insufficient tokens")

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Debit takes amount tokens from the user and writes a pending generation entry tagged with
// correlationID, all in one transaction. The balance guard lives in the UPDATE itself so two
// concurrent debits cannot both pass against the same balance.
func (r *LedgerRepository) Debit(ctx context.Context, userID uint, amount int, correlationID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND tokens >= ?", userID, amount).
			UpdateColumn("tokens", gorm.Expr("tokens - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrUserNotFound
			}
			return ErrInsufficientTokens
		}
		cid := correlationID
		return tx.Create(&models.LedgerEntry{
			UserID:        userID,
			Delta:         -amount,
			Reason:        domain.LedgerReasonGeneration,
			Ref:           domain.LedgerRefPending,
			CorrelationID: &cid,
		}).Error
	})
}

// RefundParams identifies the debit being compensated.
type RefundParams struct {
	UserID        uint
	CorrelationID string
	Amount        int
	Reason        string // stored on the asset as failure_reason
}

// Refund credits the tokens back, writes the refund entry and marks the correlated asset
// FAILED in one transaction. The pending debit is claimed first, so a debit that was already
// settled by MarkReady or by an earlier refund reports false without changes.
func (r *LedgerRepository) Refund(ctx context.Context, p RefundParams) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.LedgerEntry{}).
			Where("user_id = ? AND correlation_id = ? AND reason = ? AND ref = ?",
				p.UserID, p.CorrelationID, domain.LedgerReasonGeneration, domain.LedgerRefPending).
			Update("ref", domain.LedgerRefGenerationFailed)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}
		// soft-deleted accounts still get their tokens back
		res := tx.Unscoped().Model(&models.User{}).
			Where("id = ?", p.UserID).
			UpdateColumn("tokens", gorm.Expr("tokens + ?", p.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		cid := p.CorrelationID
		if err := tx.Create(&models.LedgerEntry{
			UserID:        p.UserID,
			Delta:         p.Amount,
			Reason:        domain.LedgerReasonRefund,
			Ref:           domain.LedgerRefGenerationFailed,
			CorrelationID: &cid,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Asset{}).
			Where("correlation_id = ? AND status = ?", p.CorrelationID, domain.AssetStatusProcessing).
			Updates(map[string]interface{}{
				"status":         domain.AssetStatusFailed,
				"failure_reason": truncate(p.Reason, 512),
			}).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *LedgerRepository) ListByCorrelation(ctx context.Context, correlationID string) ([]models.LedgerEntry, error) {
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).Where("correlation_id = ?", correlationID).Order("id ASC").Find(&list).Error
	return list, err
}

// ListOrphanDebits returns generation debits still pending before cutoff that have no refund.
// These belong to requests that died between the debit and settling.
func (r *LedgerRepository) ListOrphanDebits(ctx context.Context, cutoff time.Time, limit int) ([]models.LedgerEntry, error) {
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reason = ? AND ref = ? AND created_at < ? AND correlation_id IS NOT NULL",
			domain.LedgerReasonGeneration, domain.LedgerRefPending, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM ledger_entries r WHERE r.correlation_id = ledger_entries.correlation_id AND r.reason = ?)",
			domain.LedgerReasonRefund).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := max
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
