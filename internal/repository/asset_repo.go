package repository

import (
	"context"
	"errors"
	"time"

	"adgen/internal/domain"
	"adgen/internal/models"

	"gorm.io/gorm"
)

// ErrAssetNotProcessing means the asset was already settled, typically by the reconciler.
var ErrAssetNotProcessing = errors.New("asset is not processing")

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, a *models.Asset) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssetRepository) GetByCorrelation(ctx context.Context, correlationID string) (*models.Asset, error) {
	var a models.Asset
	err := r.db.WithContext(ctx).Where("correlation_id = ?", correlationID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetForUser returns the asset only when userID owns it.
func (r *AssetRepository) GetForUser(ctx context.Context, userID uint, id string) (*models.Asset, error) {
	var a models.Asset
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkReady stores the generated media and rewrites the correlated pending debit's ref to the
// asset id. Both writes commit together.
func (r *AssetRepository) MarkReady(ctx context.Context, a *models.Asset, url, thumbURL string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Asset{}).
			Where("id = ? AND status = ?", a.ID, domain.AssetStatusProcessing).
			Updates(map[string]interface{}{
				"status":    domain.AssetStatusReady,
				"url":       url,
				"thumb_url": thumbURL,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAssetNotProcessing
		}
		return tx.Model(&models.LedgerEntry{}).
			Where("user_id = ? AND reason = ? AND ref = ? AND correlation_id = ?",
				a.UserID, domain.LedgerReasonGeneration, domain.LedgerRefPending, a.CorrelationID).
			Update("ref", a.ID).Error
	})
}

// Stats backs the dashboard counters.
type Stats struct {
	TotalAssets int64 `json:"total_assets"`
	PhotoAds    int64 `json:"photo_ads"`
	VideoAds    int64 `json:"video_ads"`
	ThisWeek    int64 `json:"this_week"`
}

func (r *AssetRepository) StatsForUser(ctx context.Context, userID uint, now time.Time) (Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx).Model(&models.Asset{})
	if err := db.Where("user_id = ?", userID).Count(&s.TotalAssets).Error; err != nil {
		return s, err
	}
	db = r.db.WithContext(ctx).Model(&models.Asset{})
	if err := db.Where("user_id = ? AND kind = ?", userID, domain.AssetKindPhoto).Count(&s.PhotoAds).Error; err != nil {
		return s, err
	}
	db = r.db.WithContext(ctx).Model(&models.Asset{})
	if err := db.Where("user_id = ? AND kind = ?", userID, domain.AssetKindVideo).Count(&s.VideoAds).Error; err != nil {
		return s, err
	}
	db = r.db.WithContext(ctx).Model(&models.Asset{})
	weekAgo := now.AddDate(0, 0, -7)
	if err := db.Where("user_id = ? AND created_at > ?", userID, weekAgo).Count(&s.ThisWeek).Error; err != nil {
		return s, err
	}
	return s, nil
}
