package repository

import (
	"context"
	"errors"

	"adgen/internal/domain"
	"adgen/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithGrant inserts the user holding grant tokens and records the grant in the ledger
// in the same transaction.
func (r *UserRepository) CreateWithGrant(ctx context.Context, u *models.User, grant int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u.Tokens = grant
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if grant <= 0 {
			return nil
		}
		return tx.Create(&models.LedgerEntry{
			UserID: u.ID,
			Delta:  grant,
			Reason: domain.LedgerReasonGrant,
			Ref:    domain.LedgerRefSignup,
		}).Error
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// TokenBalance reads the current balance. Returns ErrUserNotFound for unknown ids.
func (r *UserRepository) TokenBalance(ctx context.Context, userID uint) (int, error) {
	var u models.User
	err := r.db.WithContext(ctx).Select("id", "tokens").First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return u.Tokens, nil
}

// LinkGoogle attaches a Google identity to an existing account.
func (r *UserRepository) LinkGoogle(ctx context.Context, userID uint, googleID, avatarURL string) error {
	updates := map[string]interface{}{"google_id": googleID}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *UserRepository) UpdateBrand(ctx context.Context, userID uint, name string, colors datatypes.JSON, logo string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"brand_name":   name,
		"brand_colors": colors,
		"brand_logo":   logo,
	}).Error
}

func (r *UserRepository) UpdateBrandLogo(ctx context.Context, userID uint, logo string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("brand_logo", logo).Error
}
