package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:128" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	GoogleID     *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups
	AvatarURL    string         `gorm:"size:512" json:"avatar_url"`
	Tokens       int            `gorm:"not null;default:0" json:"tokens"` // only moved through ledger writes
	BrandName    string         `gorm:"size:128" json:"brand_name"`
	BrandColors  datatypes.JSON `json:"brand_colors"` // JSON array of hex colours
	BrandLogo    string         `gorm:"size:512" json:"brand_logo"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
