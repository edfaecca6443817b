package models

import (
	"time"

	"adgen/internal/domain"

	"gorm.io/datatypes"
)

// Asset is one generated photo or video ad. It is created PROCESSING after the debit and
// resolves to READY or FAILED.
type Asset struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	TemplateID    *string        `gorm:"size:64;index" json:"template_id"`
	Kind          string         `gorm:"size:10;not null;index" json:"kind"` // PHOTO, VIDEO
	Title         string         `gorm:"size:255;not null" json:"title"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Width         int            `gorm:"not null" json:"width"`
	Height        int            `gorm:"not null" json:"height"`
	Aspect        string         `gorm:"size:20;not null" json:"aspect"`
	CostTokens    int            `gorm:"not null" json:"cost_tokens"`
	Status        string         `gorm:"size:20;not null;index" json:"status"` // PROCESSING, READY, FAILED
	URL           string         `gorm:"size:1024" json:"url"`
	ThumbURL      string         `gorm:"size:1024" json:"thumb_url"`
	Meta          datatypes.JSON `json:"meta"` // template config + brand snapshot
	CorrelationID string         `gorm:"size:36;uniqueIndex;not null" json:"-"`
	FailureReason string         `gorm:"size:512" json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Asset) TableName() string {
	return "assets"
}

func (a *Asset) IsTerminal() bool {
	return a.Status == domain.AssetStatusReady || a.Status == domain.AssetStatusFailed
}
