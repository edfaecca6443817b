package models

import "time"

// PendingRefund is a refund whose compensating transaction failed. The reconciler retries it
// until ResolvedAt is set.
type PendingRefund struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	AssetID       string     `gorm:"size:36;not null" json:"asset_id"`
	CorrelationID string     `gorm:"size:36;uniqueIndex;not null" json:"correlation_id"`
	Amount        int        `gorm:"not null" json:"amount"`
	Reason        string     `gorm:"size:512" json:"reason"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"size:512" json:"last_error"`
	ResolvedAt    *time.Time `gorm:"index" json:"resolved_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (PendingRefund) TableName() string {
	return "pending_refunds"
}
