package models

import "time"

// LedgerEntry records one token balance change. Rows are append-only; the only in-place
// change is rewriting Ref from "pending" to the asset id once a generation succeeds.
type LedgerEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Delta         int       `gorm:"not null" json:"delta"`                                                         // negative = debit, positive = credit
	Reason        string    `gorm:"size:20;not null;uniqueIndex:idx_ledger_correlation_reason,priority:2" json:"reason"` // generation, refund, grant
	Ref           string    `gorm:"size:64;not null;index" json:"ref"`                                             // pending, asset id, generation_failed, signup
	CorrelationID *string   `gorm:"size:36;uniqueIndex:idx_ledger_correlation_reason,priority:1" json:"correlation_id,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
