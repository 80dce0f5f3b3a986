// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayer is the persisted player row. Balance and TotalRecharge are
// scaled integers so the database and the in-memory ledger never disagree
// by float drift.
type GormPlayer struct {
	gorm.Model
	UserID        string `gorm:"uniqueIndex;size:64;not null"`
	Name          string `gorm:"size:64;not null"`
	Balance       int64  `gorm:"not null;default:0"`
	TotalRecharge int64  `gorm:"not null;default:0"`
	VipLevel      int    `gorm:"not null;default:0"`
}

func (GormPlayer) TableName() string {
	return "players"
}

// GormWalletTransaction is one cross-system transfer. OrderID is the
// idempotency key: a given order reaches a terminal status at most once.
type GormWalletTransaction struct {
	gorm.Model
	OrderID     string `gorm:"uniqueIndex;size:128;not null"`
	UserID      string `gorm:"index;size:64;not null"`
	Amount      int64  `gorm:"not null"`
	Direction   string `gorm:"size:16;not null"`
	Status      string `gorm:"size:24;not null"`
	Signature   string `gorm:"size:128"`
	Description string `gorm:"size:255"`
}

func (GormWalletTransaction) TableName() string {
	return "wallet_transactions"
}
