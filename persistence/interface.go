// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/fishserver/models"
)

// 错误定义
var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateOrder      = errors.New("order id already exists")
)

// Database 数据库接口
//
// Balance mutations are atomic at the store level so two engine processes
// sharing one database cannot race a persisted balance; the in-memory
// residency rules handle the rest.
type Database interface {
	GetPlayer(userID string) (*models.GormPlayer, error)
	UpsertPlayer(p *models.GormPlayer) error
	SaveBalance(userID string, balance int64) error
	// AdjustBalance applies a signed delta and returns the new balance.
	AdjustBalance(userID string, delta int64) (int64, error)
	// DebitIfRetains subtracts amount only when the remainder stays at or
	// above retain. Returns ErrInsufficientBalance otherwise.
	DebitIfRetains(userID string, amount, retain int64) (int64, error)
	// AddRecharge grows the lifetime recharge total and returns the row so
	// the caller can recompute the VIP level.
	AddRecharge(userID string, amount int64) (*models.GormPlayer, error)
	SetVipLevel(userID string, level int) error

	GetTransaction(orderID string) (*models.GormWalletTransaction, error)
	CreateTransaction(t *models.GormWalletTransaction) error
	UpdateTransactionStatus(orderID, status string) error

	Close() error
}
