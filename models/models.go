// models/models.go
package models

import (
	"time"
)

// Occupant is a player's authoritative in-room state. The owning room's
// lock guards every field; nothing outside the room mutates a resident
// occupant's score.
type Occupant struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	SeatIndex int    `json:"seatIndex"`
	// Score is the scaled in-room balance.
	Score int64 `json:"score"`
	// Gold mirrors the platform wallet balance for display only; gameplay
	// never spends it.
	Gold       int64 `json:"gold"`
	CannonKind int   `json:"cannonKind"`
	VipLevel   int   `json:"vip"`
	// TotalRecharge is the scaled lifetime recharge driving the VIP level.
	TotalRecharge int64 `json:"-"`
	// LaserPower accumulates fire cost toward the charge threshold.
	LaserPower  int64     `json:"power"`
	LastLaserAt time.Time `json:"-"`
	Online      bool      `json:"online"`
	JoinedAt    time.Time `json:"-"`
}

// Fish is a live capturable target.
type Fish struct {
	FishID   int64     `json:"fishId"`
	FishKind int       `json:"fishKind"`
	TraceID  int       `json:"trace"`
	Speed    int       `json:"speed"`
	SpawnAt  time.Time `json:"-"`
}

// Bullet is a single fired shot, consumed by at most one catch.
type Bullet struct {
	BulletID   int64     `json:"bulletId"`
	UserID     string    `json:"userId"`
	CannonKind int       `json:"cannonKind"`
	Multiplier int64     `json:"multiplier"`
	// Cost is the scaled amount deducted when the shot was fired.
	Cost      int64     `json:"cost"`
	SeatIndex int       `json:"seatIndex"`
	FiredAt   time.Time `json:"-"`
}

// SeatSnapshot is the per-seat view pushed to clients. Empty seats carry a
// zero user id and Online=false.
type SeatSnapshot struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	SeatIndex  int    `json:"seatIndex"`
	Score      int64  `json:"score"`
	Gold       int64  `json:"gold"`
	CannonKind int    `json:"cannonKind"`
	VipLevel   int    `json:"vip"`
	LaserPower int64  `json:"power"`
	Online     bool   `json:"online"`
}

// Snapshot converts an occupant to its client-facing seat view.
func (o *Occupant) Snapshot() SeatSnapshot {
	return SeatSnapshot{
		UserID:     o.UserID,
		Name:       o.Name,
		SeatIndex:  o.SeatIndex,
		Score:      o.Score,
		Gold:       o.Gold,
		CannonKind: o.CannonKind,
		VipLevel:   o.VipLevel,
		LaserPower: o.LaserPower,
		Online:     o.Online,
	}
}

// EmptySeat fills unoccupied slots in room snapshots.
func EmptySeat(index int) SeatSnapshot {
	return SeatSnapshot{SeatIndex: index, CannonKind: 1}
}

// Transfer direction values for wallet transactions.
const (
	DirectionDeposit  = "DEPOSIT"
	DirectionWithdraw = "WITHDRAW"
)

// Wallet transaction statuses. COMPLETED, REFUNDED and FAILED are terminal.
const (
	StatusPendingGame     = "PENDING_GAME"
	StatusPendingPlatform = "PENDING_PLATFORM"
	StatusCompleted       = "COMPLETED"
	StatusRefunded        = "REFUNDED"
	StatusFailed          = "FAILED"
)

// TerminalStatus reports whether a ledger entry may no longer change.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusRefunded, StatusFailed:
		return true
	}
	return false
}
