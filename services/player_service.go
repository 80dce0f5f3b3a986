// services/player_service.go
package services

import (
	"errors"

	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/logger"
	"github.com/wfunc/fishserver/models"
	"github.com/wfunc/fishserver/persistence"
)

// PlayerService sits between the game handler and the store. It owns the
// welcome-bonus rule and keeps the persisted VIP level in step with the
// lifetime recharge total.
type PlayerService struct {
	db persistence.Database
	// welcomeBonus is the scaled amount seeded into brand-new wallets.
	welcomeBonus int64
}

func NewPlayerService(db persistence.Database, welcomeBonus int64) *PlayerService {
	return &PlayerService{db: db, welcomeBonus: welcomeBonus}
}

// LoadOrCreate 获取玩家，不存在则创建
//
// A player seen for the first time gets the welcome bonus so they can
// play immediately without a platform deposit.
func (s *PlayerService) LoadOrCreate(userID, name string) (*models.GormPlayer, error) {
	player, err := s.db.GetPlayer(userID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		player = &models.GormPlayer{
			UserID:   userID,
			Name:     name,
			Balance:  s.welcomeBonus,
			VipLevel: 0,
		}
		if err := s.db.UpsertPlayer(player); err != nil {
			return nil, err
		}
		logger.Log.Infow("created player",
			"user_id", userID,
			"welcome_bonus", s.welcomeBonus)
		return player, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if name != "" && name != player.Name {
		player.Name = name
		changed = true
	}
	// A fully drained wallet is re-seeded so the player can keep playing.
	if player.Balance == 0 && s.welcomeBonus > 0 {
		player.Balance = s.welcomeBonus
		changed = true
	}
	if changed {
		if err := s.db.UpsertPlayer(player); err != nil {
			return nil, err
		}
	}
	return player, nil
}

// SaveScore persists a room exit: the occupant's live score becomes the
// stored balance.
func (s *PlayerService) SaveScore(userID string, score int64) error {
	return s.db.SaveBalance(userID, score)
}

// Credit applies a signed delta and returns the new balance.
func (s *PlayerService) Credit(userID string, delta int64) (int64, error) {
	return s.db.AdjustBalance(userID, delta)
}

// DebitIfRetains subtracts amount only when the remainder stays at or
// above retain.
func (s *PlayerService) DebitIfRetains(userID string, amount, retain int64) (int64, error) {
	return s.db.DebitIfRetains(userID, amount, retain)
}

// AddRecharge grows the lifetime recharge total and recomputes the VIP
// level from it. Returns the updated player.
func (s *PlayerService) AddRecharge(userID string, amount int64) (*models.GormPlayer, error) {
	player, err := s.db.AddRecharge(userID, amount)
	if err != nil {
		return nil, err
	}

	level := ledger.VipLevel(player.TotalRecharge)
	if level != player.VipLevel {
		if err := s.db.SetVipLevel(userID, level); err != nil {
			return nil, err
		}
		player.VipLevel = level
		logger.Log.Infow("vip level up",
			"user_id", userID,
			"vip_level", level)
	}
	return player, nil
}

// PlayerStats is the admin view exposed over RPC.
type PlayerStats struct {
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	Balance       float64 `json:"balance"`
	TotalRecharge float64 `json:"total_recharge"`
	VipLevel      int     `json:"vip_level"`
	NextVip       float64 `json:"next_vip_threshold"`
}

// GetPlayerStats 获取玩家统计信息
func (s *PlayerService) GetPlayerStats(userID string) (*PlayerStats, error) {
	player, err := s.db.GetPlayer(userID)
	if err != nil {
		return nil, err
	}

	stats := &PlayerStats{
		UserID:        player.UserID,
		Name:          player.Name,
		Balance:       ledger.ToDisplay(player.Balance),
		TotalRecharge: ledger.ToDisplay(player.TotalRecharge),
		VipLevel:      player.VipLevel,
	}
	if player.VipLevel < ledger.MaxVipLevel {
		stats.NextVip = ledger.ToDisplay(ledger.VipThreshold(player.VipLevel + 1))
	}
	return stats, nil
}
