// room/gameplay.go
package room

import (
	"time"

	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/models"
)

// Capture is one fish removed by a catch or laser sweep, with the scaled
// reward credited for it.
type Capture struct {
	FishID   int64
	FishKind int
	Reward   int64
}

type FireResult struct {
	Bullet *models.Bullet
	Score  int64
	Power  int64
}

type CatchResult struct {
	BulletID  int64
	SeatIndex int
	Captures  []Capture
	Score     int64
	Power     int64
	// Reconstructed is set when the bullet record was gone and the cost
	// had to be derived from the caller's current cannon. The caller
	// logs this; it is a leniency path, not the normal one.
	Reconstructed bool
}

// laserThreshold is the scaled charge needed for a laser sweep in this
// room's wager tier.
func (r *Room) laserThreshold() int64 {
	return ledger.LaserChargeUnits * r.BaseScore
}

// LaserThreshold exposes the scaled full-charge value.
func (r *Room) LaserThreshold() int64 {
	return r.laserThreshold()
}

// Fire deducts the shot cost, registers the bullet and accrues laser
// charge. The bullet id comes from the engine-global allocator so ids are
// unique across rooms. Charged-cannon shots inside the cooldown window and
// shots the occupant cannot afford return an error; the handler drops them
// silently per protocol.
func (r *Room) Fire(userID string, angle float64, now time.Time) (*FireResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return nil, ErrNotSeated
	}

	kind := occ.CannonKind
	if kind == ledger.ChargedCannonKind {
		if !occ.LastLaserAt.IsZero() && now.Sub(occ.LastLaserAt) < ledger.LaserCooldownSeconds*time.Second {
			return nil, ErrLaserCooldown
		}
	}

	cost := ledger.CannonMultiplier(kind) * r.BaseScore
	if occ.Score < cost {
		return nil, ErrInsufficientBank
	}
	occ.Score = ledger.Sub(occ.Score, cost)

	if kind != ledger.ChargedCannonKind {
		occ.LaserPower += cost
		if threshold := r.laserThreshold(); occ.LaserPower > threshold {
			occ.LaserPower = threshold
		}
	}

	bullet := &models.Bullet{
		BulletID:   r.manager.NextBulletID(),
		UserID:     userID,
		CannonKind: kind,
		Multiplier: ledger.CannonMultiplier(kind),
		Cost:       cost,
		SeatIndex:  occ.SeatIndex,
		FiredAt:    now,
	}
	r.bullets[bullet.BulletID] = bullet

	return &FireResult{Bullet: bullet, Score: occ.Score, Power: occ.LaserPower}, nil
}

// ResolveCatch settles one catch event. The bullet is consumed exactly
// once, whatever the outcome. A missing bullet resolves through the
// reconstructed-cost fallback; an ownership mismatch rejects with no state
// change at all.
func (r *Room) ResolveCatch(userID string, bulletID int64, fishIDs []int64) (*CatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return nil, ErrNotSeated
	}

	cost := ledger.CannonMultiplier(occ.CannonKind) * r.BaseScore
	reconstructed := true
	if bullet, ok := r.bullets[bulletID]; ok {
		if bullet.UserID != userID {
			return nil, ErrBulletOwnership
		}
		cost = bullet.Cost
		reconstructed = false
	}
	delete(r.bullets, bulletID)

	result := &CatchResult{
		BulletID:      bulletID,
		SeatIndex:     occ.SeatIndex,
		Reconstructed: reconstructed,
	}

	for _, fishID := range fishIDs {
		fish, alive := r.fish[fishID]
		if !alive {
			continue // already captured or expired
		}

		if r.randFunc() >= ledger.CaptureProbability(fish.FishKind) {
			continue
		}

		r.captureLocked(occ, fish, cost, result)
		r.chainRemovalsLocked(occ, fish.FishKind, cost, result)
	}

	result.Score = occ.Score
	result.Power = occ.LaserPower
	return result, nil
}

// ResolveLaserCatch removes every referenced fish unconditionally. Requires
// a full charge; resets it and starts the cooldown.
func (r *Room) ResolveLaserCatch(userID string, fishIDs []int64, now time.Time) (*CatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return nil, ErrNotSeated
	}
	if occ.LaserPower < r.laserThreshold() {
		return nil, ErrLaserNotCharged
	}

	result := &CatchResult{SeatIndex: occ.SeatIndex}

	// The laser consumes charge rather than a bullet: rewards use the
	// wager unit as cost basis.
	for _, fishID := range fishIDs {
		fish, alive := r.fish[fishID]
		if !alive {
			continue
		}
		r.captureLocked(occ, fish, r.BaseScore, result)
	}

	occ.LaserPower = 0
	occ.LastLaserAt = now

	result.Score = occ.Score
	result.Power = 0
	return result, nil
}

// captureLocked removes one fish and credits its reward. Caller holds the
// room lock.
func (r *Room) captureLocked(occ *models.Occupant, fish *models.Fish, cost int64, result *CatchResult) {
	reward := cost * ledger.FishMultiplier(fish.FishKind)
	occ.Score = ledger.Add(occ.Score, reward)
	delete(r.fish, fish.FishID)
	result.Captures = append(result.Captures, Capture{
		FishID:   fish.FishID,
		FishKind: fish.FishKind,
		Reward:   reward,
	})
}

// chainRemovalsLocked applies the special-kind effects: bomb kinds sweep up
// to 20 small fish, group kinds clear the group family, same-kind chains
// clear their paired kind. Chained fish skip the probability draw but are
// credited at their own multiplier.
func (r *Room) chainRemovalsLocked(occ *models.Occupant, triggerKind int, cost int64, result *CatchResult) {
	switch {
	case ledger.IsBombKind(triggerKind):
		swept := 0
		for _, fish := range r.fish {
			if swept >= ledger.BombSweepLimit {
				break
			}
			if fish.FishKind <= ledger.SmallFishMaxKind {
				r.captureLocked(occ, fish, cost, result)
				swept++
			}
		}
	case ledger.IsGroupKind(triggerKind):
		for _, fish := range r.fish {
			if ledger.IsGroupKind(fish.FishKind) {
				r.captureLocked(occ, fish, cost, result)
			}
		}
	default:
		if partner := ledger.SameKindPartner(triggerKind); partner != 0 {
			for _, fish := range r.fish {
				if fish.FishKind == partner {
					r.captureLocked(occ, fish, cost, result)
				}
			}
		}
	}
}

// ChangeCannon switches the equipped cannon. VIP gating applies; the
// charged cannon needs a full laser charge instead.
func (r *Room) ChangeCannon(userID string, kind int) (*models.Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return nil, ErrNotSeated
	}

	if kind == ledger.ChargedCannonKind {
		if occ.LaserPower < r.laserThreshold() {
			return nil, ErrLaserNotCharged
		}
	} else if !ledger.CannonUnlocked(occ.VipLevel, kind) {
		return nil, ErrCannonLocked
	}

	occ.CannonKind = kind
	return occ, nil
}

// Credit adds a settlement deposit to a resident occupant's score.
func (r *Room) Credit(userID string, amount int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return 0, false
	}
	occ.Score = ledger.Add(occ.Score, amount)
	return occ.Score, true
}

// DebitIfRetains debits a withdrawal from a resident occupant, atomically
// enforcing the minimum-retained-balance floor. Returns the new score.
func (r *Room) DebitIfRetains(userID string, amount, retain int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return 0, ErrNotSeated
	}
	if occ.Score-amount < retain {
		return occ.Score, ErrInsufficientBank
	}
	occ.Score = ledger.Sub(occ.Score, amount)
	return occ.Score, nil
}

// Score reads a resident occupant's current score.
func (r *Room) Score(userID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return 0, false
	}
	return occ.Score, true
}
