package ledger

// Fixed game tables. Kind numbering and multiplier values are part of the
// wire protocol shared with the client build; do not renumber.

// fishMultipliers maps fish kind (1-35) to its reward multiplier.
var fishMultipliers = map[int]int64{
	1: 2, 2: 2, 3: 3, 4: 4, 5: 5, 6: 5, 7: 6, 8: 7, 9: 8, 10: 9,
	11: 10, 12: 11, 13: 12, 14: 18, 15: 25, 16: 30, 17: 35, 18: 40,
	19: 45, 20: 50, 21: 80, 22: 100,
	23: 45, 24: 45, 25: 45, 26: 45,
	27: 50, 28: 60, 29: 70,
	30: 100, 31: 110, 32: 110, 33: 110,
	34: 120, 35: 200,
}

// cannonMultipliers maps cannon kind (1-22) to its shot-cost multiplier in
// wager units. Kind 22 is the charged laser cannon.
var cannonMultipliers = map[int]int64{
	1: 1, 2: 2, 3: 3, 4: 1, 5: 3, 6: 5, 7: 1, 8: 3, 9: 5,
	10: 1, 11: 3, 12: 5, 13: 1, 14: 3, 15: 5, 16: 1, 17: 3, 18: 5,
	19: 1, 20: 3, 21: 5, 22: 1,
}

const (
	MinFishKind = 1
	MaxFishKind = 35

	// ChargedCannonKind is unlocked by accumulated laser power, never by VIP.
	ChargedCannonKind = 22

	// SmallFishMaxKind bounds the kinds a bomb sweep may take with it.
	SmallFishMaxKind = 15

	// BombSweepLimit caps the extra fish a bomb kind removes.
	BombSweepLimit = 20

	// LaserCooldownSeconds is the wall-clock gap enforced between charged
	// shots and between laser sweeps.
	LaserCooldownSeconds = 30

	// LaserChargeUnits is the accumulated fire cost, in wager units, that
	// fills the laser. The scaled threshold for a room is
	// LaserChargeUnits * wagerUnit.
	LaserChargeUnits = 500
)

// cannonsByVip lists the three cannon kinds each VIP tier unlocks. The top
// tier reuses the prior entry; the charged cannon is gated on power alone.
var cannonsByVip = [8][3]int{
	{1, 2, 3},
	{4, 5, 6},
	{7, 8, 9},
	{10, 11, 12},
	{13, 14, 15},
	{16, 17, 18},
	{19, 20, 21},
	{19, 20, 21},
}

// bombKinds remove up to BombSweepLimit small fish alongside the catch.
var bombKinds = map[int]bool{21: true, 22: true}

// groupKinds clear every live fish of the same group family.
var groupKinds = map[int]bool{23: true, 24: true, 25: true, 26: true}

// sameKindPairs map a chain kind to the partner kind it clears entirely.
var sameKindPairs = map[int]int{27: 4, 28: 5, 29: 6}

// FishMultiplier returns the reward multiplier for a fish kind. Unknown
// kinds fall back to the smallest multiplier, matching the original table
// lookup's default.
func FishMultiplier(kind int) int64 {
	if m, ok := fishMultipliers[kind]; ok {
		return m
	}
	return 2
}

// CannonMultiplier returns the shot-cost multiplier for a cannon kind.
func CannonMultiplier(kind int) int64 {
	if m, ok := cannonMultipliers[kind]; ok {
		return m
	}
	return 1
}

// CaptureProbability is 1 / FishMultiplier(kind): expected reward per shot
// equals its cost for every kind. The fairness invariant of the game.
func CaptureProbability(kind int) float64 {
	return 1 / float64(FishMultiplier(kind))
}

// CannonsForVip returns the cannon kinds a VIP level may equip.
func CannonsForVip(level int) [3]int {
	if level < 0 {
		level = 0
	}
	if level > MaxVipLevel {
		level = MaxVipLevel
	}
	return cannonsByVip[level]
}

// CannonUnlocked reports whether a VIP level may equip the cannon kind.
// The charged cannon is never unlocked here; the caller gates it on a full
// charge accumulator.
func CannonUnlocked(vipLevel, kind int) bool {
	if kind == ChargedCannonKind {
		return false
	}
	for l := 0; l <= vipLevel && l <= MaxVipLevel; l++ {
		for _, k := range cannonsByVip[l] {
			if k == kind {
				return true
			}
		}
	}
	return false
}

// wagerUnitByBaseParam maps the client's room-tier parameter to the scaled
// wager unit: tier 1 plays in 0.001-coin units, tier 2000 in 2-coin units.
var wagerUnitByBaseParam = map[int64]int64{
	1:    1,
	50:   50,
	500:  500,
	2000: 2000,
}

// WagerUnitForBaseParam resolves a room-tier parameter to its scaled wager
// unit, defaulting to the lowest tier for unknown values.
func WagerUnitForBaseParam(baseParam int64) int64 {
	if u, ok := wagerUnitByBaseParam[baseParam]; ok {
		return u
	}
	return wagerUnitByBaseParam[1]
}

func IsBombKind(kind int) bool { return bombKinds[kind] }

func IsGroupKind(kind int) bool { return groupKinds[kind] }

// SameKindPartner returns the paired kind cleared by a chain kind, or 0.
func SameKindPartner(kind int) int { return sameKindPairs[kind] }
