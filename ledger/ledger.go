// Package ledger implements the fixed-point money arithmetic shared by the
// room simulation and the settlement bridge. Balances travel through the
// engine as scaled integers (display value x 1000) so that no gameplay or
// settlement path ever touches binary floating point drift.
package ledger

import "math"

// Scale is the fixed-point factor: three decimal digits are retained.
const Scale = 1000

// ToScaled converts a display value to its scaled integer form: floor
// after a small epsilon. The epsilon absorbs binary float error carried
// in from upstream JSON numbers; the floor (rather than round-to-nearest)
// guarantees ToDisplay(ToScaled(x)) never exceeds x, so the conversion
// can never manufacture value.
func ToScaled(display float64) int64 {
	return int64(math.Floor(display*Scale + 1e-6))
}

// ToDisplay converts a scaled integer back to its display value. Exact for
// any scaled amount: the quotient has at most three decimal digits.
func ToDisplay(scaled int64) float64 {
	return float64(scaled) / Scale
}

// WholeCoins returns the whole-coin part of a scaled balance. Floors, also
// for negative balances, so the platform never sees a rounded-up figure.
func WholeCoins(scaled int64) int64 {
	q := scaled / Scale
	if scaled%Scale != 0 && scaled < 0 {
		q--
	}
	return q
}

func Add(a, b int64) int64 { return a + b }

func Sub(a, b int64) int64 { return a - b }

// vipThresholds holds the minimum lifetime recharge (scaled) for each VIP
// level, ascending. Eight tiers, level 0 through 7.
var vipThresholds = [8]int64{
	0,
	100 * Scale,
	500 * Scale,
	1000 * Scale,
	5000 * Scale,
	10000 * Scale,
	50000 * Scale,
	100000 * Scale,
}

// MaxVipLevel is the highest reachable tier.
const MaxVipLevel = len(vipThresholds) - 1

// VipLevel returns the highest tier whose threshold the lifetime recharge
// meets. Monotonic by construction: recharge totals only grow.
func VipLevel(lifetimeRecharge int64) int {
	level := 0
	for i, min := range vipThresholds {
		if lifetimeRecharge >= min {
			level = i
		}
	}
	return level
}

// VipThreshold exposes the scaled minimum recharge for a level.
func VipThreshold(level int) int64 {
	if level < 0 {
		level = 0
	}
	if level > MaxVipLevel {
		level = MaxVipLevel
	}
	return vipThresholds[level]
}
