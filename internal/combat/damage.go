package combat

import "math"

// Damage model constants
const (
	mightScalePerPoint   = 0.05
	baseCritChance       = 0.05
	critChancePerPoint   = 0.005
	baseCritMultiplier   = 1.5
	critMultiplierPerPnt = 0.01
	varianceLow          = 0.9
	varianceSpan         = 0.2
	minimumDamage        = 1.0
)

// MeleeScale is the MIGHT multiplier applied to weapon damage.
func (s Stats) MeleeScale() float64 {
	return 1 + mightScalePerPoint*math.Max(0, s.Might)
}

// CritChance is the probability of a critical hit, clamped to [0,1].
func (s Stats) CritChance() float64 {
	return clamp(baseCritChance+critChancePerPoint*(math.Max(0, s.Insight)+math.Max(0, s.Luck)), 0, 1)
}

// CritMultiplier scales a critical hit.
func (s Stats) CritMultiplier() float64 {
	return baseCritMultiplier + critMultiplierPerPnt*math.Max(0, s.Insight)
}

// Hit is the outcome of one damage roll.
type Hit struct {
	Amount   float64
	Critical bool
}

// RollMelee computes a melee hit. It always consumes exactly two draws from
// dice: variance first, then the critical roll.
func RollMelee(dice Dice, attacker Stats, weaponBaseDamage float64) Hit {
	dmg := weaponBaseDamage * attacker.MeleeScale()
	dmg *= varianceLow + varianceSpan*dice.Float64()

	crit := dice.Float64() < attacker.CritChance()
	if crit {
		dmg *= attacker.CritMultiplier()
	}
	if dmg < minimumDamage || math.IsNaN(dmg) {
		dmg = minimumDamage
	}
	return Hit{Amount: dmg, Critical: crit}
}

// ComputeMelee returns only the damage amount of RollMelee.
func ComputeMelee(dice Dice, attacker Stats, weaponBaseDamage float64) float64 {
	return RollMelee(dice, attacker, weaponBaseDamage).Amount
}
