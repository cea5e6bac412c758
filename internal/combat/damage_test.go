package combat

import (
	"math"
	"testing"
)

func TestStatScaling(t *testing.T) {
	tests := []struct {
		name      string
		stats     Stats
		scale     float64
		critP     float64
		critMulti float64
	}{
		{"zero", Stats{}, 1, 0.05, 1.5},
		{"might five", Stats{Might: 5}, 1.25, 0.05, 1.5},
		{"negatives ignored", Stats{Might: -3, Insight: -4, Luck: -1}, 1, 0.05, 1.5},
		{"insight and luck", Stats{Insight: 10, Luck: 10}, 1, 0.15, 1.6},
		{"crit clamped", Stats{Insight: 200, Luck: 200}, 1, 1, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.MeleeScale(); math.Abs(got-tt.scale) > 1e-9 {
				t.Errorf("MeleeScale: expected %v, got %v", tt.scale, got)
			}
			if got := tt.stats.CritChance(); math.Abs(got-tt.critP) > 1e-9 {
				t.Errorf("CritChance: expected %v, got %v", tt.critP, got)
			}
			if got := tt.stats.CritMultiplier(); math.Abs(got-tt.critMulti) > 1e-9 {
				t.Errorf("CritMultiplier: expected %v, got %v", tt.critMulti, got)
			}
		})
	}
}

func TestRollMelee(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		base     float64
		floats   []float64
		want     float64
		critical bool
	}{
		{"mid variance no crit", Stats{Might: 5}, 20, []float64{0.5, 0.99}, 25, false},
		{"low variance", Stats{}, 10, []float64{0, 0.99}, 9, false},
		{"critical", Stats{Insight: 10}, 10, []float64{0.5, 0.05}, 16, true},
		{"floored at one", Stats{}, 0.1, []float64{0.5, 0.99}, 1, false},
		{"zero weapon floored", Stats{Might: 10}, 0, []float64{0.5, 0.99}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dice := &scriptedDice{floats: tt.floats}
			hit := RollMelee(dice, tt.stats, tt.base)
			if math.Abs(hit.Amount-tt.want) > 1e-9 {
				t.Errorf("Expected %v damage, got %v", tt.want, hit.Amount)
			}
			if hit.Critical != tt.critical {
				t.Errorf("Expected critical=%v", tt.critical)
			}
			if len(dice.floats) != 0 {
				t.Errorf("Expected both draws consumed, %d left", len(dice.floats))
			}
		})
	}
}

// TestComputeMeleeBounds checks the variance window over many seeded rolls
func TestComputeMeleeBounds(t *testing.T) {
	dice := NewDice(42)
	stats := Stats{Might: 5}
	for i := 0; i < 1000; i++ {
		got := ComputeMelee(dice, stats, 20)
		if got < 1 {
			t.Fatalf("damage below floor: %v", got)
		}
		lo, hi := 20*1.25*0.9, 20*1.25*1.1*stats.CritMultiplier()
		if got < lo-1e-9 || got > hi+1e-9 {
			t.Fatalf("damage %v outside [%v, %v]", got, lo, hi)
		}
	}
}
