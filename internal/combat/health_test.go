package combat

import "testing"

// TestHealthNeverNegative applies arbitrary damage sequences and checks
// current health stays within [0, max]
func TestHealthNeverNegative(t *testing.T) {
	tests := []struct {
		name   string
		max    float64
		damage []float64
		want   float64
	}{
		{"single hit", 100, []float64{30}, 70},
		{"overkill", 50, []float64{80}, 0},
		{"exact kill", 25, []float64{25}, 0},
		{"negative ignored", 100, []float64{-10, 20}, 80},
		{"hits after death", 10, []float64{10, 5, 5}, 0},
		{"zero max", 0, []float64{0.5}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealth(tt.max)
			for _, d := range tt.damage {
				h.TakeDamage(d)
				if h.Current() < 0 || h.Current() > h.Max() {
					t.Fatalf("health out of range: %v of %v", h.Current(), h.Max())
				}
			}
			if h.Current() != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, h.Current())
			}
		})
	}
}

// TestTakeDamageReturnsApplied verifies overkill reports only what was removed
func TestTakeDamageReturnsApplied(t *testing.T) {
	h := NewHealth(40)
	if got := h.TakeDamage(30); got != 30 {
		t.Errorf("Expected 30 applied, got %v", got)
	}
	if got := h.TakeDamage(30); got != 10 {
		t.Errorf("Expected 10 applied on overkill, got %v", got)
	}
	if !h.IsDead() {
		t.Error("Expected dead at 0 health")
	}
	if got := h.TakeDamage(5); got != 0 {
		t.Errorf("Dead target should take no damage, got %v", got)
	}
}

func TestHealAndReset(t *testing.T) {
	h := NewHealth(100)
	h.TakeDamage(60)

	if got := h.Heal(100); got != 60 {
		t.Errorf("Expected heal clamped to 60, got %v", got)
	}

	h.TakeDamage(100)
	if got := h.Heal(10); got != 0 {
		t.Errorf("Dead combatants should not heal, got %v", got)
	}

	half := 50.0
	h.Reset(&half)
	if h.Current() != 50 {
		t.Errorf("Expected reset to 50, got %v", h.Current())
	}
	over := 500.0
	h.Reset(&over)
	if h.Current() != 100 {
		t.Errorf("Expected reset clamped to max, got %v", h.Current())
	}
	h.TakeDamage(100)
	h.Reset(nil)
	if h.Current() != 100 || h.IsDead() {
		t.Errorf("Expected full health after reset, got %v", h.Current())
	}
}

func TestNilCombatantIsDead(t *testing.T) {
	var c *Combatant
	if !c.IsDead() {
		t.Error("nil combatant must count as dead")
	}
}
