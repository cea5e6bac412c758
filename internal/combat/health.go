package combat

// Health tracks current and maximum hit points. Current always stays within
// [0, Max].
type Health struct {
	current float64
	max     float64
}

// NewHealth returns full health with the given maximum. Non-positive maxima
// are treated as 1.
func NewHealth(maxHP float64) Health {
	if maxHP <= 0 {
		maxHP = 1
	}
	return Health{current: maxHP, max: maxHP}
}

func (h Health) Current() float64 { return h.current }
func (h Health) Max() float64     { return h.max }
func (h Health) IsDead() bool     { return h.current <= 0 }

// Fraction returns current/max in [0,1].
func (h Health) Fraction() float64 {
	if h.max <= 0 {
		return 0
	}
	return h.current / h.max
}

// TakeDamage subtracts amount and returns what was actually removed.
// Dead targets and non-positive amounts are ignored.
func (h *Health) TakeDamage(amount float64) float64 {
	if h.IsDead() || amount <= 0 {
		return 0
	}
	applied := amount
	if applied > h.current {
		applied = h.current
	}
	h.current -= applied
	if h.current < 0 {
		h.current = 0
	}
	return applied
}

// Heal restores up to amount hit points and returns the amount restored.
// Dead combatants cannot be healed, use Reset instead.
func (h *Health) Heal(amount float64) float64 {
	if h.IsDead() || amount <= 0 {
		return 0
	}
	before := h.current
	h.current += amount
	if h.current > h.max {
		h.current = h.max
	}
	return h.current - before
}

// Reset sets current health to value, or to max when value is nil.
func (h *Health) Reset(value *float64) {
	if value == nil {
		h.current = h.max
		return
	}
	h.current = clamp(*value, 0, h.max)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
