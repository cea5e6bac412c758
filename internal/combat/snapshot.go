package combat

import "time"

// CombatantSnapshot is an immutable copy of combatant state for readers
// outside the scheduler.
type CombatantSnapshot struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Team       Team    `json:"team"`
	Position   Vec3    `json:"position"`
	Facing     float64 `json:"facing"`
	HP         float64 `json:"hp"`
	MaxHP      float64 `json:"maxHp"`
	IsDead     bool    `json:"isDead"`
	Intent     Intent  `json:"intent"`
	TargetID   string  `json:"targetId,omitempty"`
	Initiative int     `json:"initiative"`
	Weapon     string  `json:"weapon,omitempty"`

	LastActionDuration time.Duration `json:"lastActionDuration"`
}

// Snapshot is the arena state after the latest round or host mutation.
type Snapshot struct {
	Sequence   uint64              `json:"sequence"`
	Round      uint64              `json:"round"`
	State      State               `json:"state"`
	Timestamp  time.Time           `json:"timestamp"`
	Combatants []CombatantSnapshot `json:"combatants"`
	AliveCount int                 `json:"aliveCount"`
	LastRound  time.Duration       `json:"lastRoundDuration"`
}

// Find returns the snapshot of the combatant with the given id.
func (s *Snapshot) Find(id string) (CombatantSnapshot, bool) {
	if s == nil {
		return CombatantSnapshot{}, false
	}
	for _, c := range s.Combatants {
		if c.ID == id {
			return c, true
		}
	}
	return CombatantSnapshot{}, false
}

// TeamsAlive returns the number of distinct teams with a living member.
func (s *Snapshot) TeamsAlive() int {
	if s == nil {
		return 0
	}
	seen := make(map[Team]struct{})
	for _, c := range s.Combatants {
		if !c.IsDead {
			seen[c.Team] = struct{}{}
		}
	}
	return len(seen)
}

func snapshotOf(c *Combatant, weapon string) CombatantSnapshot {
	cs := CombatantSnapshot{
		ID:                 c.ID,
		Name:               c.Name,
		Team:               c.Team,
		Position:           c.Position,
		Facing:             c.Facing,
		HP:                 c.Health.Current(),
		MaxHP:              c.Health.Max(),
		IsDead:             c.IsDead(),
		Intent:             c.Intent,
		Initiative:         c.Initiative,
		Weapon:             weapon,
		LastActionDuration: c.LastActionDuration,
	}
	if c.Target != nil {
		cs.TargetID = c.Target.ID
	}
	return cs
}
