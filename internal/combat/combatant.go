package combat

import (
	"fmt"
	"strings"
	"time"
)

// Team groups combatants. Members of the same team never target each other.
type Team uint8

const (
	TeamNeutral Team = iota
	TeamMain
	TeamEnemy
)

// String returns the lowercase team name
func (t Team) String() string {
	switch t {
	case TeamMain:
		return "main"
	case TeamEnemy:
		return "enemy"
	default:
		return "neutral"
	}
}

// MarshalText encodes the team by name.
func (t Team) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a team name, see ParseTeam.
func (t *Team) UnmarshalText(b []byte) error {
	parsed, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTeam resolves a team name, case-insensitively. Numeric aliases "1" and
// "2" map to main and enemy.
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main", "1", "player", "blue":
		return TeamMain, nil
	case "enemy", "2", "red":
		return TeamEnemy, nil
	case "neutral", "", "0":
		return TeamNeutral, nil
	}
	return TeamNeutral, fmt.Errorf("%w: unknown team %q", ErrInvalidSpec, s)
}

// Intent is the action a combatant commits to for one round.
type Intent uint8

const (
	IntentIdle Intent = iota
	IntentMove
	IntentAttack
	IntentDodge
)

// String returns human-readable intent
func (i Intent) String() string {
	switch i {
	case IntentMove:
		return "move"
	case IntentAttack:
		return "attack"
	case IntentDodge:
		return "dodge"
	default:
		return "idle"
	}
}

// MarshalText encodes the intent by name.
func (i Intent) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText decodes an intent name.
func (i *Intent) UnmarshalText(b []byte) error {
	for c := IntentIdle; c <= IntentDodge; c++ {
		if c.String() == string(b) {
			*i = c
			return nil
		}
	}
	return fmt.Errorf("combat: unknown intent %q", b)
}

// Stats are the attributes that feed the damage model.
type Stats struct {
	Might   float64 `json:"might" yaml:"might"`
	Insight float64 `json:"insight" yaml:"insight"`
	Luck    float64 `json:"luck" yaml:"luck"`
}

// DefaultStats mirrors the baseline fighter.
func DefaultStats() Stats { return Stats{Might: 5, Insight: 5, Luck: 5} }

// Combatant is the per-fighter state mutated by the scheduler each round.
type Combatant struct {
	ID   string
	Name string
	Team Team

	Position Vec3
	Facing   float64 // yaw in radians, read by presentation only

	Health Health
	Stats  Stats

	// Tunables
	MoveBudget          float64 // meters per round
	AttackRange         float64 // meters, fallback stop distance
	SightRadius         float64 // meters, 0 means unlimited
	DodgeProbability    float64 // chance to dodge instead of attacking when in range
	KnockbackForce      float64
	KnockbackMultiplier float64
	KnockbackMaxStep    float64
	PersonalSpace       float64 // horizontal clearance radius, 0 if absent

	// Round state
	Intent             Intent
	Target             *Combatant // cached target, revalidated every round
	Initiative         int
	LastActionDuration time.Duration

	reach          float64 // attack range for this round with any profile override
	deathAnnounced bool
}

// IsDead reports whether c is missing or has no health left.
func (c *Combatant) IsDead() bool { return c == nil || c.Health.IsDead() }

// Reach returns the attack range in effect for the current round.
func (c *Combatant) Reach() float64 {
	if c.reach > 0 {
		return c.reach
	}
	return c.AttackRange
}

// StopDistanceTo returns how close c may approach o.
func (c *Combatant) StopDistanceTo(o *Combatant) float64 {
	return StopDistance(c, o, c.Reach())
}

// InRangeOf reports whether o is within c's stop distance.
func (c *Combatant) InRangeOf(o *Combatant) bool {
	if o == nil {
		return false
	}
	return InRange(c.Position, o.Position, c.StopDistanceTo(o))
}

// Spec describes a combatant to spawn.
type Spec struct {
	ID                  string  `json:"id,omitempty"`
	Name                string  `json:"name"`
	Team                Team    `json:"team"`
	Position            Vec3    `json:"position"`
	MaxHealth           float64 `json:"maxHealth"`
	Stats               Stats   `json:"stats"`
	MoveBudget          float64 `json:"moveBudget"`
	AttackRange         float64 `json:"attackRange"`
	SightRadius         float64 `json:"sightRadius"`
	DodgeProbability    float64 `json:"dodgeProbability"`
	KnockbackForce      float64 `json:"knockbackForce"`
	KnockbackMultiplier float64 `json:"knockbackMultiplier"`
	KnockbackMaxStep    float64 `json:"knockbackMaxStep"`
	PersonalSpace       float64 `json:"personalSpace"`
}

// DefaultSpec returns a baseline fighter for the given team.
func DefaultSpec(name string, team Team) Spec {
	return Spec{
		Name:                name,
		Team:                team,
		MaxHealth:           200,
		Stats:               DefaultStats(),
		MoveBudget:          0.05,
		AttackRange:         0.10,
		SightRadius:         20,
		KnockbackForce:      0.02,
		KnockbackMultiplier: 1,
		KnockbackMaxStep:    0.6,
	}
}

// Validate checks the tunables for values the engine cannot use.
func (s Spec) Validate() error {
	switch {
	case s.MaxHealth <= 0:
		return fmt.Errorf("%w: maxHealth must be positive", ErrInvalidSpec)
	case s.MoveBudget < 0:
		return fmt.Errorf("%w: moveBudget must not be negative", ErrInvalidSpec)
	case s.AttackRange < 0:
		return fmt.Errorf("%w: attackRange must not be negative", ErrInvalidSpec)
	case s.SightRadius < 0:
		return fmt.Errorf("%w: sightRadius must not be negative", ErrInvalidSpec)
	case s.DodgeProbability < 0 || s.DodgeProbability > 1:
		return fmt.Errorf("%w: dodgeProbability must be within [0,1]", ErrInvalidSpec)
	case s.PersonalSpace < 0:
		return fmt.Errorf("%w: personalSpace must not be negative", ErrInvalidSpec)
	}
	return nil
}

// newCombatant builds runtime state from a validated spec.
func newCombatant(id string, s Spec) *Combatant {
	name := s.Name
	if name == "" {
		name = id
	}
	return &Combatant{
		ID:                  id,
		Name:                name,
		Team:                s.Team,
		Position:            s.Position,
		Health:              NewHealth(s.MaxHealth),
		Stats:               s.Stats,
		MoveBudget:          s.MoveBudget,
		AttackRange:         s.AttackRange,
		SightRadius:         s.SightRadius,
		DodgeProbability:    s.DodgeProbability,
		KnockbackForce:      s.KnockbackForce,
		KnockbackMultiplier: s.KnockbackMultiplier,
		KnockbackMaxStep:    s.KnockbackMaxStep,
		PersonalSpace:       s.PersonalSpace,
	}
}
