package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kaiju-arena/internal/combat"
)

// Roster is the set of fighters and weapons spawned when the arena starts.
type Roster struct {
	Weapons  map[string]combat.AttackProfile `yaml:"weapons"`
	Fighters []Fighter                       `yaml:"fighters"`
}

// Fighter is one roster entry. Zero tunables take the DefaultSpec values.
type Fighter struct {
	ID                  string        `yaml:"id"`
	Name                string        `yaml:"name"`
	Team                combat.Team   `yaml:"team"`
	Weapon              string        `yaml:"weapon"`
	Position            combat.Vec3   `yaml:"position"`
	MaxHealth           float64       `yaml:"maxHealth"`
	Stats               *combat.Stats `yaml:"stats"`
	MoveBudget          float64       `yaml:"moveBudget"`
	AttackRange         float64       `yaml:"attackRange"`
	SightRadius         float64       `yaml:"sightRadius"`
	DodgeProbability    float64       `yaml:"dodgeProbability"`
	KnockbackForce      float64       `yaml:"knockbackForce"`
	KnockbackMultiplier float64       `yaml:"knockbackMultiplier"`
	KnockbackMaxStep    float64       `yaml:"knockbackMaxStep"`
	PersonalSpace       float64       `yaml:"personalSpace"`
}

// Spec merges the entry over the defaults for its team.
func (f Fighter) Spec() combat.Spec {
	s := combat.DefaultSpec(f.Name, f.Team)
	s.ID = f.ID
	s.Position = f.Position
	if f.Stats != nil {
		s.Stats = *f.Stats
	}
	setIfPositive(&s.MaxHealth, f.MaxHealth)
	setIfPositive(&s.MoveBudget, f.MoveBudget)
	setIfPositive(&s.AttackRange, f.AttackRange)
	setIfPositive(&s.SightRadius, f.SightRadius)
	setIfPositive(&s.KnockbackForce, f.KnockbackForce)
	setIfPositive(&s.KnockbackMultiplier, f.KnockbackMultiplier)
	setIfPositive(&s.KnockbackMaxStep, f.KnockbackMaxStep)
	setIfPositive(&s.PersonalSpace, f.PersonalSpace)
	s.DodgeProbability = f.DodgeProbability
	return s
}

// Profile returns the weapon profile of f, if it names a known weapon.
func (r Roster) Profile(f Fighter) (*combat.AttackProfile, bool) {
	if f.Weapon == "" {
		return nil, false
	}
	p, ok := r.Weapons[f.Weapon]
	if !ok {
		return nil, false
	}
	if p.Weapon == "" {
		p.Weapon = f.Weapon
	}
	return &p, true
}

// Validate checks every fighter spec and weapon reference.
func (r Roster) Validate() error {
	for i, f := range r.Fighters {
		if err := f.Spec().Validate(); err != nil {
			return fmt.Errorf("fighter %d (%s): %w", i, f.Name, err)
		}
		if f.Weapon != "" {
			if _, ok := r.Weapons[f.Weapon]; !ok {
				return fmt.Errorf("fighter %d (%s): unknown weapon %q", i, f.Name, f.Weapon)
			}
		}
	}
	return nil
}

// Spawner is the part of the scheduler a roster is loaded into.
type Spawner interface {
	Spawn(spec combat.Spec, profile *combat.AttackProfile) (combat.CombatantSnapshot, error)
}

// SpawnAll registers every fighter in order and returns how many spawned.
func (r Roster) SpawnAll(s Spawner) (int, error) {
	for i, f := range r.Fighters {
		profile, _ := r.Profile(f)
		if _, err := s.Spawn(f.Spec(), profile); err != nil {
			return i, err
		}
	}
	return len(r.Fighters), nil
}

// LoadRoster reads a yaml roster file.
func LoadRoster(path string) (Roster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(b)
}

// ParseRoster decodes and validates a yaml roster.
func ParseRoster(b []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Roster{}, err
	}
	return r, nil
}

// DefaultRoster is the stock bout: two kaiju facing each other 2.5m apart.
func DefaultRoster() Roster {
	claws := combat.AttackProfile{
		Weapon:     "claws",
		BaseDamage: 25,
		Range:      1.6,
		Label:      "Attack!",
		Timings:    combat.DefaultTimings(),
	}
	fighter := func(id string, team combat.Team, x float64) Fighter {
		return Fighter{
			ID:          id,
			Name:        id,
			Team:        team,
			Weapon:      "claws",
			Position:    combat.Vec3{X: x},
			MaxHealth:   200,
			MoveBudget:  0.5,
			AttackRange: 1.6,
			SightRadius: 20,
		}
	}
	return Roster{
		Weapons: map[string]combat.AttackProfile{"claws": claws},
		Fighters: []Fighter{
			fighter("godzilla", combat.TeamMain, -1.25),
			fighter("kong", combat.TeamEnemy, 1.25),
		},
	}
}

func setIfPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
