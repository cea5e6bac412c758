package combat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the phase the scheduler is in.
type State uint8

const (
	StateIdle State = iota
	StateDiscover
	StateDecide
	StateResolve
	StateWait
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDiscover:
		return "discover"
	case StateDecide:
		return "decide"
	case StateResolve:
		return "resolve"
	case StateWait:
		return "wait"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for c := StateIdle; c <= StateWait; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("combat: unknown state %q", b)
}

// Config tunes a Scheduler. Zero fields take the DefaultConfig values.
type Config struct {
	MinRound      time.Duration // lower bound of every round
	Tick          time.Duration // retry interval while the roster is empty
	Timings       Timings       // default action durations
	DefaultDamage float64       // base damage when no profile is found

	Seed  int64
	Dice  Dice  // overrides Seed
	Clock Clock // host clock, SystemClock when nil

	Profiles ProfileProvider // consulted before the built-in armory
	OnEvent  EventFunc
	OnRound  func(RoundReport)

	Logger *zerolog.Logger
}

// DefaultConfig returns the stock scheduler configuration.
func DefaultConfig() Config {
	return Config{
		MinRound:      500 * time.Millisecond,
		Tick:          100 * time.Millisecond,
		Timings:       DefaultTimings(),
		DefaultDamage: 10,
		Seed:          1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinRound <= 0 {
		c.MinRound = d.MinRound
	}
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	c.Timings = c.Timings.Merge(d.Timings)
	if c.DefaultDamage <= 0 {
		c.DefaultDamage = d.DefaultDamage
	}
	if c.Dice == nil {
		c.Dice = NewDice(c.Seed)
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}

// Outcome is what one combatant did in a round. Intent is what Decide chose;
// Action is what actually ran, which differs when a mover closes in and strikes.
type Outcome struct {
	CombatantID string        `json:"combatantId"`
	Initiative  int           `json:"initiative"`
	Intent      Intent        `json:"intent"`
	Action      Intent        `json:"action"`
	TargetID    string        `json:"targetId,omitempty"`
	Damage      float64       `json:"damage,omitempty"`
	Critical    bool          `json:"critical,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// RoundReport summarises a completed round.
type RoundReport struct {
	Round    uint64        `json:"round"`
	Outcomes []Outcome     `json:"outcomes"`
	Pairings []Pairing     `json:"pairings"`
	Deaths   []string      `json:"deaths,omitempty"`
	Alive    int           `json:"alive"`
	Duration time.Duration `json:"duration"`
}

// Outcome returns the outcome recorded for the given combatant.
func (r RoundReport) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.CombatantID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// Scheduler owns the arena and drives it one round at a time. Rounds and
// host operations are serialised; snapshots can be read from any goroutine.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	arena  *Arena
	armory *Armory
	dice   Dice
	clock  Clock
	log    zerolog.Logger

	round    uint64
	state    atomic.Uint32
	outcomes map[*Combatant]*Outcome
	deaths   []string

	lastRound time.Duration
	sequence  uint64
	snapshot  atomic.Pointer[Snapshot]

	runMu  sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler with an empty arena
func NewScheduler(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "combat").Logger()
	}

	s := &Scheduler{
		cfg:    cfg,
		arena:  NewArena(),
		armory: NewArmory(),
		dice:   cfg.Dice,
		clock:  cfg.Clock,
		log:    logger,
	}
	s.publish()
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// State returns the current phase.
func (s *Scheduler) State() State { return State(s.state.Load()) }

func (s *Scheduler) setState(st State) { s.state.Store(uint32(st)) }

// Round returns the number of completed rounds.
func (s *Scheduler) Round() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Snapshot returns the latest published arena state. It never blocks on a
// running round.
func (s *Scheduler) Snapshot() *Snapshot { return s.snapshot.Load() }

// Spawn registers a combatant. A non-nil profile is equipped immediately.
func (s *Scheduler) Spawn(spec Spec, profile *AttackProfile) (CombatantSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.arena.Spawn(spec)
	if err != nil {
		return CombatantSnapshot{}, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}
	if profile != nil {
		s.armory.Equip(c.ID, *profile)
	}
	s.emit(Event{Kind: EventSpawn, CombatantID: c.ID, Name: c.Name, Health: c.Health.Current()})
	s.log.Debug().Str("combatant", c.ID).Str("team", c.Team.String()).Msg("combatant spawned")
	s.publish()
	return snapshotOf(c, s.weaponOf(c)), nil
}

// Remove tears a combatant down, dead or alive.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.arena.Remove(id)
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrUnknownCombatant)
	}
	s.armory.Unequip(id)
	s.emit(Event{Kind: EventRemove, CombatantID: c.ID, Name: c.Name, Health: c.Health.Current()})
	s.publish()
	return nil
}

// Heal restores health to a living combatant and returns the amount restored.
func (s *Scheduler) Heal(id string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.arena.Get(id)
	if !ok {
		return 0, fmt.Errorf("heal %q: %w", id, ErrUnknownCombatant)
	}
	healed := c.Health.Heal(amount)
	if healed > 0 {
		s.publish()
	}
	return healed, nil
}

// Revive resets a combatant to full health and returns it to the roster.
func (s *Scheduler) Revive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.arena.Get(id)
	if !ok {
		return fmt.Errorf("revive %q: %w", id, ErrUnknownCombatant)
	}
	c.Health.Reset(nil)
	c.deathAnnounced = false
	s.emit(Event{Kind: EventSpawn, CombatantID: c.ID, Name: c.Name, Health: c.Health.Current()})
	s.publish()
	return nil
}

// Equip replaces the attack profile of a combatant.
func (s *Scheduler) Equip(id string, p AttackProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.arena.Get(id); !ok {
		return fmt.Errorf("equip %q: %w", id, ErrUnknownCombatant)
	}
	s.armory.Equip(id, p)
	s.publish()
	return nil
}

// Run drives rounds until ctx is cancelled or Stop is called, waiting the
// round duration on the clock after each round and one tick whenever the
// roster is empty. The pending wait is abandoned on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.runMu.Lock()
	if s.cancel != nil {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	s.cancel = cancel
	s.runMu.Unlock()

	defer func() {
		s.runMu.Lock()
		s.cancel = nil
		s.runMu.Unlock()
		s.setState(StateIdle)
	}()

	s.log.Info().Dur("minRound", s.cfg.MinRound).Msg("scheduler started")
	for {
		wait := s.cfg.Tick
		if report, ok := s.RunRound(); ok {
			wait = report.Duration
		}

		select {
		case <-ctx.Done():
			s.log.Info().Uint64("round", s.Round()).Msg("scheduler stopped")
			return ctx.Err()
		case <-s.clock.After(wait):
		}
		s.setState(StateIdle)
	}
}

// Stop cancels a running Run loop. It is a no-op when nothing runs.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Running reports whether Run is active.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cancel != nil
}

// RunRound performs one Discover, Decide and Resolve cycle and leaves the
// scheduler in StateWait. It returns false, without counting a round, when
// no living combatant is registered.
func (s *Scheduler) RunRound() (RoundReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setState(StateDiscover)
	roster := s.arena.Discover()
	if len(roster) == 0 {
		s.setState(StateIdle)
		return RoundReport{}, false
	}
	s.round++
	s.deaths = nil

	s.setState(StateDecide)
	s.decide(roster)

	s.setState(StateResolve)
	pairings := s.resolve(roster)

	report := RoundReport{
		Round:    s.round,
		Outcomes: make([]Outcome, 0, len(roster)),
		Pairings: pairings,
		Deaths:   s.deaths,
		Duration: s.roundDuration(roster),
	}
	for _, c := range roster {
		if o := s.outcomes[c]; o != nil {
			report.Outcomes = append(report.Outcomes, *o)
		}
		if !c.IsDead() {
			report.Alive++
		}
	}
	s.outcomes = nil
	s.lastRound = report.Duration

	s.setState(StateWait)
	s.publish()

	s.log.Debug().
		Uint64("round", report.Round).
		Int("alive", report.Alive).
		Int("pairings", len(pairings)).
		Dur("duration", report.Duration).
		Msg("round resolved")

	if s.cfg.OnRound != nil {
		s.cfg.OnRound(report)
	}
	return report, true
}

// decide rolls every initiative first, then every intent, then refreshes
// the target caches against the alive set.
func (s *Scheduler) decide(roster []*Combatant) {
	s.outcomes = make(map[*Combatant]*Outcome, len(roster))

	for _, c := range roster {
		c.LastActionDuration = 0
		c.reach = 0
		if p, ok := s.profileFor(c); ok && p.Range > 0 {
			c.reach = p.Range
		}
		c.Initiative = RollInitiative(s.dice)
		s.outcomes[c] = &Outcome{CombatantID: c.ID, Initiative: c.Initiative}
	}

	for _, c := range roster {
		Decide(c, roster, s.dice)
	}

	for _, c := range roster {
		RefreshTarget(c, roster)
		s.recordIntent(c)
	}
}

// recordIntent copies c's committed intent and target into its outcome.
func (s *Scheduler) recordIntent(c *Combatant) {
	o := s.outcomes[c]
	if o == nil {
		return
	}
	o.Intent = c.Intent
	o.Action = IntentIdle
	o.TargetID = ""
	if c.Target != nil {
		o.TargetID = c.Target.ID
	}
}

// roundDuration is the longest action of the round, at least MinRound.
func (s *Scheduler) roundDuration(roster []*Combatant) time.Duration {
	d := s.cfg.MinRound
	for _, c := range roster {
		d = max(d, c.LastActionDuration)
	}
	return d
}

func (s *Scheduler) emit(e Event) {
	if s.cfg.OnEvent == nil {
		return
	}
	e.Round = s.round
	s.cfg.OnEvent(e)
}

func (s *Scheduler) weaponOf(c *Combatant) string {
	if p, ok := s.profileFor(c); ok {
		return p.Weapon
	}
	return ""
}

// publish stores a fresh snapshot. Callers hold s.mu.
func (s *Scheduler) publish() {
	s.sequence++
	all := s.arena.All()
	snap := &Snapshot{
		Sequence:   s.sequence,
		Round:      s.round,
		State:      s.State(),
		Timestamp:  s.clock.Now(),
		Combatants: make([]CombatantSnapshot, 0, len(all)),
		LastRound:  s.lastRound,
	}
	for _, c := range all {
		snap.Combatants = append(snap.Combatants, snapshotOf(c, s.weaponOf(c)))
		if !c.IsDead() {
			snap.AliveCount++
		}
	}
	s.snapshot.Store(snap)
}
