package combat

import "time"

const (
	defaultAttackLabel = "Attack!"
	dodgeLabel         = "Dodge!"
)

// profileFor returns the attack profile of c: the configured provider first,
// then the scheduler's armory.
func (s *Scheduler) profileFor(c *Combatant) (AttackProfile, bool) {
	if s.cfg.Profiles != nil {
		if p, ok := s.cfg.Profiles.AttackProfile(c); ok {
			return p, true
		}
	}
	return s.armory.AttackProfile(c)
}

// timingsFor returns c's action durations with defaults filled in.
func (s *Scheduler) timingsFor(c *Combatant) Timings {
	if p, ok := s.profileFor(c); ok {
		return p.Timings.Merge(s.cfg.Timings)
	}
	return s.cfg.Timings
}

// act records d as the duration of c's action this round.
func (s *Scheduler) act(c *Combatant, action Intent, d time.Duration) {
	c.LastActionDuration = max(c.LastActionDuration, d)
	if o := s.outcomes[c]; o != nil {
		o.Action = action
		o.Duration = c.LastActionDuration
	}
}

func (s *Scheduler) idle(c *Combatant) {
	s.act(c, IntentIdle, s.timingsFor(c).Idle)
}

func (s *Scheduler) dodge(c *Combatant) {
	s.emit(Event{Kind: EventAction, CombatantID: c.ID, Name: c.Name, Text: dodgeLabel, Health: c.Health.Current()})
	s.act(c, IntentDodge, s.timingsFor(c).Dodge)
}

// move steps c towards to with the given budget, stopping at stop. The walk
// duration is one animation loop regardless of distance covered.
func (s *Scheduler) move(c *Combatant, to Vec3, budget, stop float64) {
	res := Step(c.Position, to, budget, stop)
	c.Position = res.Position
	if res.Moved {
		c.Facing = res.Facing
	}
	s.act(c, IntentMove, s.timingsFor(c).Walk)
}

// attack makes a hit t. It returns without effect, at idle duration, when t
// is already dead.
func (s *Scheduler) attack(a, t *Combatant) {
	if t.IsDead() {
		s.idle(a)
		return
	}

	if dir, _, ok := flatDirection(a.Position, t.Position); ok {
		a.Facing = yaw(dir)
	}

	timings := s.cfg.Timings
	base := s.cfg.DefaultDamage
	label := defaultAttackLabel
	attackDur := timings.Idle
	if p, ok := s.profileFor(a); ok {
		timings = p.Timings.Merge(s.cfg.Timings)
		attackDur = timings.Attack
		if p.BaseDamage > 0 {
			base = p.BaseDamage
		}
		if p.Label != "" {
			label = p.Label
		}
	}

	hit := RollMelee(s.dice, a.Stats, base)
	applied := t.Health.TakeDamage(hit.Amount)

	s.emit(Event{Kind: EventAction, CombatantID: a.ID, Name: a.Name, Text: label, Health: a.Health.Current()})
	s.emit(Event{
		Kind:        EventDamage,
		CombatantID: t.ID,
		Name:        t.Name,
		SourceID:    a.ID,
		Amount:      applied,
		Health:      t.Health.Current(),
		Critical:    hit.Critical,
	})
	if o := s.outcomes[a]; o != nil {
		o.Damage += applied
		o.Critical = o.Critical || hit.Critical
	}

	push := Knockback(t.Position.Sub(a.Position), a.KnockbackForce, t.KnockbackMultiplier, t.KnockbackMaxStep)
	t.Position = t.Position.Add(push)

	victim := s.timingsFor(t)
	if t.IsDead() {
		s.announceDeath(t, a)
		s.act(a, IntentAttack, max(attackDur, victim.Hit, victim.Death))
		return
	}
	s.act(a, IntentAttack, max(attackDur, victim.Hit))
}

// announceDeath emits the death event for c once and clears its round state.
func (s *Scheduler) announceDeath(c, killer *Combatant) {
	if c.deathAnnounced {
		return
	}
	c.deathAnnounced = true
	s.deaths = append(s.deaths, c.ID)
	c.Intent = IntentIdle
	c.Target = nil

	ev := Event{Kind: EventDeath, CombatantID: c.ID, Name: c.Name}
	if killer != nil {
		ev.SourceID = killer.ID
	}
	s.emit(ev)
	s.log.Info().Str("combatant", c.ID).Str("killer", ev.SourceID).Uint64("round", s.round).Msg("combatant died")
}
