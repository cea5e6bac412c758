package combat

// RollInitiative rolls a d20 plus a d3 luck term valued 0..2.
func RollInitiative(dice Dice) int {
	return dice.Intn(20) + 1 + dice.Intn(3)
}

// validTarget reports whether t can stay cached as self's target.
func validTarget(self, t *Combatant) bool {
	if t == nil || t == self || t.IsDead() || t.Team == self.Team {
		return false
	}
	return self.SightRadius <= 0 || FlatDistance(self.Position, t.Position) <= self.SightRadius
}

// RefreshTarget keeps self's cached target while it is alive and within
// sight, otherwise picks the nearest living combatant of another team.
// Ties keep the first candidate in roster order.
func RefreshTarget(self *Combatant, roster []*Combatant) *Combatant {
	if self.IsDead() {
		return nil
	}
	if validTarget(self, self.Target) {
		return self.Target
	}
	self.Target = nil

	best := -1.0
	for _, c := range roster {
		if !validTarget(self, c) {
			continue
		}
		d := FlatDistance(self.Position, c.Position)
		if best < 0 || d < best {
			best = d
			self.Target = c
		}
	}
	return self.Target
}

// Decide sets self's intent for the round. It touches only Intent and
// Target and draws at most once from dice.
func Decide(self *Combatant, roster []*Combatant, dice Dice) Intent {
	if self.IsDead() {
		self.Intent = IntentIdle
		self.Target = nil
		return self.Intent
	}

	target := RefreshTarget(self, roster)
	switch {
	case target == nil:
		self.Intent = IntentIdle
	case !self.InRangeOf(target):
		self.Intent = IntentMove
	default:
		self.Intent = chooseInRange(self, dice)
	}
	return self.Intent
}

// chooseInRange picks between dodging and attacking once a target is reachable.
func chooseInRange(self *Combatant, dice Dice) Intent {
	if dice.Float64() < self.DodgeProbability {
		return IntentDodge
	}
	return IntentAttack
}
