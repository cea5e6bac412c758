package combat

import "math"

// PairKind describes how a combatant was resolved in a round.
type PairKind uint8

const (
	PairSolo       PairKind = iota // no living target
	PairMutual                     // two combatants targeting each other
	PairUnilateral                 // one-sided targeting
)

// String returns the pairing kind name
func (k PairKind) String() string {
	switch k {
	case PairMutual:
		return "mutual"
	case PairUnilateral:
		return "unilateral"
	default:
		return "solo"
	}
}

// MarshalText encodes the pairing kind by name.
func (k PairKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Pairing records one resolution step of a round.
type Pairing struct {
	Kind PairKind `json:"kind"`
	A    string   `json:"a"`
	B    string   `json:"b,omitempty"`
}

// resolve pairs up the roster and runs every action. Combatants that die
// earlier in the round are skipped.
func (s *Scheduler) resolve(roster []*Combatant) []Pairing {
	resolved := make(map[*Combatant]bool, len(roster))
	pairings := make([]Pairing, 0, len(roster))

	for _, a := range roster {
		if resolved[a] {
			continue
		}
		resolved[a] = true
		if a.IsDead() {
			continue
		}

		b := a.Target
		switch {
		case b.IsDead():
			s.resolveSolo(a)
			pairings = append(pairings, Pairing{Kind: PairSolo, A: a.ID})
		case b.Target == a && !resolved[b]:
			resolved[b] = true
			s.resolvePair(a, b)
			pairings = append(pairings, Pairing{Kind: PairMutual, A: a.ID, B: b.ID})
		default:
			s.resolveVs(a, b)
			pairings = append(pairings, Pairing{Kind: PairUnilateral, A: a.ID, B: b.ID})
		}
	}
	return pairings
}

// resolveSolo runs a's intent with no opponent.
func (s *Scheduler) resolveSolo(a *Combatant) {
	if a.IsDead() {
		return
	}
	switch a.Intent {
	case IntentDodge:
		s.dodge(a)
	default:
		s.idle(a)
	}
}

// resolveVs runs a's own intent against b.
func (s *Scheduler) resolveVs(a, b *Combatant) {
	if a.IsDead() {
		return
	}
	if b.IsDead() {
		s.resolveSolo(a)
		return
	}

	switch a.Intent {
	case IntentMove:
		if !a.InRangeOf(b) {
			s.move(a, b.Position, a.MoveBudget, a.StopDistanceTo(b))
			return
		}
		// Closed in during this round: commit to a melee action instead. The
		// outcome keeps the decided Move; Action reports what ran.
		a.Intent = chooseInRange(a, s.dice)
		if a.Intent == IntentDodge {
			s.dodge(a)
		} else {
			s.attack(a, b)
		}
	case IntentDodge:
		s.dodge(a)
	case IntentAttack:
		if a.InRangeOf(b) {
			s.attack(a, b)
		} else {
			s.idle(a)
		}
	default:
		s.idle(a)
	}
}

// resolvePair applies the mutual pairing rules to a and b.
func (s *Scheduler) resolvePair(a, b *Combatant) {
	switch {
	case a.IsDead() && b.IsDead():
		return
	case a.IsDead():
		s.resolveSolo(b)
		return
	case b.IsDead():
		s.resolveSolo(a)
		return
	}

	ai, bi := a.Intent, b.Intent
	switch {
	case ai == IntentMove && bi == IntentMove:
		stop := math.Max(a.StopDistanceTo(b), b.StopDistanceTo(a))
		gap := math.Max(0, FlatDistance(a.Position, b.Position)-stop)
		each := math.Min(math.Min(a.MoveBudget, b.MoveBudget), gap/2)
		s.move(a, b.Position, each, stop)
		s.move(b, a.Position, each, stop)

	case ai == IntentDodge && bi == IntentAttack:
		s.dodge(a)
		s.attack(b, a)
	case ai == IntentAttack && bi == IntentDodge:
		s.attack(a, b)
		s.dodge(b)

	case ai == IntentAttack && bi == IntentAttack:
		ia, ib := a.Initiative, b.Initiative
		if ia == ib {
			if s.dice.Float64() < 0.5 {
				ia++
			} else {
				ib++
			}
		}
		if ia > ib {
			s.attack(a, b)
			s.idle(b)
		} else {
			s.attack(b, a)
			s.idle(a)
		}

	default:
		s.resolveVs(a, b)
		s.resolveVs(b, a)
	}
}
