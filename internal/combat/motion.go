package combat

import "math"

// rangeEpsilon keeps decision and execution agreeing on range at the boundary.
const rangeEpsilon = 1e-4

// minimumClearance is the smallest stop distance a step will honour.
const minimumClearance = 1e-4

// StopDistance returns the closest approach between a and b: the sum of
// their personal space radii, floored at fallback. Missing combatants
// contribute no radius.
func StopDistance(a, b *Combatant, fallback float64) float64 {
	sum := 0.0
	if a != nil {
		sum += math.Max(0, a.PersonalSpace)
	}
	if b != nil {
		sum += math.Max(0, b.PersonalSpace)
	}
	return math.Max(sum, fallback)
}

// InRange reports whether the flat distance between a and b is within stop.
func InRange(a, b Vec3, stop float64) bool {
	return FlatDistance(a, b) <= stop+rangeEpsilon
}

// StepResult is the outcome of one movement step.
type StepResult struct {
	Position    Vec3
	Consumed    float64 // meters of budget used
	ReachedStop bool
	Moved       bool
	Facing      float64 // valid only if Moved
}

// Step advances position towards target on the ground plane by at most
// budget, never ending closer than stop. The vertical coordinate of position
// is preserved.
func Step(position, target Vec3, budget, stop float64) StepResult {
	res := StepResult{Position: position}
	minDist := math.Max(minimumClearance, stop)

	dir, dist, ok := flatDirection(position, target)
	if !ok {
		// Coincident points: nothing sensible to walk towards.
		res.ReachedStop = true
		return res
	}

	advance := math.Min(math.Max(0, budget), math.Max(0, dist-minDist))
	if advance > epsilon {
		res.Position = position.Add(dir.Scale(advance))
		res.Consumed = advance
		res.Moved = true
		res.Facing = yaw(dir)
	}

	res.Position = pushOut(res.Position, target, minDist, dir)
	res.ReachedStop = FlatDistance(res.Position, target) <= minDist+rangeEpsilon
	return res
}

// pushOut re-clamps p so its flat distance to target is at least minDist.
// fallback is the approach direction used when p sits on target.
func pushOut(p, target Vec3, minDist float64, fallback Vec3) Vec3 {
	away, dist, ok := flatDirection(target, p)
	if dist >= minDist {
		return p
	}
	if !ok {
		away = fallback.Scale(-1)
	}
	out := target.Add(away.Scale(minDist))
	out.Y = p.Y
	return out
}

// Knockback returns the horizontal displacement applied to a victim pushed
// along direction. The magnitude is baseForce*max(0.1,multiplier), capped at
// maxStep when maxStep is positive.
func Knockback(direction Vec3, baseForce, multiplier, maxStep float64) Vec3 {
	force := math.Max(0, baseForce) * math.Max(0.1, multiplier)
	if maxStep > 0 {
		force = math.Min(force, maxStep)
	}
	d := direction.Flat()
	l := d.FlatLength()
	if force <= 0 || l <= epsilon {
		return Vec3{}
	}
	return d.Scale(force / l)
}
