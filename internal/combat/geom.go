package combat

import "math"

// epsilon below which a direction is treated as degenerate.
const epsilon = 1e-6

// Vec3 is a world-space point. Y is the vertical axis and is ignored by all
// distance and movement math.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Flat drops the vertical component.
func (v Vec3) Flat() Vec3 { return Vec3{X: v.X, Z: v.Z} }

// FlatLength is the length of v projected on the ground plane.
func (v Vec3) FlatLength() float64 { return math.Hypot(v.X, v.Z) }

// FlatDistance returns the ground-plane distance between a and b.
func FlatDistance(a, b Vec3) float64 { return b.Sub(a).FlatLength() }

// flatDirection returns the horizontal unit vector from a towards b and the
// flat distance between them. ok is false when the points coincide.
func flatDirection(a, b Vec3) (dir Vec3, dist float64, ok bool) {
	d := b.Sub(a).Flat()
	dist = d.FlatLength()
	if dist <= epsilon {
		return Vec3{}, dist, false
	}
	return d.Scale(1 / dist), dist, true
}

// yaw converts a horizontal direction into a heading in radians, 0 facing +Z.
func yaw(dir Vec3) float64 { return math.Atan2(dir.X, dir.Z) }
