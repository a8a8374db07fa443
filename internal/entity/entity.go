// Package entity holds the live world objects a cast reads and mutates, and the
// lookup facade the cast pipeline uses to find them.
package entity

import (
	"math"
)

// ID is an opaque entity identifier. Zero is never a live entity.
type ID uint64

// MapKey identifies a world partition: a map and one of its instances.
type MapKey struct {
	Map      uint32
	Instance uint32
}

// Position is a point in a map plus a facing angle in radians.
type Position struct {
	X float64
	Y float64
	Z float64
	O float64
}

// Distance returns the 3D distance between two positions.
func (p Position) Distance(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance2D returns the distance ignoring height.
func (p Position) Distance2D(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// AngleTo returns the absolute angle from p to o.
func (p Position) AngleTo(o Position) float64 {
	return normalizeAngle(math.Atan2(o.Y-p.Y, o.X-p.X))
}

// HasInArc returns true if o lies within an arc of the given width centered on p's facing.
func (p Position) HasInArc(arc float64, o Position) bool {
	if p.X == o.X && p.Y == o.Y {
		return true
	}
	if arc >= 2*math.Pi {
		return true
	}
	angle := normalizeAngle(p.AngleTo(o) - p.O)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	}
	lborder := -arc / 2
	rborder := arc / 2
	return angle >= lborder && angle <= rborder
}

// InFront returns true if o is in the half circle p faces.
func (p Position) InFront(o Position) bool {
	return p.HasInArc(math.Pi, o)
}

// InLine returns true if o is in front of p and within width/2 of p's facing ray.
func (p Position) InLine(o Position, width float64) bool {
	if !p.InFront(o) {
		return false
	}
	dx, dy := o.X-p.X, o.Y-p.Y
	// perpendicular distance to the facing ray
	off := math.Abs(-math.Sin(p.O)*dx + math.Cos(p.O)*dy)
	return off <= width/2
}

// Moved returns p offset by distance along the given angle.
func (p Position) Moved(angle, distance float64) Position {
	return Position{
		X: p.X + math.Cos(angle)*distance,
		Y: p.Y + math.Sin(angle)*distance,
		Z: p.Z,
		O: p.O,
	}
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
