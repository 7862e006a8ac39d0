// SPDX-License-Identifier: GPL-2.0-or-later

package winding

import (
	"github.com/chewxy/math32"

	"qvis/math/vec"
)

const (
	// OnEpsilon is the partitioner's on-plane tolerance. Portal files are
	// produced with it, so the solver has to use the very same value.
	OnEpsilon = 0.01
	// AreaEpsilon is the area below which a winding counts as collapsed.
	AreaEpsilon = 0.000001
	// EqualEpsilon is used to compare planes and points for identity.
	EqualEpsilon = 0.001
	// NormalEpsilon is the shortest edge cross product accepted as a normal.
	NormalEpsilon = 0.00001
)

// Epsilon bundles the tolerances used by clipping. It is passed through
// explicitly so that every result only depends on its inputs.
type Epsilon struct {
	On   float32
	Area float32
}

var DefaultEpsilon = Epsilon{On: OnEpsilon, Area: AreaEpsilon}

type Side int

const (
	Front Side = iota
	Back
	On
	Cross
)

func (s Side) String() string {
	switch s {
	case Front:
		return "front"
	case Back:
		return "back"
	case On:
		return "on"
	default:
		return "cross"
	}
}

// Plane is given by Normal·p = Dist, Normal has unit length.
type Plane struct {
	Normal vec.Vec3
	Dist   float32
}

// Distance returns the signed distance of p to the plane, computed in double
// precision.
func (p Plane) Distance(v vec.Vec3) float32 {
	d := float64(p.Normal.X)*float64(v.X) +
		float64(p.Normal.Y)*float64(v.Y) +
		float64(p.Normal.Z)*float64(v.Z)
	return float32(d - float64(p.Dist))
}

// Negate returns the same plane facing the other way.
func (p Plane) Negate() Plane {
	return Plane{Normal: p.Normal.Negate(), Dist: -p.Dist}
}

// Equal reports whether both planes are the same within eps.
func (p Plane) Equal(o Plane, eps float32) bool {
	return math32.Abs(p.Dist-o.Dist) <= eps && vec.EqualEpsilon(p.Normal, o.Normal, eps)
}

// SideOf classifies a single point.
func (p Plane) SideOf(v vec.Vec3, eps float32) Side {
	d := p.Distance(v)
	switch {
	case d > eps:
		return Front
	case d < -eps:
		return Back
	}
	return On
}
