// SPDX-License-Identifier: GPL-2.0-or-later

// Package filter holds policies that narrow which portal pairs the
// visibility pass considers at all. A filter can only ever take candidates
// away, it can not make anything visible.
package filter

import (
	"qvis/math/vec"
	"qvis/portal"
)

// Filter decides if other may be seen through base. Implementations are
// called concurrently and must not keep state.
type Filter interface {
	Allow(base, other *portal.Portal) bool
}

// Func adapts a plain function to a Filter.
type Func func(base, other *portal.Portal) bool

func (f Func) Allow(base, other *portal.Portal) bool {
	return f(base, other)
}

// Chain allows a pair only if every filter does.
type Chain []Filter

func (c Chain) Allow(base, other *portal.Portal) bool {
	for _, f := range c {
		if !f.Allow(base, other) {
			return false
		}
	}
	return true
}

// MaxDistance rejects portals whose bounding spheres are further apart than
// the given distance. Zero or less disables the limit.
type MaxDistance float32

func (m MaxDistance) Allow(base, other *portal.Portal) bool {
	if m <= 0 {
		return true
	}
	gap := vec.Sub(other.Origin, base.Origin).Length() - base.Radius - other.Radius
	return gap <= float32(m)
}

type Box struct {
	Mins, Maxs vec.Vec3
}

func (b Box) Contains(p vec.Vec3) bool {
	return p.X >= b.Mins.X && p.X <= b.Maxs.X &&
		p.Y >= b.Mins.Y && p.Y <= b.Maxs.Y &&
		p.Z >= b.Mins.Z && p.Z <= b.Maxs.Z
}

// Zones splits the level into compartments. A portal belongs to the first
// box holding its center, portals of two different compartments never see
// each other. Portals outside of every box are not restricted.
type Zones []Box

// Zone returns 1 + the index of the box holding p, 0 for none.
func (z Zones) Zone(p vec.Vec3) int {
	for i, b := range z {
		if b.Contains(p) {
			return i + 1
		}
	}
	return 0
}

func (z Zones) Allow(base, other *portal.Portal) bool {
	a := z.Zone(base.Origin)
	if a == 0 {
		return true
	}
	b := z.Zone(other.Origin)
	return b == 0 || a == b
}

// All is the filter letting everything through.
var All Filter = Chain(nil)
