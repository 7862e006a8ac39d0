// SPDX-License-Identifier: GPL-2.0-or-later

package winding

import (
	"qvis/math/vec"
)

// Separators appends to dst the planes bounding every sightline that passes
// through both source and pass. Candidates are built from an edge of source
// and a vertex of pass; a candidate qualifies if source lies behind it and
// pass in front. With flip the planes are turned around, which is what is
// needed when the order along the sightline is pass, source, target.
// Planes already present in dst are not added twice.
func Separators(source, pass *Winding, flip bool, eps float32, dst []Plane) []Plane {
	separate(source, pass, flip, eps, func(p Plane) bool {
		for _, o := range dst {
			if o.Equal(p, EqualEpsilon) {
				return true
			}
		}
		dst = append(dst, p)
		return true
	})
	return dst
}

// ClipToSeparators clips target by each separating plane of source and pass
// as soon as it is found. It returns nil when target gets clipped away.
func ClipToSeparators(source, pass, target *Winding, flip bool, eps Epsilon) *Winding {
	separate(source, pass, flip, eps.On, func(p Plane) bool {
		target = target.Clip(p, eps, true)
		return target != nil
	})
	return target
}

// separate calls emit for each separating plane, stopping when emit returns
// false. Only the first qualifying plane of each source edge is used.
func separate(source, pass *Winding, flip bool, eps float32, emit func(Plane) bool) {
	src := source.points
	n := len(src)
	for i := 0; i < n; i++ {
		l := (i + 1) % n
		v1 := vec.Sub(src[l], src[i])
		for j, pj := range pass.points {
			v2 := vec.Sub(pj, src[i])
			normal, length := vec.Cross(v1, v2).Normalize()
			if length < eps {
				continue
			}
			plane := Plane{Normal: normal, Dist: vec.DoublePrecDot(pj, normal)}

			// find out which side of the candidate has the source
			flipTest, found := false, false
			for k, pk := range src {
				if k == i || k == l {
					continue
				}
				d := plane.Distance(pk)
				if d < -eps {
					found = true
					break
				}
				if d > eps {
					flipTest, found = true, true
					break
				}
			}
			if !found {
				continue // coplanar with source
			}
			if flipTest {
				plane = plane.Negate()
			}

			// all of pass has to be in front now
			front, behind := 0, false
			for k, pk := range pass.points {
				if k == j {
					continue
				}
				d := plane.Distance(pk)
				if d < -eps {
					behind = true
					break
				}
				if d > eps {
					front++
				}
			}
			if behind || front == 0 {
				continue
			}

			if flip {
				plane = plane.Negate()
			}
			if !emit(plane) {
				return
			}
			break
		}
	}
}
