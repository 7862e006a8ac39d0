// SPDX-License-Identifier: GPL-2.0-or-later

package winding

import (
	"math"

	"github.com/chewxy/math32"

	"qvis/math/vec"
)

// Winding is a convex planar polygon. A Winding is never modified after it
// was created, operations return new windings instead.
type Winding struct {
	points []vec.Vec3
}

// New returns a winding over a copy of points.
func New(points []vec.Vec3) *Winding {
	p := make([]vec.Vec3, len(points))
	copy(p, points)
	return &Winding{points: p}
}

func (w *Winding) Len() int {
	return len(w.points)
}

func (w *Winding) Point(i int) vec.Vec3 {
	return w.points[i]
}

// Points returns a copy of the vertex loop.
func (w *Winding) Points() []vec.Vec3 {
	p := make([]vec.Vec3, len(w.points))
	copy(p, w.points)
	return p
}

// Reverse returns the winding with the opposite vertex order.
func (w *Winding) Reverse() *Winding {
	n := len(w.points)
	p := make([]vec.Vec3, n)
	for i, v := range w.points {
		p[n-1-i] = v
	}
	return &Winding{points: p}
}

// Plane derives the plane from the three consecutive points spanning the
// longest cross product, so collinear runs along an edge do not matter.
// For a degenerate winding the normal is null.
func (w *Winding) Plane() Plane {
	n := len(w.points)
	if n < 3 {
		return Plane{}
	}
	var best vec.Vec3
	var bestLength float32
	for i := 0; i < n; i++ {
		a, b, c := w.points[i], w.points[(i+1)%n], w.points[(i+2)%n]
		cr := vec.Cross(vec.Sub(a, b), vec.Sub(c, b))
		if l := cr.Length(); l > bestLength {
			best, bestLength = cr, l
		}
	}
	normal, _ := best.Normalize()
	return Plane{Normal: normal, Dist: vec.DoublePrecDot(w.points[0], normal)}
}

// Area returns the polygon area.
func (w *Winding) Area() float32 {
	if len(w.points) < 3 {
		return 0
	}
	var total float64
	p0 := w.points[0]
	for i := 1; i+1 < len(w.points); i++ {
		c := vec.Cross(vec.Sub(w.points[i], p0), vec.Sub(w.points[i+1], p0))
		l := float64(c.X)*float64(c.X) + float64(c.Y)*float64(c.Y) + float64(c.Z)*float64(c.Z)
		total += 0.5 * math.Sqrt(l)
	}
	return float32(total)
}

// Center returns the average of the points.
func (w *Winding) Center() vec.Vec3 {
	var c vec.Vec3
	for _, p := range w.points {
		c = vec.Add(c, p)
	}
	if len(w.points) == 0 {
		return c
	}
	return c.Scale(1 / float32(len(w.points)))
}

// Radius returns the largest distance of a point from Center.
func (w *Winding) Radius() float32 {
	c := w.Center()
	var r float32
	for _, p := range w.points {
		r = math32.Max(r, vec.Sub(p, c).Length())
	}
	return r
}

// Bounds returns the axis aligned bounding box.
func (w *Winding) Bounds() (mins, maxs vec.Vec3) {
	if len(w.points) == 0 {
		return
	}
	mins, maxs = w.points[0], w.points[0]
	for _, p := range w.points[1:] {
		mins = vec.Min(mins, p)
		maxs = vec.Max(maxs, p)
	}
	return mins, maxs
}

// Degenerate reports whether the winding has too few points, no usable
// normal or an area below the tolerance.
func (w *Winding) Degenerate(eps Epsilon) bool {
	if len(w.points) < 3 {
		return true
	}
	if w.Plane().Normal == (vec.Vec3{}) {
		return true
	}
	return w.Area() < eps.Area
}

// Classify returns where the winding lies relative to the plane.
func (w *Winding) Classify(p Plane, eps float32) Side {
	front, back := false, false
	for _, v := range w.points {
		switch p.SideOf(v, eps) {
		case Front:
			front = true
		case Back:
			back = true
		}
		if front && back {
			return Cross
		}
	}
	switch {
	case front:
		return Front
	case back:
		return Back
	}
	return On
}

// Clip returns the part of w on the front side of p. Points within eps of
// the plane are kept. If nothing is cut away w itself is returned, if
// nothing usable remains the result is nil. A winding lying in the plane
// survives only with keepOn.
func (w *Winding) Clip(p Plane, eps Epsilon, keepOn bool) *Winding {
	n := len(w.points)
	dists := make([]float32, n+1)
	sides := make([]Side, n+1)
	var counts [3]int
	for i, v := range w.points {
		d := p.Distance(v)
		dists[i] = d
		switch {
		case d > eps.On:
			sides[i] = Front
		case d < -eps.On:
			sides[i] = Back
		default:
			sides[i] = On
		}
		counts[sides[i]]++
	}
	dists[n] = dists[0]
	sides[n] = sides[0]

	if counts[Front] == 0 && counts[Back] == 0 {
		if keepOn {
			return w
		}
		return nil
	}
	if counts[Back] == 0 {
		return w
	}
	if counts[Front] == 0 {
		return nil
	}

	out := make([]vec.Vec3, 0, n+4)
	for i := 0; i < n; i++ {
		p1 := w.points[i]
		switch sides[i] {
		case On:
			out = append(out, p1)
			continue
		case Front:
			out = append(out, p1)
		}
		if sides[i+1] == On || sides[i+1] == sides[i] {
			continue
		}
		p2 := w.points[(i+1)%n]
		out = append(out, split(p1, p2, dists[i]/(dists[i]-dists[i+1]), p))
	}
	if len(out) < 3 {
		return nil
	}
	r := &Winding{points: out}
	if r.Area() < eps.Area {
		return nil
	}
	return r
}

// split interpolates between p1 and p2, snapping axial components onto the
// plane to avoid round off.
func split(p1, p2 vec.Vec3, frac float32, p Plane) vec.Vec3 {
	var mid [3]float32
	a, b, n := p1.Array(), p2.Array(), p.Normal.Array()
	for j := 0; j < 3; j++ {
		switch {
		case n[j] >= 1-NormalEpsilon:
			mid[j] = p.Dist
		case n[j] <= -1+NormalEpsilon:
			mid[j] = -p.Dist
		default:
			mid[j] = a[j] + frac*(b[j]-a[j])
		}
	}
	return vec.VFromA(mid)
}
