// SPDX-License-Identifier: GPL-2.0-or-later

package portal

import (
	"qvis/leafset"
	"qvis/winding"
)

// Graph is built once by the loader and never changed afterwards, apart
// from the per portal results.
//
// Portals come in pairs: 2*i leads from leaf_a to leaf_b of record i,
// 2*i+1 back.
type Graph struct {
	Leafs   []*Leaf
	Portals []*Portal
}

// BitBytes returns the size of a leaf row.
func (g *Graph) BitBytes() int {
	return leafset.Bytes(len(g.Leafs))
}

// Mirror returns the other direction of p.
func (g *Graph) Mirror(p *Portal) *Portal {
	return g.Portals[p.Index^1]
}

// CheckMirrors verifies that every pair shares the aperture: the vertex
// lists are exact reverses and the planes exact negations.
func (g *Graph) CheckMirrors() error {
	if len(g.Portals)%2 != 0 {
		return &FormatError{Record: -1, Leaf: -1, Reason: "odd number of directed portals"}
	}
	for i := 0; i < len(g.Portals); i += 2 {
		if err := checkPair(g.Portals[i], g.Portals[i+1]); err != nil {
			err.Record = i / 2
			return err
		}
	}
	return nil
}

func checkPair(f, b *Portal) *FormatError {
	if f.Leaf != b.Owner || f.Owner != b.Leaf {
		return &FormatError{Leaf: f.Owner, Reason: "mirror portal joins different leafs"}
	}
	n := f.Winding.Len()
	if b.Winding.Len() != n {
		return &FormatError{Leaf: f.Owner, Reason: "mirror portal has a different vertex count"}
	}
	for i := 0; i < n; i++ {
		if f.Winding.Point(i) != b.Winding.Point(n-1-i) {
			return &FormatError{Leaf: f.Owner, Reason: "mirror portal vertices are not reversed"}
		}
	}
	if f.Plane.Negate() != b.Plane {
		return &FormatError{Leaf: f.Owner, Reason: "mirror portal plane is not negated"}
	}
	return nil
}

// newPair builds both directions of the aperture w between a and b. The
// plane computed from w faces a.
func newPair(index, a, b int, w *winding.Winding) (*Portal, *Portal) {
	plane := w.Plane()
	center, radius := w.Center(), w.Radius()
	fwd := &Portal{
		Index:   2 * index,
		Winding: w,
		Plane:   plane.Negate(),
		Leaf:    b,
		Owner:   a,
		Origin:  center,
		Radius:  radius,
	}
	back := &Portal{
		Index:   2*index + 1,
		Winding: w.Reverse(),
		Plane:   plane,
		Leaf:    a,
		Owner:   b,
		Origin:  center,
		Radius:  radius,
	}
	return fwd, back
}
