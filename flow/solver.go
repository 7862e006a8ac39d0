// SPDX-License-Identifier: GPL-2.0-or-later

package flow

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"qvis/leafset"
	"qvis/math/vec"
	"qvis/portal"
	"qvis/winding"
	"qvis/workpool"
)

// frame is one step along a sight line: the leaf entered and what is left
// of the base portal (source) and the portal crossed last (pass).
type frame struct {
	leaf     int
	source   *winding.Winding
	pass     *winding.Winding // nil in the leaf right behind the base portal
	plane    winding.Plane    // of the portal crossed to get here
	mightsee leafset.Mask
	planes   []winding.Plane // separators of source and pass
	planesOK bool
	next     int // next portal of leaf to look at
}

// Solver runs the exact flow for one portal at a time. Its frame arena is
// reused between portals, so a Solver must stay with one goroutine.
type Solver struct {
	g      *portal.Graph
	opts   Options
	frames []*frame
}

func NewSolver(g *portal.Graph, opts Options) *Solver {
	return &Solver{g: g, opts: opts.withDefaults()}
}

// at returns frame i, allocating the arena up to it.
func (s *Solver) at(i int) *frame {
	for len(s.frames) <= i {
		s.frames = append(s.frames, &frame{mightsee: make(leafset.Mask, s.g.BitBytes())})
	}
	return s.frames[i]
}

// Flow returns the leafs visible through base. It only reads the graph and
// the mightsee sets.
func (s *Solver) Flow(base *portal.Portal) (leafset.Bits, error) {
	vis := leafset.NewBuilder(len(s.g.Leafs))
	f := s.at(0)
	*f = frame{
		leaf:     base.Leaf,
		source:   base.Winding,
		plane:    base.Plane,
		mightsee: f.mightsee,
		planes:   f.planes[:0],
	}
	f.mightsee.Copy(base.MightSee())
	vis.Set(base.Leaf)

	depth := 0
	for depth >= 0 {
		f := s.frames[depth]
		portals := s.g.Leafs[f.leaf].Portals
		if f.next == len(portals) {
			depth--
			continue
		}
		q := portals[f.next]
		f.next++

		child := s.at(depth + 1)
		if !s.step(base, f, q, child, vis) {
			continue
		}
		if depth+1 >= s.opts.MaxDepth {
			return leafset.Bits{}, &OverflowError{Base: base.Index, Leaf: q.Leaf, Depth: depth + 1}
		}
		depth++
		if !vis.Has(child.leaf) {
			vis.Set(child.leaf)
		}
	}
	return vis.Seal(), nil
}

// step decides if the sight line can go on from f through q. If so child
// is filled in and true is returned.
func (s *Solver) step(base *portal.Portal, f *frame, q *portal.Portal, child *frame, vis *leafset.Builder) bool {
	eps := s.opts.Epsilon
	if !s.opts.Filter.Allow(base, q) {
		return false
	}
	if !base.MightSee().Has(q.Leaf) || !f.mightsee.Has(q.Leaf) {
		return false
	}
	// nothing behind q that is not already known to be visible
	if !child.mightsee.And(f.mightsee, q.MightSee(), vis) {
		return false
	}

	back := q.Plane.Negate()
	if vec.EqualEpsilon(f.plane.Normal, back.Normal, winding.EqualEpsilon) {
		return false // can't leave through a coplanar face
	}

	pass := q.Winding.Clip(base.Plane, eps, true)
	if pass == nil {
		return false
	}
	source := f.source.Clip(back, eps, true)
	if source == nil {
		return false
	}

	if f.pass != nil {
		if pass = pass.Clip(f.plane, eps, true); pass == nil {
			return false
		}
		if !f.planesOK {
			f.planes = winding.Separators(f.source, f.pass, false, eps.On, f.planes[:0])
			f.planes = winding.Separators(f.pass, f.source, true, eps.On, f.planes)
			f.planesOK = true
		}
		for _, pl := range f.planes {
			if pass = pass.Clip(pl, eps, true); pass == nil {
				return false
			}
		}
		if s.opts.Full {
			if source = winding.ClipToSeparators(pass, f.pass, source, false, eps); source == nil {
				return false
			}
			if source = winding.ClipToSeparators(f.pass, pass, source, true, eps); source == nil {
				return false
			}
		}
	}

	child.leaf = q.Leaf
	child.source = source
	child.pass = pass
	child.plane = q.Plane
	child.planes = child.planes[:0]
	child.planesOK = false
	child.next = 0
	return true
}

// PortalFlow runs the exact pass for every portal. BasePortalVis has to
// be done. Portals with the smallest mightsee go first, as their results
// are cheapest.
func PortalFlow(ctx context.Context, g *portal.Graph, opts Options, pool workpool.Options) error {
	opts = opts.withDefaults()
	pool.Order = Order(g)
	err := workpool.Run(ctx, len(g.Portals), pool, func(int) workpool.Task {
		s := NewSolver(g, opts)
		return func(i int) error {
			p := g.Portals[i]
			if !p.Begin() {
				return errors.Errorf("portal %d: flowed twice", p.Index)
			}
			vis, err := s.Flow(p)
			if err != nil {
				return err
			}
			opts.Logger.Debug("portal", "index", p.Index, "mightsee", p.MightSee().Count(), "cansee", vis.Count())
			return p.Complete(vis)
		}
	})
	return errors.Wrap(err, "portal flow")
}

// Fast completes every portal with its mightsee, skipping the exact pass.
func Fast(g *portal.Graph) error {
	for _, p := range g.Portals {
		if !p.Begin() {
			return errors.Errorf("portal %d: flowed twice", p.Index)
		}
		if err := p.Complete(p.MightSee()); err != nil {
			return err
		}
	}
	return nil
}

// Order lists the portals by ascending mightsee count, ties by index.
func Order(g *portal.Graph) []int {
	order := make([]int, len(g.Portals))
	counts := make([]int, len(g.Portals))
	for i, p := range g.Portals {
		order[i] = i
		counts[i] = p.MightSee().Count()
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] < counts[order[b]]
	})
	return order
}
