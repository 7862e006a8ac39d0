// SPDX-License-Identifier: GPL-2.0-or-later

package flow

import (
	"context"

	"github.com/pkg/errors"

	"qvis/leafset"
	"qvis/portal"
	"qvis/workpool"
)

// BasePortalVis sets the mightsee of every portal. A portal q counts as
// visible from p unless one of them lies completely behind the other; the
// leafs reachable from p's leaf through such portals form p's mightsee.
// All mightsee sets are complete when BasePortalVis returns.
func BasePortalVis(ctx context.Context, g *portal.Graph, opts Options, pool workpool.Options) error {
	opts = opts.withDefaults()
	n := len(g.Portals)
	err := workpool.Run(ctx, n, pool, func(int) workpool.Task {
		see := make([]bool, n)
		var todo []int
		return func(i int) error {
			p := g.Portals[i]
			for j, q := range g.Portals {
				see[j] = j != i && opts.Filter.Allow(p, q) && canSee(p, q, opts.Epsilon.On)
			}
			var mightsee *leafset.Builder
			mightsee, todo = flood(g, p.Leaf, see, todo)
			p.SetMightSee(mightsee.Seal())
			return nil
		}
	})
	return errors.Wrap(err, "base portal vis")
}

// canSee is the cheap pair test: some part of q has to be in front of p
// and some part of p behind q.
func canSee(p, q *portal.Portal, eps float32) bool {
	front := false
	for i := 0; i < q.Winding.Len(); i++ {
		if p.Plane.Distance(q.Winding.Point(i)) > eps {
			front = true
			break
		}
	}
	if !front {
		return false
	}
	for i := 0; i < p.Winding.Len(); i++ {
		if q.Plane.Distance(p.Winding.Point(i)) < -eps {
			return true
		}
	}
	return false
}

// flood collects the leafs reachable from start through portals marked in
// see. todo is scratch space handed back for reuse.
func flood(g *portal.Graph, start int, see []bool, todo []int) (*leafset.Builder, []int) {
	b := leafset.NewBuilder(len(g.Leafs))
	b.Set(start)
	todo = append(todo[:0], start)
	for len(todo) > 0 {
		l := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		for _, q := range g.Leafs[l].Portals {
			if !see[q.Index] || b.Has(q.Leaf) {
				continue
			}
			b.Set(q.Leaf)
			todo = append(todo, q.Leaf)
		}
	}
	return b, todo
}
