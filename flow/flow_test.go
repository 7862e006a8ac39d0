// SPDX-License-Identifier: GPL-2.0-or-later

package flow

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"qvis/leafset"
	"qvis/math/vec"
	"qvis/portal"
	"qvis/portal/portaltest"
	"qvis/workpool"
)

func solve(t *testing.T, g *portal.Graph, opts Options, workers int) {
	t.Helper()
	pool := workpool.Options{Workers: workers}
	if err := BasePortalVis(context.Background(), g, opts, pool); err != nil {
		t.Fatalf("BasePortalVis: %v", err)
	}
	if err := PortalFlow(context.Background(), g, opts, pool); err != nil {
		t.Fatalf("PortalFlow: %v", err)
	}
}

// leafVis is the union of the portal results of a leaf plus the leaf.
func leafVis(g *portal.Graph, l int) *leafset.Builder {
	b := leafset.NewBuilder(len(g.Leafs))
	b.Set(l)
	for _, p := range g.Leafs[l].Portals {
		b.Or(p.Vis())
	}
	return b
}

func want(t *testing.T, g *portal.Graph, leaf int, visible ...int) {
	t.Helper()
	got := leafVis(g, leaf)
	w := leafset.NewBuilder(len(g.Leafs))
	for _, v := range visible {
		w.Set(v)
	}
	if !got.Seal().Equal(w.Seal()) {
		var list []int
		for i := 0; i < len(g.Leafs); i++ {
			if got.Has(i) {
				list = append(list, i)
			}
		}
		t.Errorf("leaf %d sees %v, want %v", leaf, list, visible)
	}
}

// allMightSee stands in for BasePortalVis so only the exact pass prunes.
func allMightSee(g *portal.Graph) {
	for _, p := range g.Portals {
		b := leafset.NewBuilder(len(g.Leafs))
		for i := range g.Leafs {
			b.Set(i)
		}
		p.SetMightSee(b.Seal())
	}
}

func flowAll(t *testing.T, g *portal.Graph, opts Options) {
	t.Helper()
	if err := PortalFlow(context.Background(), g, opts, workpool.Options{Workers: 2}); err != nil {
		t.Fatalf("PortalFlow: %v", err)
	}
}

func TestTwoLeafs(t *testing.T) {
	g := portaltest.Line([2]float32{0, 8}).Graph(t)
	solve(t, g, Options{}, 1)
	want(t, g, 0, 0, 1)
	want(t, g, 1, 0, 1)
}

func TestStraightLine(t *testing.T) {
	g := portaltest.Line([2]float32{0, 1}, [2]float32{0, 1}).Graph(t)
	solve(t, g, Options{}, 2)
	want(t, g, 0, 0, 1, 2)
	want(t, g, 1, 0, 1, 2)
	want(t, g, 2, 0, 1, 2)
}

func TestOccludedLine(t *testing.T) {
	windows := [][2]float32{{0, 1}, {0, 1}, {5, 6}}
	for _, full := range []bool{false, true} {
		g := portaltest.Line(windows...).Graph(t)
		solve(t, g, Options{Full: full}, 2)
		want(t, g, 0, 0, 1, 2)
		want(t, g, 3, 1, 2, 3)

		// rough pass still lets leaf 3 through, the exact pass has to cut it
		g = portaltest.Line(windows...).Graph(t)
		allMightSee(g)
		flowAll(t, g, Options{Full: full})
		want(t, g, 0, 0, 1, 2)
		want(t, g, 3, 1, 2, 3)
	}
}

// coplanar turn: leaf 2 lies next to leaf 0, both behind the plane x=0
func coplanarTurn() *portaltest.Scene {
	return portaltest.New(3).
		Portal(0, 1, vec.Vec3{X: -5, Y: 0.5, Z: 0.5}, portaltest.QuadX(0, 0, 1, 0, 1)...).
		Portal(1, 2, vec.Vec3{X: 5, Y: 2.5, Z: 0.5}, portaltest.QuadX(0, 2, 3, 0, 1)...)
}

func TestCoplanarTurn(t *testing.T) {
	g := coplanarTurn().Graph(t)
	solve(t, g, Options{}, 1)
	want(t, g, 0, 0, 1)
	want(t, g, 2, 1, 2)

	g = coplanarTurn().Graph(t)
	allMightSee(g)
	flowAll(t, g, Options{})
	want(t, g, 0, 0, 1)
	want(t, g, 2, 1, 2)
}

func TestMightSeeSuperset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := portaltest.NewGrid(4, 3, rng).Graph(t)
	solve(t, g, Options{}, 4)
	for _, p := range g.Portals {
		if !p.Vis().SubsetOf(p.MightSee()) {
			t.Errorf("portal %d sees beyond its mightsee", p.Index)
		}
		if !p.Vis().Has(p.Leaf) {
			t.Errorf("portal %d does not see the leaf it leads into", p.Index)
		}
		if p.Status() != portal.Done {
			t.Errorf("portal %d is %v", p.Index, p.Status())
		}
	}
}

func TestDeterministic(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		var ref [][]byte
		for _, workers := range []int{1, 3, 8} {
			g := portaltest.NewGrid(4, 4, rand.New(rand.NewSource(seed))).Graph(t)
			solve(t, g, Options{}, workers)
			for i, p := range g.Portals {
				b := p.Vis().Bytes()
				if ref == nil || len(ref) <= i {
					ref = append(ref, b)
					continue
				}
				if string(ref[i]) != string(b) {
					t.Errorf("seed %d workers %d: portal %d differs", seed, workers, i)
				}
			}
		}
	}
}

func TestSound(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		rng := rand.New(rand.NewSource(seed))
		grid := portaltest.NewGrid(4, 4, rng)
		g := grid.Graph(t)
		solve(t, g, Options{}, 4)
		rows := make([]*leafset.Builder, len(g.Leafs))
		for l := range rows {
			rows[l] = leafVis(g, l)
		}
		for n := 0; n < 20000; n++ {
			li, lj := rng.Intn(grid.NX), rng.Intn(grid.NY)
			mi, mj := rng.Intn(grid.NX), rng.Intn(grid.NY)
			a, b := grid.RandomPoint(li, lj, rng), grid.RandomPoint(mi, mj, rng)
			if !grid.Sees(a, b, 0.1) {
				continue
			}
			l, m := grid.Leaf(li, lj), grid.Leaf(mi, mj)
			if !rows[l].Has(m) {
				t.Fatalf("seed %d: %v in leaf %d sees %v in leaf %d, but the pvs misses it", seed, a, l, b, m)
			}
		}
	}
}

func TestOverflow(t *testing.T) {
	g := portaltest.Line([2]float32{0, 1}, [2]float32{0, 1}).Graph(t)
	pool := workpool.Options{Workers: 1}
	if err := BasePortalVis(context.Background(), g, Options{}, pool); err != nil {
		t.Fatal(err)
	}
	err := PortalFlow(context.Background(), g, Options{MaxDepth: 1}, pool)
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("PortalFlow = %v, want OverflowError", err)
	}
	// only the two portals looking across the middle leaf get that deep
	if oe.Depth != 1 || (oe.Base != 0 && oe.Base != 3) {
		t.Errorf("overflow reported at portal %d depth %d", oe.Base, oe.Depth)
	}
}

func TestFast(t *testing.T) {
	g := portaltest.Line([2]float32{0, 1}, [2]float32{0, 1}, [2]float32{5, 6}).Graph(t)
	if err := BasePortalVis(context.Background(), g, Options{}, workpool.Options{}); err != nil {
		t.Fatal(err)
	}
	if err := Fast(g); err != nil {
		t.Fatal(err)
	}
	for _, p := range g.Portals {
		if !p.Vis().Equal(p.MightSee()) {
			t.Errorf("portal %d: fast vis differs from mightsee", p.Index)
		}
	}
	// the rough pass can not tell leaf 3 is hidden
	want(t, g, 0, 0, 1, 2, 3)
	if err := Fast(g); err == nil {
		t.Errorf("second Fast accepted")
	}
}

func TestOrder(t *testing.T) {
	g := portaltest.Line([2]float32{0, 1}, [2]float32{0, 1}).Graph(t)
	if err := BasePortalVis(context.Background(), g, Options{}, workpool.Options{}); err != nil {
		t.Fatal(err)
	}
	order := Order(g)
	for i := 1; i < len(order); i++ {
		a, b := g.Portals[order[i-1]], g.Portals[order[i]]
		ca, cb := a.MightSee().Count(), b.MightSee().Count()
		if ca > cb || (ca == cb && a.Index > b.Index) {
			t.Errorf("order %v is not by mightsee", order)
		}
	}
}
