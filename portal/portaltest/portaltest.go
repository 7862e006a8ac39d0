// SPDX-License-Identifier: GPL-2.0-or-later

// Package portaltest builds small portal graphs for tests.
package portaltest

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"qvis/math/vec"
	"qvis/portal"
	"qvis/winding"
)

// Scene collects portal records and renders them as a PRT1 file.
type Scene struct {
	Leafs   int
	records []string
}

func New(leafs int) *Scene {
	return &Scene{Leafs: leafs}
}

// Portal adds an aperture between a and b. inA is any point inside leaf a,
// the vertex order is fixed up so the winding faces a.
func (s *Scene) Portal(a, b int, inA vec.Vec3, pts ...vec.Vec3) *Scene {
	w := winding.New(pts)
	if w.Plane().Distance(inA) < 0 {
		w = w.Reverse()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %d %d", w.Len(), a, b)
	for _, p := range w.Points() {
		fmt.Fprintf(&sb, " (%s %s %s)", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	s.records = append(s.records, sb.String())
	return s
}

func ftoa(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (s *Scene) Text() []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PRT1\n%d\n%d\n", s.Leafs, len(s.records))
	for _, r := range s.records {
		sb.WriteString(r)
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// Graph parses the scene and fails the test on error.
func (s *Scene) Graph(t testing.TB) *portal.Graph {
	t.Helper()
	g, err := portal.Parse(s.Text(), winding.DefaultEpsilon)
	if err != nil {
		t.Fatalf("scene does not load: %v", err)
	}
	return g
}

// QuadX is the rectangle in the plane x=at.
func QuadX(at, y0, y1, z0, z1 float32) []vec.Vec3 {
	return []vec.Vec3{{X: at, Y: y0, Z: z1}, {X: at, Y: y0, Z: z0}, {X: at, Y: y1, Z: z0}, {X: at, Y: y1, Z: z1}}
}

// QuadY is the rectangle in the plane y=at.
func QuadY(at, x0, x1, z0, z1 float32) []vec.Vec3 {
	return []vec.Vec3{{X: x0, Y: at, Z: z1}, {X: x0, Y: at, Z: z0}, {X: x1, Y: at, Z: z0}, {X: x1, Y: at, Z: z1}}
}

// Line chains leafs along +x, leaf i spanning x from 10*(i-1) to 10*i with
// leaf 0 below zero. windows[i] is the y range of the portal at x=10*i,
// all portals span z from 0 to 1.
func Line(windows ...[2]float32) *Scene {
	s := New(len(windows) + 1)
	for i, w := range windows {
		x := float32(10 * i)
		s.Portal(i, i+1, vec.Vec3{X: x - 5, Y: 0, Z: 0}, QuadX(x, w[0], w[1], 0, 1)...)
	}
	return s
}

// Grid is a nx by ny field of 10 unit cells, z from 0 to 10. Cell (i,j)
// is leaf j*nx+i. Every inner wall is opened with a random window.
type Grid struct {
	*Scene
	NX, NY int
	// window of the wall between a cell and its +x and +y neighbour, as
	// {u0, u1, z0, z1} where u is y for +x walls and x for +y walls
	WallX, WallY map[int][4]float32
}

func (g *Grid) Leaf(i, j int) int {
	return j*g.NX + i
}

func NewGrid(nx, ny int, rng *rand.Rand) *Grid {
	g := &Grid{Scene: New(nx * ny), NX: nx, NY: ny,
		WallX: map[int][4]float32{}, WallY: map[int][4]float32{}}
	window := func(base float32) [4]float32 {
		if rng.Intn(3) == 0 {
			return [4]float32{base, base + 10, 0, 10}
		}
		u0 := base + float32(rng.Intn(5))
		z0 := float32(rng.Intn(5))
		return [4]float32{u0, u0 + 4 + float32(rng.Intn(2)), z0, z0 + 4 + float32(rng.Intn(2))}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			inside := vec.Vec3{X: float32(10*i) + 5, Y: float32(10*j) + 5, Z: 5}
			if i+1 < nx {
				w := window(float32(10 * j))
				g.WallX[g.Leaf(i, j)] = w
				g.Portal(g.Leaf(i, j), g.Leaf(i+1, j), inside, QuadX(float32(10*(i+1)), w[0], w[1], w[2], w[3])...)
			}
			if j+1 < ny {
				w := window(float32(10 * i))
				g.WallY[g.Leaf(i, j)] = w
				g.Portal(g.Leaf(i, j), g.Leaf(i, j+1), inside, QuadY(float32(10*(j+1)), w[0], w[1], w[2], w[3])...)
			}
		}
	}
	return g
}

// Sees walks the segment from a to b through the grid and reports whether
// every wall it crosses is open at the crossing, with margin to spare.
// Both points have to be inside the grid.
func (g *Grid) Sees(a, b vec.Vec3, margin float32) bool {
	type crossing struct {
		t    float32
		axis int // 0 crosses a wall of constant x, 1 of constant y
	}
	var cs []crossing
	for axis, n := range []int{g.NX, g.NY} {
		pa, pb := a.Idx(axis), b.Idx(axis)
		for k := 1; k < n; k++ {
			w := float32(10 * k)
			if (pa < w) != (pb < w) {
				cs = append(cs, crossing{t: (w - pa) / (pb - pa), axis: axis})
			}
		}
	}
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].t < cs[j-1].t; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
	ci, cj := int(a.X/10), int(a.Y/10)
	for _, c := range cs {
		p := vec.Lerp(a, b, c.t)
		var win [4]float32
		var u float32
		if c.axis == 0 {
			step := 1
			if b.X < a.X {
				step = -1
			}
			lo := min(ci, ci+step)
			win = g.WallX[g.Leaf(lo, cj)]
			u = p.Y
			ci += step
		} else {
			step := 1
			if b.Y < a.Y {
				step = -1
			}
			lo := min(cj, cj+step)
			win = g.WallY[g.Leaf(ci, lo)]
			u = p.X
			cj += step
		}
		if u < win[0]+margin || u > win[1]-margin || p.Z < win[2]+margin || p.Z > win[3]-margin {
			return false
		}
	}
	return true
}

// RandomPoint returns a point strictly inside cell (i,j).
func (g *Grid) RandomPoint(i, j int, rng *rand.Rand) vec.Vec3 {
	return vec.Vec3{
		X: float32(10*i) + 0.5 + 9*rng.Float32(),
		Y: float32(10*j) + 0.5 + 9*rng.Float32(),
		Z: 0.5 + 9*rng.Float32(),
	}
}
