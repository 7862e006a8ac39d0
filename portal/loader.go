// SPDX-License-Identifier: GPL-2.0-or-later

package portal

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"qvis/math/vec"
	"qvis/winding"
)

const (
	MaxLeafs  = 1 << 20
	MaxPoints = 128 // vertices of a single portal winding

	binaryHeaderSize = 8
	// the shortest possible record, one with three vertices
	minBinaryRecord = 3*4 + 3*3*4
	minTextRecord   = 23
)

// record is one aperture as it appears in the input.
type record struct {
	a, b   int
	points []vec.Vec3
}

// Load reads a complete portal file from r.
func Load(r io.Reader, eps winding.Epsilon) (*Graph, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading portal file")
	}
	return Parse(b, eps)
}

// Parse decodes either the binary layout (two uint32 counts followed by
// the records, little endian) or the text PRT1 layout and builds the graph.
func Parse(b []byte, eps winding.Epsilon) (*Graph, error) {
	var (
		leafs   int
		records []record
		err     error
	)
	if isText(b) {
		leafs, records, err = parseText(b)
	} else {
		leafs, records, err = parseBinary(b)
	}
	if err != nil {
		return nil, err
	}
	return build(leafs, records, eps)
}

// isText looks at the first bytes. A binary leaf count below MaxLeafs always
// holds a zero byte there, text never does.
func isText(b []byte) bool {
	if bytes.HasPrefix(b, []byte("PRT")) {
		return true
	}
	n := min(len(b), binaryHeaderSize)
	if n == 0 {
		return false
	}
	for _, c := range b[:n] {
		if c > 0x7e || (c < 0x20 && c != '\n' && c != '\r' && c != '\t') {
			return false
		}
	}
	return true
}

func parseBinary(b []byte) (int, []record, error) {
	if len(b) < binaryHeaderSize {
		return 0, nil, formatErr(-1, -1, "truncated header")
	}
	leafs := binary.LittleEndian.Uint32(b)
	count := binary.LittleEndian.Uint32(b[4:])
	if err := checkCounts(uint64(leafs), uint64(count), len(b)-binaryHeaderSize, minBinaryRecord); err != nil {
		return 0, nil, err
	}
	records := make([]record, count)
	off := binaryHeaderSize
	for i := range records {
		if len(b)-off < 12 {
			return 0, nil, formatErr(i, -1, "truncated record")
		}
		a := binary.LittleEndian.Uint32(b[off:])
		c := binary.LittleEndian.Uint32(b[off+4:])
		n := binary.LittleEndian.Uint32(b[off+8:])
		off += 12
		if n < 3 {
			return 0, nil, formatErr(i, -1, "%d vertices, need at least 3", n)
		}
		if n > MaxPoints {
			return 0, nil, formatErr(i, -1, "%d vertices, at most %d allowed", n, MaxPoints)
		}
		if uint64(len(b)-off) < uint64(n)*12 {
			return 0, nil, formatErr(i, -1, "truncated vertex list")
		}
		pts := make([]vec.Vec3, n)
		for j := range pts {
			pts[j] = vec.Vec3{
				X: math.Float32frombits(binary.LittleEndian.Uint32(b[off:])),
				Y: math.Float32frombits(binary.LittleEndian.Uint32(b[off+4:])),
				Z: math.Float32frombits(binary.LittleEndian.Uint32(b[off+8:])),
			}
			off += 12
		}
		records[i] = record{a: int(a), b: int(c), points: pts}
	}
	if off != len(b) {
		return 0, nil, formatErr(-1, -1, "%d trailing bytes", len(b)-off)
	}
	return int(leafs), records, nil
}

// checkCounts bounds the header counts before anything gets allocated.
// remaining is the input size left for the records.
func checkCounts(leafs, count uint64, remaining int, minRecord uint64) error {
	if leafs == 0 {
		return formatErr(-1, -1, "no leafs")
	}
	if leafs > MaxLeafs {
		return formatErr(-1, -1, "%d leafs, at most %d allowed", leafs, MaxLeafs)
	}
	// every leaf needs a portal and every record borders two leafs
	if leafs > 2*count {
		return formatErr(-1, -1, "%d leafs cannot be joined by %d portals", leafs, count)
	}
	if count*minRecord > uint64(remaining) {
		return formatErr(-1, -1, "%d portals do not fit into %d bytes", count, remaining)
	}
	return nil
}

// Encode writes the graph in the binary layout Parse accepts.
func Encode(g *Graph) []byte {
	var buf bytes.Buffer
	var tmp [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(tmp[:], v)
		buf.Write(tmp[:])
	}
	put(uint32(len(g.Leafs)))
	put(uint32(len(g.Portals) / 2))
	for i := 0; i < len(g.Portals); i += 2 {
		p := g.Portals[i]
		put(uint32(p.Owner))
		put(uint32(p.Leaf))
		put(uint32(p.Winding.Len()))
		for j := 0; j < p.Winding.Len(); j++ {
			v := p.Winding.Point(j)
			put(math.Float32bits(v.X))
			put(math.Float32bits(v.Y))
			put(math.Float32bits(v.Z))
		}
	}
	return buf.Bytes()
}

// tokenizer splits on whitespace and parentheses.
type tokenizer struct {
	b   []byte
	pos int
}

func isSep(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')':
		return true
	}
	return false
}

func (t *tokenizer) next() (string, bool) {
	for t.pos < len(t.b) && isSep(t.b[t.pos]) {
		t.pos++
	}
	if t.pos == len(t.b) {
		return "", false
	}
	start := t.pos
	for t.pos < len(t.b) && !isSep(t.b[t.pos]) {
		t.pos++
	}
	return string(t.b[start:t.pos]), true
}

func (t *tokenizer) number(record int, what string) (uint64, error) {
	tok, ok := t.next()
	if !ok {
		return 0, formatErr(record, -1, "unexpected end of file reading %s", what)
	}
	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, &FormatError{Record: record, Leaf: -1, Reason: "bad " + what, Cause: err}
	}
	return v, nil
}

func (t *tokenizer) float(record int) (float32, error) {
	tok, ok := t.next()
	if !ok {
		return 0, formatErr(record, -1, "unexpected end of file reading vertex")
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &FormatError{Record: record, Leaf: -1, Reason: "bad vertex", Cause: err}
	}
	return float32(v), nil
}

func parseText(b []byte) (int, []record, error) {
	t := &tokenizer{b: b}
	if bytes.HasPrefix(b, []byte("PRT")) {
		magic, _ := t.next()
		if magic != "PRT1" {
			return 0, nil, formatErr(-1, -1, "unsupported portal file version %q", magic)
		}
	}
	leafs, err := t.number(-1, "leaf count")
	if err != nil {
		return 0, nil, err
	}
	count, err := t.number(-1, "portal count")
	if err != nil {
		return 0, nil, err
	}
	if err := checkCounts(leafs, count, len(b)-t.pos, minTextRecord); err != nil {
		return 0, nil, err
	}
	records := make([]record, count)
	for i := range records {
		n, err := t.number(i, "vertex count")
		if err != nil {
			return 0, nil, err
		}
		a, err := t.number(i, "leaf")
		if err != nil {
			return 0, nil, err
		}
		c, err := t.number(i, "leaf")
		if err != nil {
			return 0, nil, err
		}
		if n < 3 {
			return 0, nil, formatErr(i, -1, "%d vertices, need at least 3", n)
		}
		if n > MaxPoints {
			return 0, nil, formatErr(i, -1, "%d vertices, at most %d allowed", n, MaxPoints)
		}
		pts := make([]vec.Vec3, n)
		for j := range pts {
			var v [3]float32
			for k := range v {
				if v[k], err = t.float(i); err != nil {
					return 0, nil, err
				}
			}
			pts[j] = vec.VFromA(v)
		}
		records[i] = record{a: int(a), b: int(c), points: pts}
	}
	if tok, ok := t.next(); ok {
		return 0, nil, formatErr(-1, -1, "unexpected token %q after the last portal", tok)
	}
	return int(leafs), records, nil
}

func build(leafs int, records []record, eps winding.Epsilon) (*Graph, error) {
	g := &Graph{
		Leafs:   make([]*Leaf, leafs),
		Portals: make([]*Portal, 0, 2*len(records)),
	}
	for i := range g.Leafs {
		g.Leafs[i] = &Leaf{Index: i}
	}
	for i, r := range records {
		if r.a >= leafs {
			return nil, formatErr(i, r.a, "leaf out of range [0,%d)", leafs)
		}
		if r.b >= leafs {
			return nil, formatErr(i, r.b, "leaf out of range [0,%d)", leafs)
		}
		if r.a == r.b {
			return nil, formatErr(i, r.a, "portal joins the leaf to itself")
		}
		for _, p := range r.points {
			if !finite(p) {
				return nil, formatErr(i, -1, "vertex %v is not finite", p)
			}
		}
		w := winding.New(r.points)
		if w.Degenerate(eps) {
			return nil, formatErr(i, -1, "degenerate winding")
		}
		fwd, back := newPair(i, r.a, r.b, w)
		g.Portals = append(g.Portals, fwd, back)
		g.Leafs[r.a].Portals = append(g.Leafs[r.a].Portals, fwd)
		g.Leafs[r.b].Portals = append(g.Leafs[r.b].Portals, back)
	}
	for _, l := range g.Leafs {
		if len(l.Portals) == 0 {
			return nil, formatErr(-1, l.Index, "leaf has no portals")
		}
	}
	if err := g.CheckMirrors(); err != nil {
		return nil, err
	}
	return g, nil
}

func finite(v vec.Vec3) bool {
	for _, c := range v.Array() {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
