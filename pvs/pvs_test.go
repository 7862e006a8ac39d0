// SPDX-License-Identifier: GPL-2.0-or-later

package pvs

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"qvis/flow"
	"qvis/leafset"
	"qvis/portal/portaltest"
	"qvis/workpool"
)

func TestCompress(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte{}, []byte{}},
		{[]byte{7, 0, 0, 0, 0, 0, 5, 0, 0, 0, 1, 1}, []byte{7, 0, 5, 5, 0, 3, 1, 1}},
		{[]byte{0}, []byte{0, 1}},
		{[]byte{0xff, 0xff}, []byte{0xff, 0xff}},
		{make([]byte, 255), []byte{0, 255}},
		{make([]byte, 256), []byte{0, 255, 0, 1}},
		{make([]byte, 600), []byte{0, 255, 0, 255, 0, 90}},
	}
	for _, tc := range tests {
		got := Compress(tc.in)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("Compress(%v) = %v, want %v", tc.in, got, tc.want)
		}
		back, n, err := Decompress(got, len(tc.in))
		if err != nil || n != len(got) || !bytes.Equal(back, tc.in) {
			t.Errorf("Decompress(%v) = %v, %d, %v", got, back, n, err)
		}
	}
}

// singleZeros counts the zero bytes without a zero neighbour. Each of them
// grows the output by one byte, longer runs never do.
func singleZeros(row []byte) int {
	n := 0
	for i, c := range row {
		if c == 0 && (i == 0 || row[i-1] != 0) && (i+1 == len(row) || row[i+1] != 0) {
			n++
		}
	}
	return n
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 500; n++ {
		row := make([]byte, rng.Intn(700))
		density := rng.Intn(4)
		for i := range row {
			if rng.Intn(4) < density {
				row[i] = byte(rng.Intn(256))
			}
		}
		c := Compress(row)
		if len(c) > len(row)+singleZeros(row) {
			t.Fatalf("%d bytes compressed to %d", len(row), len(c))
		}
		if singleZeros(row) <= 1 && len(c) > len(row)+2 {
			t.Fatalf("%d bytes with at most one lone zero compressed to %d", len(row), len(c))
		}
		if len(c) > len(row)+(len(row)+1)/2 {
			t.Fatalf("%d bytes compressed to %d", len(row), len(c))
		}
		// a following row must not be consumed
		src := append(append([]byte(nil), c...), 9, 9, 9)
		back, used, err := Decompress(src, len(row))
		if err != nil {
			t.Fatal(err)
		}
		if used != len(c) || !bytes.Equal(back, row) {
			t.Fatalf("round trip of %v gave %v (used %d of %d)", row, back, used, len(c))
		}
	}
}

func TestDecompressErrors(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		row  int
	}{
		{"empty", nil, 2},
		{"short", []byte{1}, 2},
		{"run without count", []byte{1, 0}, 3},
		{"empty run", []byte{0, 0, 1}, 2},
		{"run overflows", []byte{0, 5}, 4},
	}
	for _, tc := range tests {
		if _, _, err := Decompress(tc.src, tc.row); err == nil {
			t.Errorf("%s: no error", tc.name)
		}
	}
}

func row(leafs int, set ...int) leafset.Bits {
	b := leafset.NewBuilder(leafs)
	for _, i := range set {
		b.Set(i)
	}
	return b.Seal()
}

func TestLump(t *testing.T) {
	rows := []leafset.Bits{
		row(20, 0, 1),
		row(20, 1),
		row(20, 2, 19),
	}
	rows = append(rows, make([]leafset.Bits, 17)...)
	for i := 3; i < 20; i++ {
		rows[i] = row(20, i)
	}
	l := Encode(rows)
	if l.Offsets[0] != 0 {
		t.Errorf("first offset %d", l.Offsets[0])
	}
	b, err := l.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != l.Size() || len(b) != 4*20+len(l.Data) {
		t.Errorf("encoded %d bytes, Size() = %d", len(b), l.Size())
	}
	l2, err := ParseLump(b, 20)
	if err != nil {
		t.Fatal(err)
	}
	got, err := l2.Rows()
	if err != nil {
		t.Fatal(err)
	}
	for i := range rows {
		if !got[i].Equal(rows[i]) {
			t.Errorf("row %d = %v, want %v", i, got[i].Bytes(), rows[i].Bytes())
		}
	}
	if _, err := l2.Row(20); err == nil {
		t.Errorf("Row out of range accepted")
	}
	if _, err := ParseLump(b[:70], 20); err == nil {
		t.Errorf("truncated offset table accepted")
	}
	bad := append([]byte(nil), b...)
	bad[0] = 0xff
	if _, err := ParseLump(bad, 20); err == nil {
		t.Errorf("offset beyond data accepted")
	}
}

func TestAggregate(t *testing.T) {
	g := portaltest.Line([2]float32{0, 1}, [2]float32{0, 1}, [2]float32{5, 6}).Graph(t)
	ctx := context.Background()
	pool := workpool.Options{Workers: 2}
	if _, err := Aggregate(ctx, g, pool, nil); err == nil {
		t.Fatalf("Aggregate ran before the portals were done")
	}
	if err := flow.BasePortalVis(ctx, g, flow.Options{}, pool); err != nil {
		t.Fatal(err)
	}
	if err := flow.PortalFlow(ctx, g, flow.Options{}, pool); err != nil {
		t.Fatal(err)
	}
	rows, err := Aggregate(ctx, g, pool, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []leafset.Bits{
		row(4, 0, 1, 2),
		row(4, 0, 1, 2, 3),
		row(4, 0, 1, 2, 3),
		row(4, 1, 2, 3),
	}
	for i, r := range rows {
		if !r.Equal(want[i]) {
			t.Errorf("leaf %d row %v, want %v", i, r.Bytes(), want[i].Bytes())
		}
		if !r.Has(i) {
			t.Errorf("leaf %d does not see itself", i)
		}
		stored, ok := g.Leafs[i].PVS()
		if !ok || !stored.Equal(r) {
			t.Errorf("leaf %d row not stored", i)
		}
	}
}
