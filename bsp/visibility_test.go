// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"qvis/leafset"
	"qvis/pvs"
)

// build lays out a bsp with the given version, visleafs+1 leafs plus extra
// submodel leafs and a filler in every other lump.
func build(t *testing.T, version int32, visleafs, extra int) []byte {
	t.Helper()
	lumps := make([][]byte, lumpCount)
	for i := range lumps {
		lumps[i] = bytes.Repeat([]byte{byte(i + 1)}, 3+i)
	}
	lumps[lumpVisibility] = []byte{0xaa, 0xbb}

	var m bytes.Buffer
	if err := binary.Write(&m, binary.LittleEndian, &model{VisLeafCount: int32(visleafs), FaceCount: 7}); err != nil {
		t.Fatal(err)
	}
	lumps[lumpModels] = m.Bytes()

	var l bytes.Buffer
	for i := 0; i < visleafs+1+extra; i++ {
		var v any
		switch version {
		case bsp2Version:
			v = &leafV2{Type: -1, VisOfs: 77, MarkSurfaceCount: uint32(i)}
		case bsp2rVersion:
			v = &leafV1{Type: -1, VisOfs: 77, MarkSurfaceCount: uint32(i)}
		default:
			v = &leafV0{Type: -1, VisOfs: 77, MarkSurfaceCount: uint16(i)}
		}
		if err := binary.Write(&l, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	lumps[lumpLeafs] = l.Bytes()

	h := header{Version: version}
	var body bytes.Buffer
	for i, b := range lumps {
		h.Lumps[i] = directory{Offset: int32(headerSize + body.Len()), Size: int32(len(b))}
		body.Write(b)
	}
	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, &h); err != nil {
		t.Fatal(err)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

func rows(leafs int, vis ...[]int) []leafset.Bits {
	r := make([]leafset.Bits, len(vis))
	for i, v := range vis {
		b := leafset.NewBuilder(leafs)
		for _, l := range v {
			b.Set(l)
		}
		r[i] = b.Seal()
	}
	return r
}

func TestPatchVisibility(t *testing.T) {
	for _, version := range []int32{bspVersion, bsp2Version, bsp2rVersion} {
		in := build(t, version, 3, 2)
		orig := append([]byte(nil), in...)
		lump := pvs.Encode(rows(3, []int{0, 1}, []int{0, 1, 2}, []int{1, 2}))

		out, err := PatchVisibility(in, lump)
		if err != nil {
			t.Fatalf("version %d: %v", version, err)
		}
		if !bytes.Equal(in, orig) {
			t.Errorf("version %d: input modified", version)
		}
		got, err := parse(out)
		if err != nil {
			t.Fatalf("version %d: patched file unreadable: %v", version, err)
		}
		src, _ := parse(orig)
		for i := 0; i < lumpCount; i++ {
			if got.h.Lumps[i].Offset%4 != 0 {
				t.Errorf("version %d: lump %d not aligned", version, i)
			}
			switch i {
			case lumpVisibility:
				if !bytes.Equal(got.lump(i), lump.Data) {
					t.Errorf("version %d: visibility = %v, want %v", version, got.lump(i), lump.Data)
				}
			case lumpLeafs:
			default:
				if !bytes.Equal(got.lump(i), src.lump(i)) {
					t.Errorf("version %d: lump %d changed", version, i)
				}
			}
		}

		leafs := got.lump(lumpLeafs)
		ofs := func(i int) int32 {
			return int32(binary.LittleEndian.Uint32(leafs[i*got.leafSize+visOfsOffset:]))
		}
		if ofs(0) != -1 {
			t.Errorf("version %d: solid leaf offset %d", version, ofs(0))
		}
		for i, o := range lump.Offsets {
			if ofs(i+1) != int32(o) {
				t.Errorf("version %d: leaf %d offset %d, want %d", version, i+1, ofs(i+1), o)
			}
		}
		for i := 4; i < 6; i++ {
			if ofs(i) != 77 {
				t.Errorf("version %d: submodel leaf %d offset touched: %d", version, i, ofs(i))
			}
		}

		back, err := Visibility(out)
		if err != nil {
			t.Fatalf("version %d: Visibility: %v", version, err)
		}
		r, err := back.Row(2)
		if err != nil {
			t.Fatal(err)
		}
		if r.Has(0) || !r.Has(1) || !r.Has(2) {
			t.Errorf("version %d: leaf 2 row read back wrong", version)
		}
	}
}

func TestPatchVisibilityErrors(t *testing.T) {
	good := build(t, bspVersion, 3, 0)
	lump := pvs.Encode(rows(3, []int{0}, []int{1}, []int{2}))

	badVersion := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badVersion, 30)

	badLump := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badLump[4+lumpEdges*8+4:], 1<<20)

	tests := []struct {
		name string
		data []byte
		lump *pvs.Lump
	}{
		{"short", good[:10], lump},
		{"version", badVersion, lump},
		{"lump bounds", badLump, lump},
		{"leaf count", good, pvs.Encode(rows(2, []int{0}, []int{1}))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PatchVisibility(tc.data, tc.lump); err == nil {
				t.Errorf("PatchVisibility accepted the file")
			}
		})
	}
}
