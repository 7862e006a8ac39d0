// SPDX-License-Identifier: GPL-2.0-or-later

// Package bsp patches computed visibility into Quake BSP files.
package bsp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"qvis/pvs"
)

// file is a parsed header plus the raw data it points into.
type file struct {
	h        header
	data     []byte
	leafSize int
}

func parse(data []byte) (*file, error) {
	f := &file{data: data}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &f.h); err != nil {
		return nil, errors.Wrap(err, "reading bsp header")
	}
	switch f.h.Version {
	case bspVersion:
		f.leafSize = binary.Size(leafV0{})
	case bsp2rVersion:
		f.leafSize = binary.Size(leafV1{})
	case bsp2Version:
		f.leafSize = binary.Size(leafV2{})
	default:
		return nil, fmt.Errorf("bsp has wrong version number (%d should be %d)", f.h.Version, bspVersion)
	}
	for i, l := range f.h.Lumps {
		if l.Offset < 0 || l.Size < 0 || int64(l.Offset)+int64(l.Size) > int64(len(data)) {
			return nil, fmt.Errorf("lump %d (%d+%d) outside of the %d byte file", i, l.Offset, l.Size, len(data))
		}
	}
	if f.h.Lumps[lumpLeafs].Size%int32(f.leafSize) != 0 {
		return nil, fmt.Errorf("odd leaf lump size %d", f.h.Lumps[lumpLeafs].Size)
	}
	if f.h.Lumps[lumpModels].Size < modelSize {
		return nil, errors.New("bsp has no world model")
	}
	return f, nil
}

func (f *file) lump(i int) []byte {
	l := f.h.Lumps[i]
	return f.data[l.Offset : l.Offset+l.Size]
}

// visLeafs returns the number of leafs of the world model, leaf 0 excluded.
func (f *file) visLeafs() (int, error) {
	var m model
	if err := binary.Read(bytes.NewReader(f.lump(lumpModels)), binary.LittleEndian, &m); err != nil {
		return 0, errors.Wrap(err, "reading world model")
	}
	n := int(m.VisLeafCount)
	if leafs := int(f.h.Lumps[lumpLeafs].Size) / f.leafSize; n < 0 || n+1 > leafs {
		return 0, fmt.Errorf("world model has %d visleafs, the file %d leafs", n, leafs)
	}
	return n, nil
}

// PatchVisibility returns a copy of the bsp file data with its visibility
// replaced by v. Leaf i of v is leaf i+1 of the file, leaf 0 is the shared
// solid leaf and keeps no visibility.
func PatchVisibility(data []byte, v *pvs.Lump) ([]byte, error) {
	f, err := parse(data)
	if err != nil {
		return nil, err
	}
	n, err := f.visLeafs()
	if err != nil {
		return nil, err
	}
	if n != len(v.Offsets) {
		return nil, fmt.Errorf("bsp has %d visleafs, the portal file %d", n, len(v.Offsets))
	}

	leafs := append([]byte(nil), f.lump(lumpLeafs)...)
	setOfs := func(i int, ofs int32) {
		binary.LittleEndian.PutUint32(leafs[i*f.leafSize+visOfsOffset:], uint32(ofs))
	}
	setOfs(0, -1)
	for i, o := range v.Offsets {
		setOfs(i+1, int32(o))
	}

	out := &bytes.Buffer{}
	out.Write(make([]byte, headerSize))
	h := header{Version: f.h.Version}
	for i := range h.Lumps {
		var b []byte
		switch i {
		case lumpVisibility:
			b = v.Data
		case lumpLeafs:
			b = leafs
		default:
			b = f.lump(i)
		}
		h.Lumps[i] = directory{Offset: int32(out.Len()), Size: int32(len(b))}
		out.Write(b)
		for out.Len()%4 != 0 {
			out.WriteByte(0)
		}
	}
	res := out.Bytes()
	var hb bytes.Buffer
	if err := binary.Write(&hb, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "writing bsp header")
	}
	copy(res, hb.Bytes())
	return res, nil
}

// Visibility reads the visibility of a bsp file back into a lump with one
// row per visleaf.
func Visibility(data []byte) (*pvs.Lump, error) {
	f, err := parse(data)
	if err != nil {
		return nil, err
	}
	n, err := f.visLeafs()
	if err != nil {
		return nil, err
	}
	leafs := f.lump(lumpLeafs)
	l := &pvs.Lump{
		Offsets: make([]uint32, n),
		Data:    append([]byte(nil), f.lump(lumpVisibility)...),
	}
	for i := range l.Offsets {
		ofs := int32(binary.LittleEndian.Uint32(leafs[(i+1)*f.leafSize+visOfsOffset:]))
		if ofs < 0 || int(ofs) >= len(l.Data) {
			return nil, fmt.Errorf("leaf %d has no visibility (offset %d)", i+1, ofs)
		}
		l.Offsets[i] = uint32(ofs)
	}
	return l, nil
}
