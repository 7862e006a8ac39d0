// SPDX-License-Identifier: GPL-2.0-or-later

package pvs

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"qvis/leafset"
)

// Lump is the compressed visibility of all leafs. Offsets[i] is where the
// row of leaf i starts in Data.
type Lump struct {
	Offsets []uint32
	Data    []byte
}

// Encode compresses the rows back to back.
func Encode(rows []leafset.Bits) *Lump {
	l := &Lump{Offsets: make([]uint32, len(rows))}
	for i, r := range rows {
		l.Offsets[i] = uint32(len(l.Data))
		l.Data = AppendCompressed(l.Data, r.Bytes())
	}
	return l
}

// Row decodes the row of leaf i.
func (l *Lump) Row(i int) (leafset.Bits, error) {
	leafs := len(l.Offsets)
	if i < 0 || i >= leafs {
		return leafset.Bits{}, errors.Errorf("leaf %d out of range [0,%d)", i, leafs)
	}
	off := l.Offsets[i]
	if int(off) >= len(l.Data) {
		return leafset.Bits{}, errors.Errorf("leaf %d: offset %d beyond %d bytes of data", i, off, len(l.Data))
	}
	row, _, err := Decompress(l.Data[off:], leafset.Bytes(leafs))
	if err != nil {
		return leafset.Bits{}, errors.Wrapf(err, "leaf %d", i)
	}
	return leafset.FromBytes(leafs, row)
}

// Rows decodes every row.
func (l *Lump) Rows() ([]leafset.Bits, error) {
	rows := make([]leafset.Bits, len(l.Offsets))
	for i := range rows {
		r, err := l.Row(i)
		if err != nil {
			return nil, err
		}
		rows[i] = r
	}
	return rows, nil
}

// Size returns the encoded size in bytes.
func (l *Lump) Size() int {
	return 4*len(l.Offsets) + len(l.Data)
}

// MarshalBinary lays out the offset table, little endian uint32 per leaf,
// followed by the data.
func (l *Lump) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, l.Size())
	for _, o := range l.Offsets {
		b = binary.LittleEndian.AppendUint32(b, o)
	}
	return append(b, l.Data...), nil
}

// ParseLump reads what MarshalBinary wrote for the given leaf count.
func ParseLump(b []byte, leafs int) (*Lump, error) {
	if leafs <= 0 {
		return nil, errors.Errorf("bad leaf count %d", leafs)
	}
	if len(b) < 4*leafs {
		return nil, errors.Errorf("lump of %d bytes too short for %d offsets", len(b), leafs)
	}
	l := &Lump{Offsets: make([]uint32, leafs)}
	for i := range l.Offsets {
		l.Offsets[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	l.Data = append([]byte(nil), b[4*leafs:]...)
	for i, o := range l.Offsets {
		if int(o) >= len(l.Data) {
			return nil, errors.Errorf("leaf %d: offset %d beyond %d bytes of data", i, o, len(l.Data))
		}
	}
	return l, nil
}
