// SPDX-License-Identifier: GPL-2.0-or-later

// Package leafset provides leaf indexed bitsets. A Builder is written by a
// single owner, Seal turns it into an immutable Bits that can be shared
// freely between goroutines.
package leafset

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Bytes returns the row size in bytes for the given leaf count.
func Bytes(leafs int) int {
	return (leafs + 7) >> 3
}

// Bits is a sealed bitset. The zero value is an empty set over zero leafs.
type Bits struct {
	b     []byte
	leafs int
}

// FromBytes seals a copy of row. Bits beyond leafs have to be clear.
func FromBytes(leafs int, row []byte) (Bits, error) {
	if len(row) != Bytes(leafs) {
		return Bits{}, errors.Errorf("row has %d bytes, want %d", len(row), Bytes(leafs))
	}
	if r := leafs & 7; r != 0 && row[len(row)-1]>>r != 0 {
		return Bits{}, errors.Errorf("bits set beyond leaf %d", leafs-1)
	}
	b := make([]byte, len(row))
	copy(b, row)
	return Bits{b: b, leafs: leafs}, nil
}

// Len returns the number of leafs the set ranges over.
func (s Bits) Len() int {
	return s.leafs
}

func (s Bits) Has(i int) bool {
	if i < 0 || i >= s.leafs {
		return false
	}
	return s.b[i>>3]&(1<<(i&7)) != 0
}

// Count returns the number of set bits.
func (s Bits) Count() int {
	c := 0
	for _, v := range s.b {
		c += bits.OnesCount8(v)
	}
	return c
}

// Bytes returns a copy of the packed row, least significant bit first.
func (s Bits) Bytes() []byte {
	b := make([]byte, len(s.b))
	copy(b, s.b)
	return b
}

// SubsetOf reports whether every bit of s is also set in o.
func (s Bits) SubsetOf(o Bits) bool {
	if s.leafs != o.leafs {
		return false
	}
	for i, v := range s.b {
		if v&^o.b[i] != 0 {
			return false
		}
	}
	return true
}

func (s Bits) Equal(o Bits) bool {
	if s.leafs != o.leafs {
		return false
	}
	for i, v := range s.b {
		if v != o.b[i] {
			return false
		}
	}
	return true
}

// Each calls f for every set bit in ascending order.
func (s Bits) Each(f func(leaf int)) {
	for i, v := range s.b {
		for v != 0 {
			t := bits.TrailingZeros8(v)
			f(i<<3 + t)
			v &= v - 1
		}
	}
}

// Mask returns a mutable copy of s.
func (s Bits) Mask() Mask {
	m := make(Mask, len(s.b))
	copy(m, s.b)
	return m
}

// Builder is the mutable side of a bitset. It must not be used after Seal.
type Builder struct {
	b      []byte
	leafs  int
	sealed bool
}

func NewBuilder(leafs int) *Builder {
	return &Builder{b: make([]byte, Bytes(leafs)), leafs: leafs}
}

func (b *Builder) Len() int {
	return b.leafs
}

// Set marks leaf i. Out of range indices panic, as do writes after Seal.
func (b *Builder) Set(i int) {
	if b.sealed {
		panic("leafset: Set after Seal")
	}
	if i < 0 || i >= b.leafs {
		panic(errors.Errorf("leafset: leaf %d out of range [0,%d)", i, b.leafs))
	}
	b.b[i>>3] |= 1 << (i & 7)
}

func (b *Builder) Has(i int) bool {
	if i < 0 || i >= b.leafs {
		return false
	}
	return b.b[i>>3]&(1<<(i&7)) != 0
}

// Or adds every bit of o.
func (b *Builder) Or(o Bits) {
	if b.sealed {
		panic("leafset: Or after Seal")
	}
	for i, v := range o.b {
		if i < len(b.b) {
			b.b[i] |= v
		}
	}
}

// Count returns the number of set bits so far.
func (b *Builder) Count() int {
	c := 0
	for _, v := range b.b {
		c += bits.OnesCount8(v)
	}
	return c
}

// Seal hands the storage over to an immutable Bits.
func (b *Builder) Seal() Bits {
	if b.sealed {
		panic("leafset: sealed twice")
	}
	b.sealed = true
	return Bits{b: b.b, leafs: b.leafs}
}

// Mask is a mutable scratch row used while walking the portal graph. Unlike
// a Builder it can be overwritten any number of times and is never shared.
type Mask []byte

func (m Mask) Has(i int) bool {
	return i >= 0 && i>>3 < len(m) && m[i>>3]&(1<<(i&7)) != 0
}

// And stores a&b in m and reports whether m holds a bit not yet set in seen.
func (m Mask) And(a Mask, b Bits, seen *Builder) bool {
	more := false
	for i := range m {
		v := a[i] & b.b[i]
		m[i] = v
		if v&^seen.b[i] != 0 {
			more = true
		}
	}
	return more
}

// Copy overwrites m with the bits of s.
func (m Mask) Copy(s Bits) {
	copy(m, s.b)
}
