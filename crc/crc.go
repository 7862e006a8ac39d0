// SPDX-License-Identifier: GPL-2.0-or-later

// Package crc implements the 16 bit CRC (CCITT, initial 0xffff) quake
// tools use for their checksums.
package crc

const (
	ccittFalse = 0x1021
	cRCInitial = 0xffff
)

type Table struct {
	entries [256]uint16
}

// 16bit CRC used by XMODEM
var ccittFalseTable = makeTable(ccittFalse)

func makeTable(poly uint16) *Table {
	t := &Table{}
	width := uint16(16)
	for i := uint16(0); i < 256; i++ {
		crc := i << (width - 8)
		for j := 0; j < 8; j++ {
			if crc&(1<<(width-1)) != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t.entries[i] = crc
	}
	return t
}

// Digest computes the checksum over consecutive writes.
type Digest struct {
	crc uint16
	n   int64
}

func New() *Digest {
	return &Digest{crc: cRCInitial}
}

// Write never fails.
func (d *Digest) Write(p []byte) (int, error) {
	crc := d.crc
	for _, v := range p {
		crc = ccittFalseTable.entries[byte(crc>>8)^v] ^ (crc << 8)
	}
	d.crc = crc
	d.n += int64(len(p))
	return len(p), nil
}

func (d *Digest) Sum16() uint16 {
	return d.crc
}

// Len returns the number of bytes written.
func (d *Digest) Len() int64 {
	return d.n
}

// Checksum returns the checksum of the concatenated blocks.
func Checksum(blocks ...[]byte) uint16 {
	d := New()
	for _, b := range blocks {
		d.Write(b)
	}
	return d.Sum16()
}
