// SPDX-License-Identifier: GPL-2.0-or-later

package pvs

import (
	"github.com/pkg/errors"
)

// maxRun is the longest zero run a single pair can hold.
const maxRun = 255

// Compress run length encodes a row. Zero bytes come out as a 0x00 marker
// followed by the number of zeros, every other byte is copied.
//
// 7 0 0 0 0 0 5 0 0 0 1 1
// becomes
// 7 0 5 5 0 3 1 1
func Compress(row []byte) []byte {
	return AppendCompressed(make([]byte, 0, len(row)+2), row)
}

// AppendCompressed appends the compressed row to dst.
func AppendCompressed(dst, row []byte) []byte {
	for i := 0; i < len(row); i++ {
		dst = append(dst, row[i])
		if row[i] != 0 {
			continue
		}
		rep := byte(1)
		for i+1 < len(row) && row[i+1] == 0 && rep < maxRun {
			rep++
			i++
		}
		dst = append(dst, rep)
	}
	return dst
}

// Decompress expands one row of rowBytes bytes from the start of src. It
// returns the row and the number of bytes of src used.
func Decompress(src []byte, rowBytes int) ([]byte, int, error) {
	row := make([]byte, 0, rowBytes)
	i := 0
	for len(row) < rowBytes {
		if i >= len(src) {
			return nil, i, errors.Errorf("vis data ends after %d of %d bytes", len(row), rowBytes)
		}
		c := src[i]
		i++
		if c != 0 {
			row = append(row, c)
			continue
		}
		if i >= len(src) {
			return nil, i, errors.New("vis data ends inside a zero run")
		}
		n := int(src[i])
		i++
		if n == 0 {
			return nil, i, errors.Errorf("empty zero run at byte %d", i-2)
		}
		if len(row)+n > rowBytes {
			return nil, i, errors.Errorf("zero run of %d overflows the %d byte row", n, rowBytes)
		}
		for ; n > 0; n-- {
			row = append(row, 0)
		}
	}
	return row, i, nil
}
