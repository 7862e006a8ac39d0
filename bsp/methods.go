// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"qvis/leafset"
	"qvis/pvs"
)

// DecompressVis expands the visibility row of one leaf as the engine does
// it: without vis data every leaf is visible.
func DecompressVis(in []byte, leafs int) ([]byte, error) {
	row := leafset.Bytes(leafs)

	if len(in) == 0 {
		// no vis info, so make all visible
		out := make([]byte, row)
		for i := range out {
			out[i] = 0xff
		}
		return out, nil
	}

	// 'in' is compressed and looks like
	// 70550311
	// and gets uncompressed to
	// 700000500011	(7 5x0 5 3x0 1 1)
	out, _, err := pvs.Decompress(in, row)
	return out, err
}
