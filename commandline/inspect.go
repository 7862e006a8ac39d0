// SPDX-License-Identifier: GPL-2.0-or-later

package commandline

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"qvis/bsp"
	"qvis/filesystem"
	"qvis/leafset"
	"qvis/portal"
	"qvis/pvs"
	"qvis/winding"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <portalfile> <visfile|bspfile>",
		Short: "Print the number of visible leafs per leaf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := inspect(args[0], args[1])
			if err != nil {
				return err
			}
			var t table
			t.title(args[1])
			total := 0
			for i, c := range counts {
				t.row(fmt.Sprintf("leaf %d", i), "%d", c)
				total += c
			}
			t.row("average", "%.1f", float64(total)/float64(max(1, len(counts))))
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}

// inspect decodes every row of the visibility file and counts its leafs.
func inspect(portalFile, visFile string) ([]int, error) {
	data, err := filesystem.ReadFile(portalFile)
	if err != nil {
		return nil, err
	}
	g, err := portal.Parse(data, winding.DefaultEpsilon)
	if err != nil {
		return nil, errors.Wrap(err, portalFile)
	}
	leafs := len(g.Leafs)

	data, err = filesystem.ReadFile(visFile)
	if err != nil {
		return nil, err
	}
	var lump *pvs.Lump
	if filesystem.Ext(visFile) == ".bsp" {
		lump, err = bsp.Visibility(data)
		if err == nil && len(lump.Offsets) != leafs {
			err = errors.Errorf("bsp has %d visleafs, the portal file %d", len(lump.Offsets), leafs)
		}
	} else {
		lump, err = pvs.ParseLump(data, leafs)
	}
	if err != nil {
		return nil, errors.Wrap(err, visFile)
	}

	counts := make([]int, leafs)
	for i, o := range lump.Offsets {
		row, err := bsp.DecompressVis(lump.Data[o:], leafs)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: leaf %d", visFile, i)
		}
		bits, err := leafset.FromBytes(leafs, row)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: leaf %d", visFile, i)
		}
		counts[i] = bits.Count()
	}
	return counts, nil
}
