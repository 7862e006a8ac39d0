// SPDX-License-Identifier: GPL-2.0-or-later

// Package pvs turns the per portal results into one row per leaf and
// encodes the rows into the visibility lump.
package pvs

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"qvis/leafset"
	"qvis/portal"
	"qvis/workpool"
)

// Aggregate builds the final row of every leaf: the union of what its
// portals see, plus the leaf itself. Every portal has to be done. The rows
// are also stored on the leafs.
func Aggregate(ctx context.Context, g *portal.Graph, pool workpool.Options, logger *log.Logger) ([]leafset.Bits, error) {
	if logger == nil {
		logger = log.Default()
	}
	for _, p := range g.Portals {
		if s := p.Status(); s != portal.Done {
			return nil, errors.Errorf("portal %d is %v, not done", p.Index, s)
		}
	}
	rows := make([]leafset.Bits, len(g.Leafs))
	pool.Order = nil
	err := workpool.Run(ctx, len(g.Leafs), pool, func(int) workpool.Task {
		return func(i int) error {
			l := g.Leafs[i]
			b := leafset.NewBuilder(len(g.Leafs))
			warned := false
			for _, p := range l.Portals {
				b.Or(p.Vis())
				if !warned && b.Has(i) {
					warned = true
					logger.Warn("leaf portals saw into leaf", "leaf", i, "portal", p.Index, "into", p.Leaf)
				}
			}
			b.Set(i)
			rows[i] = b.Seal()
			logger.Debug("leaf", "index", i, "visible", rows[i].Count())
			return l.SetPVS(rows[i])
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "aggregating leaf visibility")
	}
	return rows, nil
}
