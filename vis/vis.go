// SPDX-License-Identifier: GPL-2.0-or-later

// Package vis runs the complete visibility pass over a portal graph.
package vis

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"qvis/filter"
	"qvis/flow"
	"qvis/leafset"
	"qvis/portal"
	"qvis/pvs"
	"qvis/winding"
	"qvis/workpool"
)

// Phase names handed to Options.Progress.
const (
	PhaseBase = "base"
	PhaseFlow = "flow"
	PhaseLeaf = "leaf"
)

type Options struct {
	Workers  int
	MaxDepth int
	Epsilon  winding.Epsilon
	// Fast stops after the rough pass.
	Fast bool
	Full bool
	// MaxDistance drops portal pairs further apart, 0 disables it.
	MaxDistance float32
	Zones       filter.Zones
	// Filters are applied in addition to MaxDistance and Zones.
	Filters []filter.Filter

	Logger   *log.Logger
	Progress func(phase string, done, total int)
	Interval time.Duration
}

func (o Options) filter() filter.Filter {
	var c filter.Chain
	if o.MaxDistance > 0 {
		c = append(c, filter.MaxDistance(o.MaxDistance))
	}
	if len(o.Zones) > 0 {
		c = append(c, o.Zones)
	}
	c = append(c, o.Filters...)
	if len(c) == 1 {
		return c[0]
	}
	return c
}

func (o Options) pool(phase string) workpool.Options {
	p := workpool.Options{Workers: o.Workers, Interval: o.Interval}
	if o.Progress != nil {
		p.Progress = func(done, total int) { o.Progress(phase, done, total) }
	}
	return p
}

type Stats struct {
	Leafs   int
	Portals int
	// per portal
	AvgMightSee float64
	AvgVisible  float64
	// per leaf
	AvgLeafVisible float64
	Uncompressed   int
	Compressed     int

	BaseTime time.Duration
	FlowTime time.Duration
	LeafTime time.Duration
}

type Result struct {
	Rows  []leafset.Bits
	Lump  *pvs.Lump
	Stats Stats
}

// Run computes the visibility of g. The graph is consumed: the portal
// results and leaf rows are stored on it, a graph can only be run once.
func Run(ctx context.Context, g *portal.Graph, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	fo := flow.Options{
		Epsilon:  opts.Epsilon,
		MaxDepth: opts.MaxDepth,
		Full:     opts.Full,
		Filter:   opts.filter(),
		Logger:   logger,
	}
	st := Stats{Leafs: len(g.Leafs), Portals: len(g.Portals)}
	logger.Info("portal graph", "leafs", st.Leafs, "portals", st.Portals)

	start := time.Now()
	if err := flow.BasePortalVis(ctx, g, fo, opts.pool(PhaseBase)); err != nil {
		return nil, err
	}
	st.BaseTime = time.Since(start)
	for _, p := range g.Portals {
		st.AvgMightSee += float64(p.MightSee().Count())
	}
	st.AvgMightSee /= float64(max(1, st.Portals))
	logger.Info("base portal vis", "mightsee", st.AvgMightSee, "took", st.BaseTime)

	start = time.Now()
	if opts.Fast {
		if err := flow.Fast(g); err != nil {
			return nil, err
		}
	} else if err := flow.PortalFlow(ctx, g, fo, opts.pool(PhaseFlow)); err != nil {
		return nil, err
	}
	st.FlowTime = time.Since(start)
	for _, p := range g.Portals {
		st.AvgVisible += float64(p.Vis().Count())
	}
	st.AvgVisible /= float64(max(1, st.Portals))
	logger.Info("portal flow", "visible", st.AvgVisible, "fast", opts.Fast, "took", st.FlowTime)

	start = time.Now()
	rows, err := pvs.Aggregate(ctx, g, opts.pool(PhaseLeaf), logger)
	if err != nil {
		return nil, err
	}
	lump := pvs.Encode(rows)
	st.LeafTime = time.Since(start)
	total := 0
	for _, r := range rows {
		total += r.Count()
	}
	st.AvgLeafVisible = float64(total) / float64(max(1, st.Leafs))
	st.Uncompressed = st.Leafs * g.BitBytes()
	st.Compressed = len(lump.Data)
	logger.Info("leaf visibility", "average", st.AvgLeafVisible, "total", total,
		"uncompressed", st.Uncompressed, "compressed", st.Compressed)

	if len(lump.Offsets) != len(g.Leafs) {
		return nil, errors.Errorf("encoded %d rows for %d leafs", len(lump.Offsets), len(g.Leafs))
	}
	return &Result{Rows: rows, Lump: lump, Stats: st}, nil
}
