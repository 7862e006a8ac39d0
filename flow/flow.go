// SPDX-License-Identifier: GPL-2.0-or-later

// Package flow computes which leafs can be seen through each portal, first
// roughly with BasePortalVis and then exactly with PortalFlow.
package flow

import (
	"fmt"

	"github.com/charmbracelet/log"

	"qvis/filter"
	"qvis/winding"
)

const DefaultMaxDepth = 4096

type Options struct {
	Epsilon winding.Epsilon
	// MaxDepth bounds the number of portals on a single sight line.
	MaxDepth int
	// Full also narrows the source winding by the separating planes.
	Full bool
	// Filter is consulted for every pair of base and candidate portal.
	Filter filter.Filter
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Epsilon == (winding.Epsilon{}) {
		o.Epsilon = winding.DefaultEpsilon
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Filter == nil {
		o.Filter = filter.All
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// OverflowError is returned when a sight line crosses more portals than
// the stack allows. It points at broken or pathological input.
type OverflowError struct {
	Base  int // portal the flow started from
	Leaf  int // leaf that could not be entered
	Depth int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("portal %d: stack overflow at depth %d entering leaf %d", e.Base, e.Depth, e.Leaf)
}
