// SPDX-License-Identifier: GPL-2.0-or-later

// Package portal holds the leaf/portal graph the visibility pass runs on.
package portal

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"qvis/leafset"
	"qvis/math/vec"
	"qvis/winding"
)

type Status int32

const (
	None Status = iota
	Working
	Done
)

func (s Status) String() string {
	switch s {
	case None:
		return "none"
	case Working:
		return "working"
	case Done:
		return "done"
	}
	return "invalid"
}

// Portal is one direction of an aperture between two leafs. The plane faces
// into Leaf, the leaf the portal leads into. Owner is the leaf whose
// portal list holds it.
type Portal struct {
	Index   int
	Winding *winding.Winding
	Plane   winding.Plane
	Leaf    int
	Owner   int
	Origin  vec.Vec3 // center of the winding
	Radius  float32  // bounding sphere around Origin

	status   atomic.Int32
	mightsee leafset.Bits
	hasSee   bool
	visbits  leafset.Bits
}

func (p *Portal) Status() Status {
	return Status(p.status.Load())
}

// SetMightSee records the rough visibility. It may only be called once and
// has to happen before the exact pass starts.
func (p *Portal) SetMightSee(b leafset.Bits) {
	if p.hasSee {
		panic(errors.Errorf("portal %d: mightsee set twice", p.Index))
	}
	p.mightsee = b
	p.hasSee = true
}

func (p *Portal) MightSee() leafset.Bits {
	return p.mightsee
}

// Begin claims the portal for the calling worker.
func (p *Portal) Begin() bool {
	return p.status.CompareAndSwap(int32(None), int32(Working))
}

// Complete stores the exact visibility and marks the portal done. The set
// has to be contained in mightsee.
func (p *Portal) Complete(vis leafset.Bits) error {
	if !vis.SubsetOf(p.mightsee) {
		return errors.Errorf("portal %d: visible leafs exceed mightsee", p.Index)
	}
	if s := p.Status(); s != Working {
		return errors.Errorf("portal %d: completed in state %v", p.Index, s)
	}
	p.visbits = vis
	p.status.Store(int32(Done))
	return nil
}

// Vis returns the exact visibility. It is only meaningful once Done.
func (p *Portal) Vis() leafset.Bits {
	return p.visbits
}

type Leaf struct {
	Index   int
	Portals []*Portal

	pvs    leafset.Bits
	hasPVS bool
}

// SetPVS stores the final row of the leaf. It may only happen once.
func (l *Leaf) SetPVS(b leafset.Bits) error {
	if l.hasPVS {
		return errors.Errorf("leaf %d: pvs already set", l.Index)
	}
	if !b.Has(l.Index) {
		return errors.Errorf("leaf %d: pvs misses the leaf itself", l.Index)
	}
	l.pvs = b
	l.hasPVS = true
	return nil
}

func (l *Leaf) PVS() (leafset.Bits, bool) {
	return l.pvs, l.hasPVS
}
