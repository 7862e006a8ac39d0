// SPDX-License-Identifier: GPL-2.0-or-later

// Package report writes a small machine readable summary of a vis run.
package report

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"qvis/crc"
	"qvis/vis"
)

// Wire layout of a report:
//
//	message qvis.Report {
//	  bytes id = 1;
//	  string input = 2;
//	  uint32 leafs = 3;
//	  uint32 portals = 4;
//	  bool fast = 5;
//	  bool full = 6;
//	  uint32 threads = 7;
//	  float max_distance = 8;
//	  double avg_mightsee = 9;
//	  double avg_visible = 10;
//	  uint64 uncompressed = 11;
//	  uint64 compressed = 12;
//	  int64 base_ns = 13;
//	  int64 flow_ns = 14;
//	  int64 leaf_ns = 15;
//	  repeated uint32 visible = 16;
//	  uint32 checksum = 17;
//	}
const (
	fieldID protowire.Number = iota + 1
	fieldInput
	fieldLeafs
	fieldPortals
	fieldFast
	fieldFull
	fieldThreads
	fieldMaxDistance
	fieldAvgMightSee
	fieldAvgVisible
	fieldUncompressed
	fieldCompressed
	fieldBaseTime
	fieldFlowTime
	fieldLeafTime
	fieldVisible
	fieldChecksum
)

type Report struct {
	ID          uuid.UUID
	Input       string
	Leafs       int
	Portals     int
	Fast        bool
	Full        bool
	Threads     int
	MaxDistance float32

	AvgMightSee  float64
	AvgVisible   float64
	Uncompressed int
	Compressed   int

	BaseTime time.Duration
	FlowTime time.Duration
	LeafTime time.Duration

	// Visible holds the number of visible leafs per leaf.
	Visible []int
	// Checksum is the crc of the compressed visibility data.
	Checksum uint16
}

// New creates the report of a finished run with a fresh id.
func New(input string, opts vis.Options, res *vis.Result) *Report {
	st := res.Stats
	r := &Report{
		ID:           uuid.Must(uuid.NewV7()),
		Input:        input,
		Leafs:        st.Leafs,
		Portals:      st.Portals,
		Fast:         opts.Fast,
		Full:         opts.Full,
		Threads:      opts.Workers,
		MaxDistance:  opts.MaxDistance,
		AvgMightSee:  st.AvgMightSee,
		AvgVisible:   st.AvgVisible,
		Uncompressed: st.Uncompressed,
		Compressed:   st.Compressed,
		BaseTime:     st.BaseTime,
		FlowTime:     st.FlowTime,
		LeafTime:     st.LeafTime,
		Visible:      make([]int, len(res.Rows)),
	}
	if res.Lump != nil {
		r.Checksum = crc.Checksum(res.Lump.Data)
	}
	for i, row := range res.Rows {
		r.Visible[i] = row.Count()
	}
	return r
}

func appendVarint(b []byte, n protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, n, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, n protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, n, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// MarshalBinary encodes r in protobuf wire format. Zero values are left out.
func (r *Report) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, r.ID[:])
	if r.Input != "" {
		b = protowire.AppendTag(b, fieldInput, protowire.BytesType)
		b = protowire.AppendString(b, r.Input)
	}
	b = appendVarint(b, fieldLeafs, uint64(r.Leafs))
	b = appendVarint(b, fieldPortals, uint64(r.Portals))
	b = appendVarint(b, fieldFast, protowire.EncodeBool(r.Fast))
	b = appendVarint(b, fieldFull, protowire.EncodeBool(r.Full))
	b = appendVarint(b, fieldThreads, uint64(r.Threads))
	if r.MaxDistance != 0 {
		b = protowire.AppendTag(b, fieldMaxDistance, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(r.MaxDistance))
	}
	b = appendDouble(b, fieldAvgMightSee, r.AvgMightSee)
	b = appendDouble(b, fieldAvgVisible, r.AvgVisible)
	b = appendVarint(b, fieldUncompressed, uint64(r.Uncompressed))
	b = appendVarint(b, fieldCompressed, uint64(r.Compressed))
	b = appendVarint(b, fieldBaseTime, uint64(r.BaseTime))
	b = appendVarint(b, fieldFlowTime, uint64(r.FlowTime))
	b = appendVarint(b, fieldLeafTime, uint64(r.LeafTime))
	if len(r.Visible) > 0 {
		var packed []byte
		for _, v := range r.Visible {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		b = protowire.AppendTag(b, fieldVisible, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	b = appendVarint(b, fieldChecksum, uint64(r.Checksum))
	return b, nil
}

// UnmarshalBinary decodes what MarshalBinary wrote. Unknown fields are
// skipped.
func (r *Report) UnmarshalBinary(b []byte) error {
	*r = Report{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "report tag")
		}
		b = b[n:]
		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "report id")
			}
			id, err := uuid.FromBytes(v)
			if err != nil {
				return errors.Wrap(err, "report id")
			}
			r.ID = id
			b = b[n:]
		case num == fieldInput && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "report input")
			}
			r.Input = v
			b = b[n:]
		case num == fieldVisible && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "report visible")
			}
			for len(v) > 0 {
				c, m := protowire.ConsumeVarint(v)
				if m < 0 {
					return errors.Wrap(protowire.ParseError(m), "report visible")
				}
				r.Visible = append(r.Visible, int(c))
				v = v[m:]
			}
			b = b[n:]
		case num == fieldMaxDistance && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "report max distance")
			}
			r.MaxDistance = math.Float32frombits(v)
			b = b[n:]
		case (num == fieldAvgMightSee || num == fieldAvgVisible) && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "report average")
			}
			if num == fieldAvgMightSee {
				r.AvgMightSee = math.Float64frombits(v)
			} else {
				r.AvgVisible = math.Float64frombits(v)
			}
			b = b[n:]
		case typ == protowire.VarintType && (num >= fieldLeafs && num <= fieldLeafTime || num == fieldChecksum):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errors.Wrapf(protowire.ParseError(n), "report field %d", num)
			}
			r.setVarint(num, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errors.Wrapf(protowire.ParseError(n), "report field %d", num)
			}
			b = b[n:]
		}
	}
	return nil
}

func (r *Report) setVarint(num protowire.Number, v uint64) {
	switch num {
	case fieldLeafs:
		r.Leafs = int(v)
	case fieldPortals:
		r.Portals = int(v)
	case fieldFast:
		r.Fast = protowire.DecodeBool(v)
	case fieldFull:
		r.Full = protowire.DecodeBool(v)
	case fieldThreads:
		r.Threads = int(v)
	case fieldUncompressed:
		r.Uncompressed = int(v)
	case fieldCompressed:
		r.Compressed = int(v)
	case fieldBaseTime:
		r.BaseTime = time.Duration(v)
	case fieldFlowTime:
		r.FlowTime = time.Duration(v)
	case fieldLeafTime:
		r.LeafTime = time.Duration(v)
	case fieldChecksum:
		r.Checksum = uint16(v)
	}
}
