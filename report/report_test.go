// SPDX-License-Identifier: GPL-2.0-or-later

package report

import (
	"reflect"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"qvis/crc"
	"qvis/leafset"
	"qvis/pvs"
	"qvis/vis"
)

func TestRoundTrip(t *testing.T) {
	b := leafset.NewBuilder(3)
	b.Set(0)
	b.Set(2)
	rows := []leafset.Bits{b.Seal()}
	res := &vis.Result{
		Rows: rows,
		Lump: pvs.Encode(rows),
		Stats: vis.Stats{
			Leafs:        1,
			Portals:      4,
			AvgMightSee:  2.5,
			AvgVisible:   1.25,
			Uncompressed: 10,
			Compressed:   6,
			BaseTime:     time.Millisecond,
			FlowTime:     3 * time.Second,
			LeafTime:     7,
		},
	}
	want := New("e1m1.prt", vis.Options{Workers: 8, Full: true, MaxDistance: 512}, res)
	if want.Checksum != crc.Checksum(res.Lump.Data) || want.Checksum == 0 {
		t.Errorf("Checksum = %#04x", want.Checksum)
	}
	if want.Visible[0] != 2 {
		t.Fatalf("Visible = %v, want [2]", want.Visible)
	}

	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	// a field from a newer writer
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "ignored")

	var got Report
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !reflect.DeepEqual(&got, want) {
		t.Errorf("round trip = %+v, want %+v", got, *want)
	}
}

func TestUniqueID(t *testing.T) {
	res := &vis.Result{}
	a := New("a", vis.Options{}, res)
	b := New("a", vis.Options{}, res)
	if a.ID == b.ID {
		t.Errorf("two reports share id %v", a.ID)
	}
	if a.ID.Version() != 7 {
		t.Errorf("id version %d, want 7", a.ID.Version())
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	r := &Report{Input: "something long enough"}
	data, _ := r.MarshalBinary()
	var got Report
	if err := got.UnmarshalBinary(data[:len(data)-3]); err == nil {
		t.Errorf("truncated report decoded")
	}
}
