// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clocksync // import "github.com/go-daq/spill/clocksync"

import (
	"io"
	"math"
	"reflect"
	"testing"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/log"
	"golang.org/x/xerrors"
)

func newContext() spill.Context {
	return spill.NewContext(log.NewMsgStream("clocksync", log.LvlDebug, io.Discard))
}

func recs(ts ...float64) []spill.Record {
	out := make([]spill.Record, len(ts))
	for i, t := range ts {
		out[i] = spill.Record{Timestamp: t, Sequencer: "rct"}
	}
	return out
}

func starts(res Result) []float64 {
	out := make([]float64, len(res.Records))
	for i, rec := range res.Records {
		out[i] = rec.Start
	}
	return out
}

func TestOffsetInvariance(t *testing.T) {
	ctx := newContext()
	for _, k := range []float64{-1e9, -3600, -1, 0, 1, 17, 1.7e9} {
		for _, h := range []float64{0, 0.25, 12.5, 1234.000123, 98765.4321} {
			res, err := Sync(ctx, recs(h+k), []float64{h})
			if err != nil {
				t.Fatalf("k=%v h=%v: could not synchronize: %+v", k, h, err)
			}
			if got, want := res.Records[0].Start, h; got != want {
				t.Fatalf("k=%v h=%v: invalid start: got=%v, want=%v", k, h, got, want)
			}
			if got := res.Records[0].Next; !math.IsInf(got, +1) {
				t.Fatalf("k=%v h=%v: invalid next: got=%v, want=+Inf", k, h, got)
			}
		}
	}
}

func TestSync(t *testing.T) {
	for _, tt := range []struct {
		name    string
		recs    []float64
		running []float64
		off     float64
		starts  []float64
		err     error
	}{
		{
			name:    "aligned",
			recs:    []float64{1000, 1100, 1200},
			running: []float64{10.1, 110.3, 209.9},
			off:     990,
			starts:  []float64{10.1, 110.3, 209.9},
		},
		{
			name:    "unsorted-records",
			recs:    []float64{1200, 1000, 1100},
			running: []float64{10.1, 110.3, 209.9},
			off:     990,
			starts:  []float64{10.1, 110.3, 209.9},
		},
		{
			name:    "bounce",
			recs:    []float64{1000, 1100, 1200},
			running: []float64{10.1, 10.15, 10.2, 110.3, 110.31, 209.9},
			off:     990,
			starts:  []float64{10.1, 110.3, 209.9},
		},
		{
			// the first hit is spurious: the offset it proposes
			// leaves the later records without a hit.
			name:    "spurious-first-hit",
			recs:    []float64{1000, 1100, 1200},
			running: []float64{2.0, 10.0, 110.0, 210.0},
			off:     990,
			starts:  []float64{10.0, 110.0, 210.0},
		},
		{
			name:    "same-second",
			recs:    []float64{1000, 1000, 1050},
			running: []float64{10.0, 10.6, 60.0},
			off:     990,
			starts:  []float64{10.0, 10.6, 60.0},
		},
		{
			name:    "tolerance",
			recs:    []float64{1000, 1100},
			running: []float64{10.0, 112.0},
			off:     990,
			starts:  []float64{10.0, 112.0},
		},
		{
			name:    "out-of-tolerance",
			recs:    []float64{1000, 1100},
			running: []float64{10.0, 112.5},
			off:     990,
			err:     spill.ErrUnmatchedRunningSignal,
		},
		{
			// the second record is nearest to the hit already
			// matched by the first one: hits are never shared.
			name:    "shared-hit",
			recs:    []float64{100, 101.5},
			running: []float64{100, 104},
			err:     spill.ErrUnmatchedRunningSignal,
		},
		{
			name:    "missing-hit",
			recs:    []float64{1000, 1100, 1200},
			running: []float64{10.0, 110.0},
			err:     spill.ErrUnmatchedRunningSignal,
		},
		{
			name: "no-hits",
			recs: []float64{1000},
			err:  spill.ErrUnmatchedRunningSignal,
		},
		{
			name: "no-records",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Sync(newContext(), recs(tt.recs...), tt.running)
			if tt.err != nil {
				if !xerrors.Is(err, tt.err) {
					t.Fatalf("invalid error: got=%v, want=%v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("could not synchronize: %+v", err)
			}
			if len(tt.recs) == 0 {
				if len(res.Records) != 0 {
					t.Fatalf("invalid records: %v", res.Records)
				}
				return
			}
			if res.Offset != tt.off {
				t.Fatalf("invalid offset: got=%v, want=%v", res.Offset, tt.off)
			}
			if got := starts(res); !reflect.DeepEqual(got, tt.starts) {
				t.Fatalf("invalid starts: got=%v, want=%v", got, tt.starts)
			}
			for i, rec := range res.Records {
				want := math.Inf(+1)
				if i+1 < len(res.Records) {
					want = res.Records[i+1].Start
				}
				if rec.Next != want {
					t.Fatalf("record %d: invalid next: got=%v, want=%v", i, rec.Next, want)
				}
			}
		})
	}
}

func TestSyncDeterminism(t *testing.T) {
	rs := recs(1000, 1100, 1200, 1300)
	running := []float64{9.8, 10.1, 10.2, 110.3, 209.9, 210.0, 310.2}

	ref, err := Sync(newContext(), rs, running)
	if err != nil {
		t.Fatalf("could not synchronize: %+v", err)
	}
	for i := 0; i < 10; i++ {
		res, err := Sync(newContext(), rs, running)
		if err != nil {
			t.Fatalf("could not synchronize: %+v", err)
		}
		if !reflect.DeepEqual(res, ref) {
			t.Fatalf("non-deterministic result:\ngot= %+v\nwant=%+v", res, ref)
		}
	}
	if got, want := starts(ref), []float64{10.1, 110.3, 210.0, 310.2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid starts: got=%v, want=%v", got, want)
	}
}

func TestChronological(t *testing.T) {
	in := []spill.Record{
		{Timestamp: 3, Sequencer: "a"},
		{Timestamp: 1, Sequencer: "b"},
		{Timestamp: 3, Sequencer: "c"},
		{Timestamp: 2, Sequencer: "d"},
	}
	got := Chronological(in)
	var names []string
	for _, rec := range got {
		names = append(names, rec.Sequencer)
	}
	if want := []string{"b", "d", "a", "c"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("invalid order: got=%v, want=%v", names, want)
	}
	if in[0].Sequencer != "a" {
		t.Fatalf("input was modified")
	}
}

func TestResiduals(t *testing.T) {
	for _, tt := range []struct {
		name      string
		recs      []spill.Record
		running   []float64
		mean, std float64
	}{
		{name: "single", recs: recs(1000), running: []float64{10.25}, mean: -0.25, std: 0},
		{name: "constant", recs: recs(1000, 1100), running: []float64{10.5, 110.5}, mean: -0.5, std: 0},
		{name: "spread", recs: recs(1000, 1100, 1200), running: []float64{10, 110.5, 209.5}, mean: 0, std: 0.5},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Sync(newContext(), tt.recs, tt.running)
			if err != nil {
				t.Fatalf("could not synchronize: %+v", err)
			}
			if res.Offset != 990 {
				t.Fatalf("invalid offset: got=%v, want=990", res.Offset)
			}
			if res.Mean != tt.mean || math.Abs(res.StdDev-tt.std) > 1e-12 {
				t.Fatalf("invalid residuals: got=%v±%v, want=%v±%v", res.Mean, res.StdDev, tt.mean, tt.std)
			}
		})
	}
}
