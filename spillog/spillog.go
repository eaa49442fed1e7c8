// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spillog aggregates the Chronobox hits and the TRG scaler counters
// of a run over its dump windows.
package spillog // import "github.com/go-daq/spill/spillog"

import (
	"sort"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/odb"
)

// Stage is the name of the aggregation stage in diagnostics.
const Stage = "spillog"

// Select returns the channels that get a column in the spill log: every
// named channel whose name is carried by a single channel.
// Names carried by several channels are excluded, with a diagnostic.
// If hitOnly is set, channels without any hit in the run are excluded too.
func Select(ctx spill.Context, s odb.Settings, idx spill.HitIndex, hitOnly bool) map[string]spill.ChannelID {
	chans, dups := s.Unique()
	for _, name := range dups {
		res := s.Lookup(name)
		ctx.Diagf(Stage, "", "excluding channel %q: %v", name, res.Err())
	}
	if !hitOnly {
		return chans
	}
	for name, id := range chans {
		if len(idx.Times(id)) == 0 {
			delete(chans, name)
		}
	}
	return chans
}

// Aggregate counts, for every window and every channel, the hits lying in
// the window. Counter deltas are added as extra columns, named after the
// counters.
// Rows are sorted by start time, stop time, sequencer and description.
func Aggregate(wins []spill.Window, chans map[string]spill.ChannelID, idx spill.HitIndex, counters ...spill.Counter) spill.Table {
	tbl := spill.Table{
		Channels: make([]string, 0, len(chans)),
		Counters: make([]string, 0, len(counters)),
		Rows:     make([]spill.Row, 0, len(wins)),
	}
	for name := range chans {
		tbl.Channels = append(tbl.Channels, name)
	}
	sort.Strings(tbl.Channels)

	cs := make([]spill.Counter, len(counters))
	for i, c := range counters {
		cs[i] = Sorted(c)
		tbl.Counters = append(tbl.Counters, c.Name)
	}

	for _, win := range wins {
		row := spill.Row{
			Window: win,
			Counts: make(map[string]int64, len(tbl.Channels)),
			Deltas: make(map[string]int64, len(cs)),
		}
		for _, name := range tbl.Channels {
			row.Counts[name] = idx.Count(chans[name], win.Start, win.Stop)
		}
		for _, c := range cs {
			row.Deltas[c.Name] = Delta(c, win)
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	sort.SliceStable(tbl.Rows, func(i, j int) bool {
		return Less(tbl.Rows[i].Window, tbl.Rows[j].Window)
	})
	return tbl
}

// Less orders windows by start time, stop time, sequencer and description.
func Less(a, b spill.Window) bool {
	switch {
	case a.Start != b.Start:
		return a.Start < b.Start
	case a.Stop != b.Stop:
		return a.Stop < b.Stop
	case a.Sequencer != b.Sequencer:
		return a.Sequencer < b.Sequencer
	}
	return a.Description < b.Description
}

// Delta returns the approximate increment of the counter over the window:
// the difference between the first sample at or after the end of the
// window and the last sample at or before its start, clipped at 0.
// The samples of c must be sorted by time.
// Without a sample on either side, the delta is 0.
func Delta(c spill.Counter, win spill.Window) int64 {
	n := len(c.Samples)
	beg := sort.Search(n, func(i int) bool { return c.Samples[i].Time > win.Start }) - 1
	end := sort.Search(n, func(i int) bool { return c.Samples[i].Time >= win.Stop })
	if beg < 0 || end >= n {
		return 0
	}
	d := c.Samples[end].Value - c.Samples[beg].Value
	if d < 0 {
		return 0
	}
	return d
}

// Sorted returns a copy of the counter with its samples sorted by time.
func Sorted(c spill.Counter) spill.Counter {
	out := spill.Counter{
		Name:    c.Name,
		Samples: make([]spill.Sample, len(c.Samples)),
	}
	copy(out.Samples, c.Samples)
	sort.SliceStable(out.Samples, func(i, j int) bool {
		return out.Samples[i].Time < out.Samples[j].Time
	})
	return out
}
