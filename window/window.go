// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package window builds the dump windows of synchronized sequencer records
// out of their START_DUMP and STOP_DUMP hits.
package window // import "github.com/go-daq/spill/window"

import (
	"sort"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/seqxml"
)

// Stage is the name of the window building stage in diagnostics.
const Stage = "window"

// Timed is a sequencer event matched with its Chronobox hit.
type Timed struct {
	Sequencer   string
	Name        string
	Description string
	Time        float64
}

// Observe returns the START_DUMP and STOP_DUMP hits of the record, restricted
// to [rec.Start, rec.Next) and sorted by time.
// A startDump hit sorts before a stopDump hit at the same time.
func Observe(rec spill.Synced, start, stop []float64) []Timed {
	var (
		ts0 = spill.Between(start, rec.Start, rec.Next)
		ts1 = spill.Between(stop, rec.Start, rec.Next)
		obs = make([]Timed, 0, len(ts0)+len(ts1))
	)
	for _, t := range ts0 {
		obs = append(obs, Timed{Sequencer: rec.Sequencer, Name: spill.StartDump, Time: t})
	}
	for _, t := range ts1 {
		obs = append(obs, Timed{Sequencer: rec.Sequencer, Name: spill.StopDump, Time: t})
	}
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Time < obs[j].Time
	})
	return obs
}

// Match assigns the events of the record to the observed hits, by position.
// Matching stops at the first position where the observed hit and the
// expected event disagree. The hits after that position are dropped, with
// a diagnostic.
func Match(ctx spill.Context, rec spill.Synced, obs []Timed) []Timed {
	var (
		evts = rec.Events
		n    = 0
	)
	for n < len(obs) && n < len(evts) {
		if obs[n].Name != evts[n].Name {
			break
		}
		n++
	}

	switch {
	case n < len(obs) && n < len(evts):
		ctx.Diagf(Stage, rec.Sequencer,
			"record t=%v: hit #%d at %v is a %s but event is %s %q, dropping %d hits",
			rec.Timestamp, n, obs[n].Time, obs[n].Name, evts[n].Name, evts[n].Description, len(obs)-n,
		)
	case n < len(obs):
		ctx.Diagf(Stage, rec.Sequencer,
			"record t=%v: %d events for %d hits, dropping %d hits from %v",
			rec.Timestamp, len(evts), len(obs), len(obs)-n, obs[n].Time,
		)
	case n < len(evts):
		ctx.Diagf(Stage, rec.Sequencer,
			"record t=%v: %d events for %d hits, %d events without hit from %s %q",
			rec.Timestamp, len(evts), len(obs), len(evts)-n, evts[n].Name, evts[n].Description,
		)
	}

	out := make([]Timed, n)
	for i := range out {
		out[i] = obs[i]
		out[i].Description = seqxml.Unquote(evts[i].Description)
	}
	return out
}

// Pair turns matched events into windows. A stopDump closes the earliest
// open startDump with the same description.
func Pair(ctx spill.Context, rec spill.Synced, evts []Timed) []spill.Window {
	var (
		open = make(map[string][]float64)
		wins []spill.Window
	)
	for _, evt := range evts {
		switch evt.Name {
		case spill.StartDump:
			open[evt.Description] = append(open[evt.Description], evt.Time)
		case spill.StopDump:
			starts := open[evt.Description]
			if len(starts) == 0 {
				ctx.Diagf(Stage, rec.Sequencer, "stopDump %q at %v without startDump", evt.Description, evt.Time)
				continue
			}
			beg := starts[0]
			open[evt.Description] = starts[1:]
			if !(beg < evt.Time) {
				ctx.Diagf(Stage, rec.Sequencer, "empty dump %q [%v, %v)", evt.Description, beg, evt.Time)
				continue
			}
			wins = append(wins, spill.Window{
				Sequencer:   rec.Sequencer,
				Description: evt.Description,
				Start:       beg,
				Stop:        evt.Time,
			})
		}
	}

	descs := make([]string, 0, len(open))
	for desc, starts := range open {
		if len(starts) > 0 {
			descs = append(descs, desc)
		}
	}
	sort.Strings(descs)
	for _, desc := range descs {
		for _, t := range open[desc] {
			ctx.Diagf(Stage, rec.Sequencer, "startDump %q at %v without stopDump", desc, t)
		}
	}

	sort.SliceStable(wins, func(i, j int) bool {
		return wins[i].Start < wins[j].Start
	})
	return wins
}

// Build returns the dump windows of a synchronized record, together with
// its matched, timed events.
func Build(ctx spill.Context, rec spill.Synced, start, stop []float64) ([]spill.Window, []Timed) {
	evts := Match(ctx, rec, Observe(rec, start, stop))
	return Pair(ctx, rec, evts), evts
}
