// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline derives the spill log of a run out of its sequencer log,
// Chronobox hits, channel settings and TRG scaler counters.
//
// The derivation is a graph of stages:
//
//	inputs -> extract -> resolve -> sync -> window -> aggregate
//	       \-> index  ----------------^--------^---------^
//
// The sync and window stages process each sequencer independently, possibly
// concurrently. The result does not depend on the number of workers.
package pipeline // import "github.com/go-daq/spill/pipeline"

import (
	"runtime"
	"sort"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/clocksync"
	"github.com/go-daq/spill/fsm"
	"github.com/go-daq/spill/internal/dflow"
	"github.com/go-daq/spill/log"
	"github.com/go-daq/spill/odb"
	"github.com/go-daq/spill/seqxml"
	"github.com/go-daq/spill/spillog"
	"github.com/go-daq/spill/window"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Input holds the fully materialized relations of a run.
type Input struct {
	Log      []spill.LogEntry // sequencer log
	Hits     []spill.Hit      // Chronobox hits
	Settings odb.Settings     // Chronobox channel names
	Counters []spill.Counter  // optional monotonic counters
}

// Options tunes the derivation.
type Options struct {
	Workers         int  // maximum number of sequencers processed concurrently (<=0: number of CPUs)
	HitChannelsOnly bool // only give a column to channels with at least one hit
}

// Result is the outcome of the derivation of a spill log.
type Result struct {
	Table       spill.Table
	Events      []window.Timed        // matched sequencer events, sorted by time
	Offsets     map[string]float64    // sequencer -> MIDAS/Chronobox clock offset
	Status      map[string]fsm.Status // sequencer -> final processing status
	Excluded    []string              // sequencers without a complete set of channels
	Failures    []error               // sequencer-scoped failures (*spill.SequencerError)
	Diagnostics []spill.Diagnostic
}

type sequencer struct {
	name  string
	recs  []spill.Record
	chans odb.SequencerChannels
	ctx   spill.Context

	status fsm.Status
	off    float64
	synced []spill.Synced
	wins   []spill.Window
	evts   []window.Timed
	err    error
}

type state struct {
	ctx  spill.Context
	in   Input
	opts Options

	recs []spill.Record
	idx  spill.HitIndex
	seqs []*sequencer
	res  *Result
}

type stage struct {
	name string
	in   []string
	out  []string
	run  func(st *state) error
}

var stages = []stage{
	{
		name: "inputs",
		out:  []string{"sequencer-log", "hit-log", "settings", "counter-log"},
		run:  (*state).inputs,
	},
	{
		name: "extract",
		in:   []string{"sequencer-log"},
		out:  []string{"records"},
		run:  (*state).extract,
	},
	{
		name: "index",
		in:   []string{"hit-log"},
		out:  []string{"hits"},
		run:  (*state).index,
	},
	{
		name: "resolve",
		in:   []string{"records", "settings"},
		out:  []string{"channels"},
		run:  (*state).resolve,
	},
	{
		name: "sync",
		in:   []string{"records", "channels", "hits"},
		out:  []string{"synced"},
		run:  (*state).sync,
	},
	{
		name: "window",
		in:   []string{"synced", "channels", "hits"},
		out:  []string{"windows", "events"},
		run:  (*state).window,
	},
	{
		name: "aggregate",
		in:   []string{"windows", "settings", "hits", "counter-log"},
		out:  []string{"spill-log"},
		run:  (*state).aggregate,
	},
}

// Stages returns the names of the stages, in execution order.
func Stages() ([]string, error) {
	g := dflow.New()
	for _, s := range stages {
		err := g.Add(s.name, s.in, s.out)
		if err != nil {
			return nil, xerrors.Errorf("pipeline: could not declare stage %q: %w", s.name, err)
		}
	}
	order, err := g.Sort()
	if err != nil {
		return nil, xerrors.Errorf("pipeline: invalid stage graph: %w", err)
	}
	return order, nil
}

// Run derives the spill log of a run.
//
// Run fails on conditions that are fatal for the whole run: a malformed
// sequence or an ambiguous sequencer channel. Failures scoped to a single
// sequencer are reported in Result.Failures, and that sequencer is absent
// from the spill log.
func Run(ctx spill.Context, in Input, opts Options) (*Result, error) {
	if ctx.Msg == nil {
		ctx.Msg = log.Default
	}
	if ctx.Diags == nil {
		ctx.Diags = new(spill.Diagnostics)
	}
	if ctx.Tolerance <= 0 {
		ctx.Tolerance = spill.DefaultTolerance
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	order, err := Stages()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]stage, len(stages))
	for _, s := range stages {
		byName[s.name] = s
	}

	st := &state{
		ctx:  ctx,
		in:   in,
		opts: opts,
		res: &Result{
			Offsets: make(map[string]float64),
			Status:  make(map[string]fsm.Status),
		},
	}
	for _, name := range order {
		ctx.Msg.Debugf("running stage %q...", name)
		err := byName[name].run(st)
		if err != nil {
			return nil, xerrors.Errorf("pipeline: stage %q failed: %w", name, err)
		}
	}

	st.res.Diagnostics = ctx.Diags.List()
	return st.res, nil
}

func (st *state) inputs() error {
	st.ctx.Msg.Debugf(
		"inputs: %d sequencer log entries, %d hits, %d boards, %d counters",
		len(st.in.Log), len(st.in.Hits), len(st.in.Settings), len(st.in.Counters),
	)
	return nil
}

func (st *state) extract() error {
	recs, err := seqxml.ParseLog(st.in.Log)
	if err != nil {
		return err
	}
	st.recs = recs
	return nil
}

func (st *state) index() error {
	st.idx = spill.NewHitIndex(st.in.Hits)
	return nil
}

func (st *state) resolve() error {
	groups := make(map[string][]spill.Record)
	for _, rec := range st.recs {
		groups[rec.Sequencer] = append(groups[rec.Sequencer], rec)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var status fsm.Status
		chans, err := odb.ResolveSequencer(st.in.Settings, name)
		switch {
		case err == nil:
			seq := &sequencer{
				name:  name,
				recs:  groups[name],
				chans: chans,
				ctx: spill.Context{
					Msg:       st.ctx.Msg,
					Tolerance: st.ctx.Tolerance,
					Diags:     new(spill.Diagnostics),
				},
			}
			err = seq.status.Advance(fsm.Resolved)
			if err != nil {
				return err
			}
			st.seqs = append(st.seqs, seq)
		case xerrors.Is(err, spill.ErrUnresolvedChannel):
			st.ctx.Diagf("resolve", name, "excluding sequencer: %v", err)
			st.res.Excluded = append(st.res.Excluded, name)
			err = status.Advance(fsm.Excluded)
			if err != nil {
				return err
			}
			st.res.Status[name] = status
		default:
			return &spill.SequencerError{Sequencer: name, Stage: "resolve", Err: err}
		}
	}
	return nil
}

// each runs f on every sequencer that has not failed yet.
func (st *state) each(f func(seq *sequencer) error) error {
	var grp errgroup.Group
	grp.SetLimit(st.opts.Workers)
	for _, seq := range st.seqs {
		if seq.err != nil {
			continue
		}
		seq := seq
		grp.Go(func() error {
			return f(seq)
		})
	}
	return grp.Wait()
}

func (st *state) sync() error {
	return st.each(func(seq *sequencer) error {
		res, err := clocksync.Sync(seq.ctx, seq.recs, st.idx.Times(seq.chans.Running))
		if err != nil {
			seq.err = &spill.SequencerError{Sequencer: seq.name, Stage: "sync", Err: err}
			seq.ctx.Msg.Errorf("%v", seq.err)
			return seq.status.Advance(fsm.Failed)
		}
		seq.off = res.Offset
		seq.synced = res.Records
		return seq.status.Advance(fsm.Synced)
	})
}

func (st *state) window() error {
	err := st.each(func(seq *sequencer) error {
		var (
			start = st.idx.Times(seq.chans.StartDump)
			stop  = st.idx.Times(seq.chans.StopDump)
		)
		for _, rec := range seq.synced {
			wins, evts := window.Build(seq.ctx, rec, start, stop)
			seq.wins = append(seq.wins, wins...)
			seq.evts = append(seq.evts, evts...)
		}
		return seq.status.Advance(fsm.Windowed)
	})
	if err != nil {
		return err
	}

	for _, seq := range st.seqs {
		st.ctx.Diags.Merge(seq.ctx.Diags)
		st.res.Status[seq.name] = seq.status
		if seq.err != nil {
			st.res.Failures = append(st.res.Failures, seq.err)
			continue
		}
		st.res.Offsets[seq.name] = seq.off
		st.res.Events = append(st.res.Events, seq.evts...)
	}
	sort.SliceStable(st.res.Events, func(i, j int) bool {
		return st.res.Events[i].Time < st.res.Events[j].Time
	})
	return nil
}

func (st *state) aggregate() error {
	var wins []spill.Window
	for _, seq := range st.seqs {
		wins = append(wins, seq.wins...)
	}
	chans := spillog.Select(st.ctx, st.in.Settings, st.idx, st.opts.HitChannelsOnly)
	st.res.Table = spillog.Aggregate(wins, chans, st.idx, st.in.Counters...)
	st.ctx.Msg.Infof(
		"spill log: %d dumps, %d channels, %d counters (%d sequencers, %d excluded, %d failed)",
		len(st.res.Table.Rows), len(st.res.Table.Channels), len(st.res.Table.Counters),
		len(st.seqs), len(st.res.Excluded), len(st.res.Failures),
	)
	return nil
}
