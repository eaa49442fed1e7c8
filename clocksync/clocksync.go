// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clocksync aligns the coarse MIDAS timestamps of the records of a
// sequencer with the precise Chronobox times of its SEQ_RUNNING channel.
//
// The MIDAS and Chronobox clocks differ by an unknown offset, and the
// SEQ_RUNNING channel may carry spurious leading edges (bounces).
// Every SEQ_RUNNING hit proposes an integer offset for the earliest record;
// the first offset for which every record finds a hit within tolerance,
// in chronological order, is accepted.
package clocksync // import "github.com/go-daq/spill/clocksync"

import (
	"math"
	"sort"

	"github.com/go-daq/spill"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/stat"
)

// Result is the outcome of the synchronization of one sequencer.
type Result struct {
	Offset  float64       // MIDAS time - Chronobox time, rounded to an integer
	Records []spill.Synced // records in chronological order

	// Mean and StdDev describe the residuals between the shifted MIDAS
	// timestamps and their SEQ_RUNNING hits.
	Mean   float64
	StdDev float64
}

// Sync synchronizes the records of a single sequencer against the sorted
// leading-edge times of its SEQ_RUNNING channel.
func Sync(ctx spill.Context, recs []spill.Record, running []float64) (Result, error) {
	var res Result
	if len(recs) == 0 {
		return res, nil
	}

	recs = Chronological(recs)
	tol := ctx.Tolerance
	if tol <= 0 {
		tol = spill.DefaultTolerance
	}

	tried := make(map[float64]struct{}, len(running))
	for _, h := range running {
		off := math.Round(recs[0].Timestamp - h)
		if _, dup := tried[off]; dup {
			continue
		}
		tried[off] = struct{}{}

		idx, ok := match(recs, running, off, tol)
		if !ok {
			continue
		}

		res.Offset = off
		res.Records = make([]spill.Synced, len(recs))
		for i, rec := range recs {
			res.Records[i] = spill.Synced{
				Record: rec,
				Start:  running[idx[i]],
				Next:   math.Inf(+1),
			}
			if i > 0 {
				res.Records[i-1].Next = res.Records[i].Start
			}
		}
		res.Mean, res.StdDev = residuals(res)
		if ctx.Msg != nil {
			ctx.Msg.Debugf(
				"sequencer %q: offset=%v s, residuals=%.3f±%.3f s (%d records, %d SEQ_RUNNING hits, %d candidates)",
				recs[0].Sequencer, off, res.Mean, res.StdDev, len(recs), len(running), len(tried),
			)
		}
		return res, nil
	}

	return res, xerrors.Errorf(
		"no clock offset matches all %d records to %d SEQ_RUNNING hits (%d candidates, tolerance=%v): %w",
		len(recs), len(running), len(tried), tol, spill.ErrUnmatchedRunningSignal,
	)
}

// match shifts every record by off and looks up the nearest SEQ_RUNNING hit
// within tol. Each record only considers the hits after the one matched by
// its predecessor, so that two records never share a hit.
func match(recs []spill.Record, running []float64, off, tol float64) ([]int, bool) {
	idx := make([]int, len(recs))
	beg := 0
	for i, rec := range recs {
		j, ok := spill.Nearest(running[beg:], rec.Timestamp-off, tol)
		if !ok {
			return nil, false
		}
		idx[i] = beg + j
		beg = idx[i] + 1
	}
	return idx, true
}

func residuals(res Result) (mean, std float64) {
	xs := make([]float64, len(res.Records))
	for i, rec := range res.Records {
		xs[i] = rec.Timestamp - res.Offset - rec.Start
	}
	if len(xs) < 2 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

// Chronological returns a copy of the records sorted by MIDAS timestamp.
// Records with the same timestamp keep their log order.
func Chronological(recs []spill.Record) []spill.Record {
	out := make([]spill.Record, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
