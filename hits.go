// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spill // import "github.com/go-daq/spill"

import (
	"math"
	"sort"
)

// HitIndex holds the sorted leading-edge times of every channel.
type HitIndex map[ChannelID][]float64

// NewHitIndex indexes the leading-edge hits. Trailing edges are ignored.
func NewHitIndex(hits []Hit) HitIndex {
	idx := make(HitIndex)
	for _, hit := range hits {
		if !hit.LeadingEdge {
			continue
		}
		idx[hit.Channel] = append(idx[hit.Channel], hit.Time)
	}
	for _, ts := range idx {
		sort.Float64s(ts)
	}
	return idx
}

// Times returns the sorted leading-edge times of channel id.
func (idx HitIndex) Times(id ChannelID) []float64 {
	return idx[id]
}

// Count returns the number of hits of channel id in [lo, hi).
func (idx HitIndex) Count(id ChannelID, lo, hi float64) int64 {
	return int64(len(Between(idx[id], lo, hi)))
}

// Between returns the sub-slice of the sorted times ts lying in [lo, hi).
func Between(ts []float64, lo, hi float64) []float64 {
	if !(lo < hi) {
		return nil
	}
	beg := sort.SearchFloat64s(ts, lo)
	end := sort.SearchFloat64s(ts, hi)
	return ts[beg:end]
}

// Nearest returns the index of the time in the sorted times ts closest to t,
// and whether it lies within tol of t.
// Ties are resolved in favour of the earlier time.
func Nearest(ts []float64, t, tol float64) (int, bool) {
	if len(ts) == 0 {
		return -1, false
	}
	i := sort.SearchFloat64s(ts, t)
	best := -1
	dist := math.Inf(+1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(ts) {
			continue
		}
		if d := math.Abs(ts[j] - t); d < dist {
			best, dist = j, d
		}
	}
	return best, dist <= tol
}
