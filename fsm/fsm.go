// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsm describes the processing status of a sequencer through the
// stages of the spill log derivation.
package fsm // import "github.com/go-daq/spill/fsm"

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Status describes the current status of a sequencer.
type Status uint8

const (
	Pending  Status = iota // records extracted
	Resolved               // hardware channels resolved
	Synced                 // records synchronized with SEQ_RUNNING
	Windowed               // dump windows built
	Excluded               // some hardware channel is missing
	Failed                 // derivation abandoned
)

func (st Status) String() string {
	switch st {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Synced:
		return "synced"
	case Windowed:
		return "windowed"
	case Excluded:
		return "excluded"
	case Failed:
		return "failed"
	default:
		panic(fmt.Errorf("invalid status value %d", uint8(st)))
	}
}

// Final returns whether no transition leaves st.
func (st Status) Final() bool {
	switch st {
	case Windowed, Excluded, Failed:
		return true
	}
	return false
}

// Advance moves the status to next.
// Any non-final status may fail. Otherwise the status goes through
// pending, resolved, synced then windowed; a pending sequencer may also
// be excluded.
func (st *Status) Advance(next Status) error {
	cur := *st
	ok := false
	switch {
	case cur.Final():
	case next == Failed:
		ok = true
	case cur == Pending:
		ok = next == Resolved || next == Excluded
	case cur == Resolved:
		ok = next == Synced
	case cur == Synced:
		ok = next == Windowed
	}
	if !ok {
		return xerrors.Errorf("fsm: invalid transition %v -> %v", cur, next)
	}
	*st = next
	return nil
}
