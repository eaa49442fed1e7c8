// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spill // import "github.com/go-daq/spill"

import (
	"golang.org/x/xerrors"
)

var (
	// ErrMalformedSequence reports a sequence XML blob without a sequencer
	// name or with an incomplete event.
	ErrMalformedSequence = xerrors.New("spill: malformed sequence")

	// ErrUnresolvedChannel reports a channel name configured on no board.
	ErrUnresolvedChannel = xerrors.New("spill: unresolved channel")

	// ErrAmbiguousChannel reports a channel name configured more than once.
	ErrAmbiguousChannel = xerrors.New("spill: ambiguous channel")

	// ErrUnmatchedRunningSignal reports that no clock offset could match
	// every record of a sequencer to a SEQ_RUNNING hit.
	ErrUnmatchedRunningSignal = xerrors.New("spill: unmatched SEQ_RUNNING signal")
)

// SequencerError is a failure scoped to a single sequencer.
type SequencerError struct {
	Sequencer string
	Stage     string
	Err       error
}

func (e *SequencerError) Error() string {
	return "sequencer " + e.Sequencer + " (" + e.Stage + "): " + e.Err.Error()
}

func (e *SequencerError) Unwrap() error { return e.Err }
