// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spill correlates the software-timestamped sequencer log of a
// data-acquisition run with the hardware-timestamped Chronobox hits of the
// same run, and derives the spill log: the per-dump, per-channel hit counts.
package spill // import "github.com/go-daq/spill"

import (
	"fmt"
	"strings"

	"github.com/go-daq/spill/log"
)

// DefaultTolerance is the maximum distance, in seconds, between a shifted
// sequencer timestamp and its SEQ_RUNNING hit.
const DefaultTolerance = 2.0

// Event names of the dump boundaries in a sequencer event table.
const (
	StartDump = "startDump"
	StopDump  = "stopDump"
)

// Context is the run context threaded through all the stages of the
// spill log derivation.
type Context struct {
	Msg       log.MsgStream // message stream for progress and diagnostics
	Tolerance float64       // SEQ_RUNNING matching tolerance
	Diags     *Diagnostics  // sink of non-fatal conditions
}

// NewContext returns a run context with the default tolerance and an
// empty diagnostics sink.
func NewContext(msg log.MsgStream) Context {
	if msg == nil {
		msg = log.Default
	}
	return Context{
		Msg:       msg,
		Tolerance: DefaultTolerance,
		Diags:     new(Diagnostics),
	}
}

// Diagf records a non-fatal condition for sequencer seq during stage.
func (ctx Context) Diagf(stage, seq string, format string, args ...interface{}) {
	d := Diagnostic{
		Sequencer: seq,
		Stage:     stage,
		Msg:       fmt.Sprintf(format, args...),
	}
	if ctx.Diags != nil {
		ctx.Diags.Add(d)
	}
	if ctx.Msg != nil {
		ctx.Msg.Warnf("%v", d)
	}
}

// Event is one entry of a sequencer event table.
type Event struct {
	Name        string
	Description string
}

// LogEntry is a raw row of the sequencer log.
type LogEntry struct {
	Timestamp float64 // MIDAS (software) timestamp
	XML       string  // sequence XML blob
}

// Record is a parsed sequencer log entry.
type Record struct {
	Timestamp float64 // MIDAS (software) timestamp, accurate to a few seconds
	Sequencer string
	Events    []Event
}

// ChannelID is the hardware address of a Chronobox channel.
type ChannelID struct {
	Board   string
	Channel int
}

func (id ChannelID) String() string {
	return fmt.Sprintf("%s/%d", id.Board, id.Channel)
}

// Role is the function of a hardware channel for a given sequencer.
type Role uint8

const (
	SeqRunning Role = iota
	StartDumpRole
	StopDumpRole
)

// Roles lists all the channel roles a sequencer needs.
var Roles = []Role{SeqRunning, StartDumpRole, StopDumpRole}

func (r Role) String() string {
	switch r {
	case SeqRunning:
		return "SEQ_RUNNING"
	case StartDumpRole:
		return "START_DUMP"
	case StopDumpRole:
		return "STOP_DUMP"
	}
	panic(fmt.Errorf("spill: invalid Role value [%d]", int(r)))
}

// ChannelName returns the name of the channel carrying role r for
// the sequencer named seq.
func (r Role) ChannelName(seq string) string {
	return strings.ToUpper(seq) + "_" + r.String()
}

// Hit is a Chronobox edge.
type Hit struct {
	Channel     ChannelID
	Time        float64
	LeadingEdge bool
}

// Synced is a sequencer record whose start time has been replaced by the
// precise time of its SEQ_RUNNING hit.
type Synced struct {
	Record
	Start float64 // hardware time of the matched SEQ_RUNNING hit
	Next  float64 // start of the next record of the same sequencer, or +Inf
}

// Window is a dump interval [Start, Stop).
type Window struct {
	Sequencer   string
	Description string
	Start       float64
	Stop        float64
}

// Contains returns whether t lies in [w.Start, w.Stop).
func (w Window) Contains(t float64) bool {
	return w.Start <= t && t < w.Stop
}

// Sample is one reading of a monotonic counter.
type Sample struct {
	Time  float64
	Value int64
}

// Counter is a named, monotonically non-decreasing counter.
type Counter struct {
	Name    string
	Samples []Sample
}

// Row is one line of the spill log.
type Row struct {
	Window
	Counts map[string]int64 // channel name -> number of hits in the window
	Deltas map[string]int64 // counter column -> approximate increment in the window
}

// Table is the spill log.
type Table struct {
	Channels []string // channel columns, in lexicographic order
	Counters []string // counter-delta columns
	Rows     []Row
}

// Header returns the column names of the table.
func (tbl Table) Header() []string {
	hdr := make([]string, 0, 4+len(tbl.Channels)+len(tbl.Counters))
	hdr = append(hdr, "sequencer_name", "event_description", "start_time", "stop_time")
	hdr = append(hdr, tbl.Channels...)
	hdr = append(hdr, tbl.Counters...)
	return hdr
}
