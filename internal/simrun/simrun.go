// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package simrun generates synthetic acquisition runs: a sequencer log,
// Chronobox hits, channel settings and TRG scalers with a known spill log.
package simrun // import "github.com/go-daq/spill/internal/simrun"

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/odb"
	"golang.org/x/exp/rand"
	"golang.org/x/xerrors"
)

// Config describes the run to generate.
type Config struct {
	Seed       uint64
	Sequencers []string // names of the sequencers
	Records    int      // number of records per sequencer
	Dumps      int      // number of dumps per record
	Offset     float64  // integer MIDAS - Chronobox clock offset
	Jitter     float64  // maximum MIDAS timestamp jitter, in seconds
	Bounce     float64  // probability of a spurious SEQ_RUNNING edge
	Detectors  int      // number of detector channels
	Rate       float64  // mean detector rate, in Hz
	Boards     []string // Chronobox boards
}

// Default returns a small run configuration.
func Default() Config {
	return Config{
		Seed:       1234,
		Sequencers: []string{"cat", "rct", "atm", "pos"},
		Records:    3,
		Dumps:      2,
		Offset:     1700000000,
		Jitter:     0.4,
		Bounce:     0.2,
		Detectors:  4,
		Rate:       5,
		Boards:     []string{"cb01", "cb02", "cb03", "cb04"},
	}
}

// Run is a generated acquisition run.
type Run struct {
	Log      []spill.LogEntry
	Hits     []spill.Hit // sorted by time
	Settings odb.Settings
	Scalers  []Scaler

	Windows []spill.Window // expected dump windows
}

// Scaler is one reading of the TRG scalers.
type Scaler struct {
	Time   float64
	Input  int64
	Output int64
}

// New generates a run.
func New(cfg Config) (Run, error) {
	var run Run
	switch {
	case len(cfg.Sequencers) == 0:
		return run, xerrors.Errorf("simrun: no sequencer")
	case len(cfg.Boards) == 0:
		return run, xerrors.Errorf("simrun: no Chronobox board")
	case cfg.Jitter < 0 || cfg.Jitter >= 0.5:
		return run, xerrors.Errorf("simrun: invalid jitter %v", cfg.Jitter)
	case cfg.Offset != math.Trunc(cfg.Offset):
		return run, xerrors.Errorf("simrun: invalid non-integer offset %v", cfg.Offset)
	}

	var (
		rnd   = rand.New(rand.NewSource(cfg.Seed))
		chans = make(map[string]spill.ChannelID)
		next  = make(map[string]int)
	)

	run.Settings = make(odb.Settings, len(cfg.Boards))
	assign := func(board, name string) {
		id := spill.ChannelID{Board: board, Channel: next[board]}
		next[board]++
		chans[name] = id
		run.Settings[board] = append(run.Settings[board], name)
	}
	for i, seq := range cfg.Sequencers {
		board := cfg.Boards[i%len(cfg.Boards)]
		for _, role := range spill.Roles {
			assign(board, role.ChannelName(seq))
		}
	}
	for i := 0; i < cfg.Detectors; i++ {
		assign(cfg.Boards[len(cfg.Boards)-1], detector(i))
	}
	for _, board := range cfg.Boards {
		// unused channels have no name.
		run.Settings[board] = append(run.Settings[board], "")
	}

	edge := func(name string, t float64) {
		id := chans[name]
		run.Hits = append(run.Hits,
			spill.Hit{Channel: id, Time: t, LeadingEdge: true},
			spill.Hit{Channel: id, Time: t + 1e-3, LeadingEdge: false},
		)
	}

	t := 1.0
	for r := 0; r < cfg.Records; r++ {
		for _, seq := range cfg.Sequencers {
			edge(spill.SeqRunning.ChannelName(seq), t)
			if rnd.Float64() < cfg.Bounce {
				edge(spill.SeqRunning.ChannelName(seq), t+0.01)
			}

			var evts []spill.Event
			cur := t + 0.5
			for d := 0; d < cfg.Dumps; d++ {
				desc := fmt.Sprintf("%s dump %d", strings.ToUpper(seq), r*cfg.Dumps+d)
				beg := cur + 0.1 + rnd.Float64()
				end := beg + 0.5 + rnd.Float64()
				edge(spill.StartDumpRole.ChannelName(seq), beg)
				edge(spill.StopDumpRole.ChannelName(seq), end)
				evts = append(evts,
					spill.Event{Name: spill.StartDump, Description: strconv.Quote(desc)},
					spill.Event{Name: spill.StopDump, Description: strconv.Quote(desc)},
				)
				run.Windows = append(run.Windows, spill.Window{
					Sequencer:   seq,
					Description: desc,
					Start:       beg,
					Stop:        end,
				})
				cur = end
			}

			ts := t + cfg.Offset + cfg.Jitter*(2*rnd.Float64()-1)
			run.Log = append(run.Log, spill.LogEntry{
				Timestamp: ts,
				XML:       sequence(seq, evts),
			})
			t = cur + 5
		}
	}
	end := t

	for i := 0; i < cfg.Detectors; i++ {
		n := int(cfg.Rate * end)
		for j := 0; j < n; j++ {
			edge(detector(i), end*rnd.Float64())
		}
	}
	sort.SliceStable(run.Hits, func(i, j int) bool {
		return run.Hits[i].Time < run.Hits[j].Time
	})

	var in, out int64
	for ts := 0.0; ts < end+1; ts++ {
		in += rnd.Int63n(1000)
		out += rnd.Int63n(10)
		run.Scalers = append(run.Scalers, Scaler{Time: ts, Input: in, Output: out})
	}

	return run, nil
}

func detector(i int) string {
	return fmt.Sprintf("SiPM_%02d", i)
}

func sequence(name string, evts []spill.Event) string {
	o := new(strings.Builder)
	o.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<RunSequence>\n<SequencerName>")
	xml.EscapeText(o, []byte(name))
	o.WriteString("</SequencerName>\n<EventTable>\n")
	for _, evt := range evts {
		o.WriteString("<event><name>")
		xml.EscapeText(o, []byte(evt.Name))
		o.WriteString("</name><description>")
		xml.EscapeText(o, []byte(evt.Description))
		o.WriteString("</description></event>\n")
	}
	o.WriteString("</EventTable>\n</RunSequence>\n")
	return o.String()
}

// Counters returns the TRG scalers as monotonic counters.
func (run Run) Counters() []spill.Counter {
	cs := []spill.Counter{{Name: "trg_approx_input"}, {Name: "trg_approx_output"}}
	for _, s := range run.Scalers {
		cs[0].Samples = append(cs[0].Samples, spill.Sample{Time: s.Time, Value: s.Input})
		cs[1].Samples = append(cs[1].Samples, spill.Sample{Time: s.Time, Value: s.Output})
	}
	return cs
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(w io.Writer, comment string, rows [][]string) error {
	_, err := fmt.Fprintf(w, "# %s\n", comment)
	if err != nil {
		return xerrors.Errorf("simrun: could not write CSV comment: %w", err)
	}
	ww := csv.NewWriter(w)
	err = ww.WriteAll(rows)
	if err != nil {
		return xerrors.Errorf("simrun: could not write CSV: %w", err)
	}
	return nil
}

// WriteSequencer writes the sequencer log as CSV.
func (run Run) WriteSequencer(w io.Writer) error {
	rows := [][]string{{"midas_timestamp", "xml"}}
	for _, entry := range run.Log {
		rows = append(rows, []string{ftoa(entry.Timestamp), entry.XML})
	}
	return writeCSV(w, "sequencer", rows)
}

// WriteChronobox writes the Chronobox hits as CSV.
func (run Run) WriteChronobox(w io.Writer) error {
	rows := [][]string{{"board", "channel", "chronobox_time", "leading_edge"}}
	for _, hit := range run.Hits {
		rows = append(rows, []string{
			hit.Channel.Board,
			strconv.Itoa(hit.Channel.Channel),
			ftoa(hit.Time),
			strconv.FormatBool(hit.LeadingEdge),
		})
	}
	return writeCSV(w, "chronobox timestamps", rows)
}

// WriteScalers writes the TRG scalers as CSV.
// Only the input and output counters are filled.
func (run Run) WriteScalers(w io.Writer) error {
	rows := [][]string{{"serial_number", "trg_time", "input", "drift_veto", "scaledown", "pulser", "output"}}
	for i, s := range run.Scalers {
		rows = append(rows, []string{
			strconv.Itoa(i),
			ftoa(s.Time),
			strconv.FormatInt(s.Input, 10),
			"", "", "",
			strconv.FormatInt(s.Output, 10),
		})
	}
	return writeCSV(w, "TRG scalers", rows)
}

// WriteODB writes the channel settings as an ODB JSON dump, preceded by
// the MIDAS comment lines.
func (run Run) WriteODB(w io.Writer) error {
	type settings struct {
		Names []string `json:"names"`
	}
	type equipment struct {
		Settings settings `json:"Settings"`
	}
	eqs := make(map[string]equipment, len(run.Settings))
	for board, names := range run.Settings {
		eqs[board] = equipment{Settings: settings{Names: names}}
	}

	_, err := io.WriteString(w, "#MIDAS ODB dump\n#synthetic run\n")
	if err != nil {
		return xerrors.Errorf("simrun: could not write ODB header: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err = enc.Encode(map[string]interface{}{"Equipment": eqs})
	if err != nil {
		return xerrors.Errorf("simrun: could not write ODB JSON: %w", err)
	}
	return nil
}
