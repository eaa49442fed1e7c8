// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spillio reads the per-run CSV files (sequencer log, Chronobox
// timestamps, TRG scalers) and writes the spill log.
package spillio // import "github.com/go-daq/spill/spillio"

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/go-daq/spill"
	"golang.org/x/xerrors"
)

// CounterPrefix prefixes the names of the counter-delta columns.
const CounterPrefix = "trg_approx_"

type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(r io.Reader, required ...string) (table, error) {
	var tbl table

	rr := csv.NewReader(r)
	rr.Comment = '#'
	rr.FieldsPerRecord = -1

	hdr, err := rr.Read()
	if err == io.EOF {
		return tbl, nil
	}
	if err != nil {
		return tbl, xerrors.Errorf("could not read CSV header: %w", err)
	}
	tbl.cols = make(map[string]int, len(hdr))
	for i, name := range hdr {
		tbl.cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := tbl.cols[name]; !ok {
			return tbl, xerrors.Errorf("missing CSV column %q", name)
		}
	}

	for {
		row, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tbl, xerrors.Errorf("could not read CSV row: %w", err)
		}
		if len(row) != len(hdr) {
			line, _ := rr.FieldPos(0)
			return tbl, xerrors.Errorf("CSV line %d: got %d fields, want %d", line, len(row), len(hdr))
		}
		tbl.rows = append(tbl.rows, row)
	}
	return tbl, nil
}

func (tbl table) get(row []string, col string) string {
	return row[tbl.cols[col]]
}

func (tbl table) float(i int, col string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tbl.get(tbl.rows[i], col)), 64)
	if err != nil {
		return 0, xerrors.Errorf("row %d: invalid %s: %w", i, col, err)
	}
	return v, nil
}

// ReadSequencer reads the sequencer CSV file of a run.
// It needs the midas_timestamp and xml columns.
func ReadSequencer(r io.Reader) ([]spill.LogEntry, error) {
	tbl, err := readTable(r, "midas_timestamp", "xml")
	if err != nil {
		return nil, xerrors.Errorf("spillio: could not read sequencer CSV: %w", err)
	}
	entries := make([]spill.LogEntry, len(tbl.rows))
	for i, row := range tbl.rows {
		ts, err := tbl.float(i, "midas_timestamp")
		if err != nil {
			return nil, xerrors.Errorf("spillio: could not read sequencer CSV: %w", err)
		}
		entries[i] = spill.LogEntry{Timestamp: ts, XML: tbl.get(row, "xml")}
	}
	return entries, nil
}

// ReadChronobox reads the Chronobox timestamps CSV file of a run.
// It needs the board, channel, chronobox_time and leading_edge columns.
func ReadChronobox(r io.Reader) ([]spill.Hit, error) {
	tbl, err := readTable(r, "board", "channel", "chronobox_time", "leading_edge")
	if err != nil {
		return nil, xerrors.Errorf("spillio: could not read Chronobox CSV: %w", err)
	}
	hits := make([]spill.Hit, len(tbl.rows))
	for i, row := range tbl.rows {
		ch, err := strconv.Atoi(strings.TrimSpace(tbl.get(row, "channel")))
		if err != nil {
			return nil, xerrors.Errorf("spillio: Chronobox CSV row %d: invalid channel: %w", i, err)
		}
		t, err := tbl.float(i, "chronobox_time")
		if err != nil {
			return nil, xerrors.Errorf("spillio: Chronobox CSV: %w", err)
		}
		edge, err := strconv.ParseBool(strings.TrimSpace(tbl.get(row, "leading_edge")))
		if err != nil {
			return nil, xerrors.Errorf("spillio: Chronobox CSV row %d: invalid leading_edge: %w", i, err)
		}
		hits[i] = spill.Hit{
			Channel:     spill.ChannelID{Board: strings.TrimSpace(tbl.get(row, "board")), Channel: ch},
			Time:        t,
			LeadingEdge: edge,
		}
	}
	return hits, nil
}

// ReadScalers reads the given counters out of the TRG scalers CSV file of
// a run. The counter read from column c is named CounterPrefix+c.
// Blank cells are skipped. An empty file yields empty counters.
func ReadScalers(r io.Reader, names ...string) ([]spill.Counter, error) {
	tbl, err := readTable(r)
	if err != nil {
		return nil, xerrors.Errorf("spillio: could not read TRG scalers CSV: %w", err)
	}

	cs := make([]spill.Counter, len(names))
	for i, name := range names {
		cs[i].Name = CounterPrefix + name
	}
	if tbl.cols == nil {
		return cs, nil
	}

	for _, name := range append([]string{"trg_time"}, names...) {
		if _, ok := tbl.cols[name]; !ok {
			return nil, xerrors.Errorf("spillio: could not read TRG scalers CSV: missing column %q", name)
		}
	}

	for i, row := range tbl.rows {
		t, err := tbl.float(i, "trg_time")
		if err != nil {
			return nil, xerrors.Errorf("spillio: TRG scalers CSV: %w", err)
		}
		for j, name := range names {
			cell := strings.TrimSpace(tbl.get(row, name))
			if cell == "" {
				continue
			}
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, xerrors.Errorf("spillio: TRG scalers CSV row %d: invalid %s: %w", i, name, err)
			}
			cs[j].Samples = append(cs[j].Samples, spill.Sample{Time: t, Value: v})
		}
	}
	return cs, nil
}
