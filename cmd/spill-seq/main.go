// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command spill-seq lists the sequencer events of a run.
//
// Without options, spill-seq prints the dumps of every sequence.
// With -odb and -chronobox, spill-seq writes the Chronobox time of every
// sequencer event as CSV with the columns:
//
//	sequencer_name,event_name,event_description,chronobox_time
//
// Example:
//
//	$> spill-seq sequencer09876.csv
//	$> spill-seq -odb run09876.json -chronobox chronobox09876.csv sequencer09876.csv
package main // import "github.com/go-daq/spill/cmd/spill-seq"

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-daq/spill"
	"github.com/go-daq/spill/config"
	"github.com/go-daq/spill/internal/iomux"
	"github.com/go-daq/spill/log"
	"github.com/go-daq/spill/odb"
	"github.com/go-daq/spill/pipeline"
	"github.com/go-daq/spill/seqxml"
	"github.com/go-daq/spill/spillio"
	"golang.org/x/xerrors"
)

func main() {
	var (
		dbname = flag.String("odb", "", "path to the ODB JSON file")
		cbname = flag.String("chronobox", "", "path to the Chronobox CSV file")
		boards = flag.String("boards", strings.Join(config.DefaultBoards, ","), "comma-separated list of Chronobox boards")
		tol    = flag.Float64("tol", spill.DefaultTolerance, "SEQ_RUNNING matching tolerance in seconds")
		lvl    = flag.String("lvl", "INFO", "msgstream level")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `spill-seq extracts sequencer events information for a single run.

Usage: spill-seq [options] sequencer.csv

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing path to sequencer CSV file")
	}
	if (*dbname == "") != (*cbname == "") {
		flag.Usage()
		log.Fatalf("-odb and -chronobox must be used together")
	}

	level, err := log.ParseLevel(*lvl)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	msg := log.NewMsgStream("spill-seq", level, iomux.NewWriter(os.Stderr))

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		msg.Errorf("could not open sequencer CSV file: %+v", err)
		os.Exit(1)
	}
	defer f.Close()

	entries, err := spillio.ReadSequencer(f)
	if err != nil {
		msg.Errorf("could not read sequencer CSV file: %+v", err)
		os.Exit(1)
	}

	if *dbname == "" {
		err = summary(os.Stdout, entries)
		if err != nil {
			msg.Errorf("could not summarize sequences: %+v", err)
			os.Exit(1)
		}
		return
	}

	ctx := spill.NewContext(msg)
	ctx.Tolerance = *tol
	err = timed(ctx, os.Stdout, entries, *dbname, *cbname, split(*boards))
	if err != nil {
		msg.Errorf("could not time sequencer events: %+v", err)
		os.Exit(1)
	}
}

// summary prints one line per sequence, with its dumps.
func summary(w io.Writer, entries []spill.LogEntry) error {
	recs, err := seqxml.ParseLog(entries)
	if err != nil {
		return err
	}

	tbl := table.New().
		Border(lipgloss.ASCIIBorder()).
		BorderColumn(false).
		BorderRow(true).
		Headers("midas_timestamp", "sequencer_name", "event_table")
	for _, rec := range recs {
		tbl.Row(
			strconv.FormatFloat(rec.Timestamp, 'f', -1, 64),
			rec.Sequencer,
			seqxml.Summary(rec.Events),
		)
	}

	_, err = fmt.Fprintln(w, tbl.String())
	if err != nil {
		return xerrors.Errorf("could not write summary: %w", err)
	}
	return nil
}

// timed writes the Chronobox time of every sequencer event as CSV.
func timed(ctx spill.Context, w io.Writer, entries []spill.LogEntry, dbname, cbname string, boards []string) error {
	r, err := os.Open(dbname)
	if err != nil {
		return xerrors.Errorf("could not open ODB file: %w", err)
	}
	defer r.Close()

	doc, err := odb.Load(r)
	if err != nil {
		return err
	}
	settings, err := doc.Settings(boards...)
	if err != nil {
		return err
	}

	cb, err := os.Open(cbname)
	if err != nil {
		return xerrors.Errorf("could not open Chronobox CSV file: %w", err)
	}
	defer cb.Close()

	hits, err := spillio.ReadChronobox(cb)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, pipeline.Input{
		Log:      entries,
		Hits:     hits,
		Settings: settings,
	}, pipeline.Options{Workers: 1})
	if err != nil {
		return err
	}

	err = spillio.WriteEvents(w, res.Events)
	if err != nil {
		return err
	}

	if n := len(res.Failures); n > 0 {
		return xerrors.Errorf("events of %d sequencers are missing: %w", n, res.Failures[0])
	}
	return nil
}

func split(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
