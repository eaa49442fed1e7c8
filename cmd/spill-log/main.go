// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command spill-log derives the spill log of a run: the number of hits of
// every Chronobox channel during every dump of every sequencer.
//
// Usage: spill-log [options] [sequencer.csv [chronobox.csv [odb.json [trg_scalers.csv]]]]
//
// Example:
//
//	$> spill-log -o run09876.xlsx -fmt xlsx \
//	     sequencer09876.csv chronobox09876.csv run09876.json trg_scalers09876.csv
//	$> spill-log -cfg run09876.yaml -lvl dbg -j 0
package main // import "github.com/go-daq/spill/cmd/spill-log"

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/config"
	"github.com/go-daq/spill/flags"
	"github.com/go-daq/spill/internal/iomux"
	"github.com/go-daq/spill/log"
	"github.com/go-daq/spill/odb"
	"github.com/go-daq/spill/pipeline"
	"github.com/go-daq/spill/spillio"
	"golang.org/x/xerrors"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `spill-log derives the spill log of a run.

Usage: spill-log [options] [sequencer.csv [chronobox.csv [odb.json [trg_scalers.csv]]]]

Options:
`)
		flag.PrintDefaults()
	}

	cfg := flags.New()
	msg := log.NewMsgStream(cfg.Name, cfg.Level, iomux.NewWriter(os.Stderr))

	err := process(msg, cfg)
	if err != nil {
		msg.Errorf("%+v", err)
		os.Exit(1)
	}
}

func process(msg log.MsgStream, cfg config.Run) error {
	in, err := load(cfg)
	if err != nil {
		return xerrors.Errorf("could not load run inputs: %w", err)
	}

	ctx := spill.NewContext(msg)
	ctx.Tolerance = cfg.Tolerance

	res, err := pipeline.Run(ctx, in, pipeline.Options{
		Workers:         cfg.Workers,
		HitChannelsOnly: cfg.HitChannelsOnly,
	})
	if err != nil {
		return xerrors.Errorf("could not derive spill log: %w", err)
	}

	err = output(cfg, res.Table)
	if err != nil {
		return xerrors.Errorf("could not write spill log: %w", err)
	}

	if n := len(res.Failures); n > 0 {
		return xerrors.Errorf("spill log is missing %d sequencers: %w", n, res.Failures[0])
	}
	return nil
}

func load(cfg config.Run) (pipeline.Input, error) {
	var in pipeline.Input

	err := read(cfg.Sequencer, func(r io.Reader) (err error) {
		in.Log, err = spillio.ReadSequencer(r)
		return err
	})
	if err != nil {
		return in, err
	}

	err = read(cfg.Chronobox, func(r io.Reader) (err error) {
		in.Hits, err = spillio.ReadChronobox(r)
		return err
	})
	if err != nil {
		return in, err
	}

	err = read(cfg.ODB, func(r io.Reader) error {
		doc, err := odb.Load(r)
		if err != nil {
			return err
		}
		in.Settings, err = doc.Settings(cfg.Boards...)
		return err
	})
	if err != nil {
		return in, err
	}

	if cfg.Scalers == "" {
		return in, nil
	}
	err = read(cfg.Scalers, func(r io.Reader) (err error) {
		in.Counters, err = spillio.ReadScalers(r, cfg.Counters...)
		return err
	})
	if err != nil {
		return in, err
	}
	return in, nil
}

func read(fname string, f func(r io.Reader) error) error {
	r, err := os.Open(fname)
	if err != nil {
		return xerrors.Errorf("could not open %q: %w", fname, err)
	}
	defer r.Close()

	err = f(r)
	if err != nil {
		return xerrors.Errorf("could not read %q: %w", fname, err)
	}
	return nil
}

func output(cfg config.Run, tbl spill.Table) error {
	write := spillio.WriteCSV
	if cfg.Format == config.FmtXLSX {
		write = spillio.WriteXLSX
	}

	if cfg.Output == "-" {
		return write(os.Stdout, tbl)
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return xerrors.Errorf("could not create output file: %w", err)
	}
	defer f.Close()

	err = write(f, tbl)
	if err != nil {
		return err
	}

	err = f.Close()
	if err != nil {
		return xerrors.Errorf("could not close output file: %w", err)
	}
	return nil
}
