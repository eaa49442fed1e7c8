// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command spill-gen generates the input files of a synthetic run:
// sequencer.csv, chronobox.csv, odb.json and trg_scalers.csv.
//
// Example:
//
//	$> spill-gen -o ./run -seed 42 -records 10
//	$> spill-log ./run/sequencer.csv ./run/chronobox.csv ./run/odb.json ./run/trg_scalers.csv
package main // import "github.com/go-daq/spill/cmd/spill-gen"

import (
	"bufio"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-daq/spill/internal/simrun"
	"github.com/go-daq/spill/log"
	"golang.org/x/xerrors"
)

func main() {
	def := simrun.Default()
	var (
		odir    = flag.String("o", ".", "output directory")
		seed    = flag.Uint64("seed", def.Seed, "seed for the random number generator")
		seqs    = flag.String("seqs", strings.Join(def.Sequencers, ","), "comma-separated list of sequencers")
		records = flag.Int("records", def.Records, "number of records per sequencer")
		dumps   = flag.Int("dumps", def.Dumps, "number of dumps per record")
		offset  = flag.Float64("offset", def.Offset, "MIDAS-Chronobox clock offset (integer seconds)")
		bounce  = flag.Float64("bounce", def.Bounce, "probability of a spurious SEQ_RUNNING edge")
		dets    = flag.Int("detectors", def.Detectors, "number of detector channels")
		rate    = flag.Float64("rate", def.Rate, "mean detector rate (Hz)")
	)

	flag.Parse()

	cfg := def
	cfg.Seed = *seed
	cfg.Sequencers = strings.Split(*seqs, ",")
	cfg.Records = *records
	cfg.Dumps = *dumps
	cfg.Offset = *offset
	cfg.Bounce = *bounce
	cfg.Detectors = *dets
	cfg.Rate = *rate

	err := generate(*odir, cfg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func generate(dir string, cfg simrun.Config) error {
	run, err := simrun.New(cfg)
	if err != nil {
		return xerrors.Errorf("could not generate run: %w", err)
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return xerrors.Errorf("could not create output directory: %w", err)
	}

	for _, f := range []struct {
		name  string
		write func(w io.Writer) error
	}{
		{"sequencer.csv", run.WriteSequencer},
		{"chronobox.csv", run.WriteChronobox},
		{"odb.json", run.WriteODB},
		{"trg_scalers.csv", run.WriteScalers},
	} {
		err := create(filepath.Join(dir, f.name), f.write)
		if err != nil {
			return err
		}
	}

	log.Infof("generated %d records, %d hits, %d dumps in %q", len(run.Log), len(run.Hits), len(run.Windows), dir)
	return nil
}

func create(fname string, write func(w io.Writer) error) error {
	f, err := os.Create(fname)
	if err != nil {
		return xerrors.Errorf("could not create %q: %w", fname, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	err = write(bw)
	if err != nil {
		return xerrors.Errorf("could not write %q: %w", fname, err)
	}

	err = bw.Flush()
	if err != nil {
		return xerrors.Errorf("could not flush %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return xerrors.Errorf("could not close %q: %w", fname, err)
	}
	return nil
}
