// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags provides an easy creation of standard flag parameters for spill log commands.
package flags // import "github.com/go-daq/spill/flags"

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-daq/spill/config"
	"github.com/go-daq/spill/log"
	"golang.org/x/xerrors"
)

// New parses the command-line flags and returns the run configuration.
// Positional arguments are, in order, the sequencer CSV file, the Chronobox
// CSV file, the ODB dump and the TRG scalers CSV file.
// They override the paths of the -cfg file.
func New() config.Run {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	return cfg
}

// Parse parses args with the standard flags registered on fs.
func Parse(fs *flag.FlagSet, args []string) (config.Run, error) {
	var (
		fname    = fs.String("cfg", "", "path to a YAML run configuration file")
		lvl      = fs.String("lvl", "INFO", "msgstream level")
		oname    = fs.String("o", "-", "path to the output spill log")
		format   = fs.String("fmt", config.FmtCSV, "output format (csv, xlsx)")
		workers  = fs.Int("j", 1, "number of sequencers processed concurrently (0: one per CPU)")
		tol      = fs.Float64("tol", 2, "SEQ_RUNNING matching tolerance in seconds")
		boards   = fs.String("boards", strings.Join(config.DefaultBoards, ","), "comma-separated list of Chronobox boards")
		counters = fs.String("counters", "input", "comma-separated list of TRG scaler columns")
		hitOnly  = fs.Bool("hit-only", false, "only keep channels with at least one hit")
	)

	err := fs.Parse(args)
	if err != nil {
		return config.Run{}, xerrors.Errorf("flags: could not parse flags: %w", err)
	}

	cfg := config.Default()
	if *fname != "" {
		cfg, err = config.Load(*fname)
		if err != nil {
			return cfg, xerrors.Errorf("flags: could not load configuration: %w", err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "lvl":
			cfg.Level, err = log.ParseLevel(*lvl)
		case "o":
			cfg.Output = *oname
		case "fmt":
			cfg.Format = *format
		case "j":
			cfg.Workers = *workers
		case "tol":
			cfg.Tolerance = *tol
		case "boards":
			cfg.Boards = split(*boards)
		case "counters":
			cfg.Counters = split(*counters)
		case "hit-only":
			cfg.HitChannelsOnly = *hitOnly
		}
	})
	if err != nil {
		return cfg, xerrors.Errorf("flags: invalid flag value: %w", err)
	}

	cfg.Args = fs.Args()
	if len(cfg.Args) > 4 {
		return cfg, xerrors.Errorf("flags: too many positional arguments (%d)", len(cfg.Args))
	}
	paths := []*string{&cfg.Sequencer, &cfg.Chronobox, &cfg.ODB, &cfg.Scalers}
	for i, arg := range cfg.Args {
		*paths[i] = arg
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func split(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
