// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes how the spill log of a run should be derived.
package config // import "github.com/go-daq/spill/config"

import (
	"os"
	"strings"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/log"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Output formats of the spill log.
const (
	FmtCSV  = "csv"
	FmtXLSX = "xlsx"
)

// DefaultBoards lists the Chronobox boards of a standard run.
var DefaultBoards = []string{"cb01", "cb02", "cb03", "cb04"}

// Run describes the inputs, outputs and tuning of a spill log derivation.
type Run struct {
	Name  string    `yaml:"name"`  // name of the message stream
	Level log.Level `yaml:"level"` // verbosity level

	Sequencer string `yaml:"sequencer"` // path to the sequencer CSV file
	Chronobox string `yaml:"chronobox"` // path to the Chronobox timestamps CSV file
	ODB       string `yaml:"odb"`       // path to the ODB JSON dump
	Scalers   string `yaml:"scalers"`   // path to the TRG scalers CSV file (optional)

	Output string `yaml:"output"` // path to the spill log ("-" for stdout)
	Format string `yaml:"format"` // csv or xlsx

	Boards    []string `yaml:"boards"`    // Chronobox boards to read settings of
	Tolerance float64  `yaml:"tolerance"` // SEQ_RUNNING matching tolerance, in seconds
	Workers   int      `yaml:"workers"`   // number of sequencers processed concurrently (0: one per CPU)
	Counters  []string `yaml:"counters"`  // TRG scaler columns turned into delta columns

	HitChannelsOnly bool `yaml:"hit-channels-only"` // only keep channels with at least one hit

	Args []string `yaml:"-"` // additional positional arguments
}

// Default returns the default run configuration.
func Default() Run {
	return Run{
		Name:      "spill-log",
		Level:     log.LvlInfo,
		Output:    "-",
		Format:    FmtCSV,
		Boards:    append([]string(nil), DefaultBoards...),
		Tolerance: spill.DefaultTolerance,
		Workers:   1,
		Counters:  []string{"input"},
	}
}

// Load reads the YAML configuration file at path.
// Missing fields keep their default value.
func Load(path string) (Run, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("config: could not read %q: %w", path, err)
	}

	err = yaml.Unmarshal(raw, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("config: could not decode %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration is usable and normalizes it.
func (cfg *Run) Validate() error {
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	switch cfg.Format {
	case "":
		cfg.Format = FmtCSV
	case FmtCSV, FmtXLSX:
	default:
		return xerrors.Errorf("config: invalid output format %q", cfg.Format)
	}

	switch {
	case cfg.Sequencer == "":
		return xerrors.Errorf("config: missing sequencer CSV file")
	case cfg.Chronobox == "":
		return xerrors.Errorf("config: missing Chronobox CSV file")
	case cfg.ODB == "":
		return xerrors.Errorf("config: missing ODB file")
	}

	if cfg.Format == FmtXLSX && (cfg.Output == "" || cfg.Output == "-") {
		return xerrors.Errorf("config: xlsx output needs an output file")
	}
	if cfg.Output == "" {
		cfg.Output = "-"
	}

	if len(cfg.Boards) == 0 {
		cfg.Boards = append([]string(nil), DefaultBoards...)
	}

	switch {
	case cfg.Tolerance == 0:
		cfg.Tolerance = spill.DefaultTolerance
	case cfg.Tolerance < 0:
		return xerrors.Errorf("config: invalid negative tolerance %v", cfg.Tolerance)
	}

	if cfg.Workers < 0 {
		return xerrors.Errorf("config: invalid number of workers %d", cfg.Workers)
	}
	return nil
}
