// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-daq/spill/log"
)

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	fname := filepath.Join(tmp, "run.yaml")
	err := os.WriteFile(fname, []byte(`# run 9876
name: run-9876
level: debug
sequencer: seq.csv
chronobox: cb.csv
odb: run.json
output: out.xlsx
format: XLSX
boards: [cb01, cb03]
tolerance: 1.5
workers: 4
counters: [input, output]
hit-channels-only: true
`), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	got, err := Load(fname)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	err = got.Validate()
	if err != nil {
		t.Fatalf("invalid config: %+v", err)
	}

	want := Run{
		Name:            "run-9876",
		Level:           log.LvlDebug,
		Sequencer:       "seq.csv",
		Chronobox:       "cb.csv",
		ODB:             "run.json",
		Output:          "out.xlsx",
		Format:          FmtXLSX,
		Boards:          []string{"cb01", "cb03"},
		Tolerance:       1.5,
		Workers:         4,
		Counters:        []string{"input", "output"},
		HitChannelsOnly: true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid config:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmp := t.TempDir()
	fname := filepath.Join(tmp, "run.yaml")
	err := os.WriteFile(fname, []byte("sequencer: seq.csv\nchronobox: cb.csv\nodb: run.json\n"), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	got, err := Load(fname)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("invalid config: %+v", err)
	}

	want := Default()
	want.Sequencer = "seq.csv"
	want.Chronobox = "cb.csv"
	want.ODB = "run.json"
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid config:\ngot= %+v\nwant=%+v", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tmp := t.TempDir()

	_, err := Load(filepath.Join(tmp, "not-there.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}

	fname := filepath.Join(tmp, "bad.yaml")
	err = os.WriteFile(fname, []byte("level: verbose\n"), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}
	_, err = Load(fname)
	if err == nil {
		t.Fatalf("expected an error for an invalid level")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Run {
		cfg := Default()
		cfg.Sequencer = "seq.csv"
		cfg.Chronobox = "cb.csv"
		cfg.ODB = "run.json"
		return cfg
	}

	for _, tt := range []struct {
		name string
		mod  func(cfg *Run)
		err  bool
	}{
		{name: "default", mod: func(*Run) {}},
		{name: "no-sequencer", mod: func(cfg *Run) { cfg.Sequencer = "" }, err: true},
		{name: "no-chronobox", mod: func(cfg *Run) { cfg.Chronobox = "" }, err: true},
		{name: "no-odb", mod: func(cfg *Run) { cfg.ODB = "" }, err: true},
		{name: "bad-format", mod: func(cfg *Run) { cfg.Format = "parquet" }, err: true},
		{name: "xlsx-stdout", mod: func(cfg *Run) { cfg.Format = "xlsx" }, err: true},
		{name: "xlsx-file", mod: func(cfg *Run) { cfg.Format = "xlsx"; cfg.Output = "out.xlsx" }},
		{name: "neg-tolerance", mod: func(cfg *Run) { cfg.Tolerance = -1 }, err: true},
		{name: "neg-workers", mod: func(cfg *Run) { cfg.Workers = -1 }, err: true},
		{name: "all-cpus", mod: func(cfg *Run) { cfg.Workers = 0 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mod(&cfg)
			err := cfg.Validate()
			switch {
			case tt.err && err == nil:
				t.Fatalf("expected an error")
			case !tt.err && err != nil:
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}

	cfg := valid()
	cfg.Boards = nil
	cfg.Tolerance = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if !reflect.DeepEqual(cfg.Boards, DefaultBoards) {
		t.Fatalf("invalid boards: got=%q, want=%q", cfg.Boards, DefaultBoards)
	}
	if cfg.Tolerance != 2 {
		t.Fatalf("invalid tolerance: got=%v, want=2", cfg.Tolerance)
	}
}
