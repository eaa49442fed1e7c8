// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command spill-odb extracts values out of the ODB JSON dump of a run.
//
// Example:
//
//	$> spill-odb run09876.json /Equipment/cb01/Settings/names/3
//	SiPM_A
//	$> spill-odb -pretty run09876.json /Equipment/cb01/Settings
package main // import "github.com/go-daq/spill/cmd/spill-odb"

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-daq/spill/log"
	"github.com/go-daq/spill/odb"
	"golang.org/x/xerrors"
)

func main() {
	pretty := flag.Bool("pretty", false, "pretty-print JSON values")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `spill-odb extracts values out of an ODB JSON dump.

Usage: spill-odb [options] odb.json [json-pointer]

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	var ptr string
	switch flag.NArg() {
	case 1:
	case 2:
		ptr = flag.Arg(1)
	default:
		flag.Usage()
		log.Fatalf("invalid number of arguments")
	}

	err := extract(os.Stdout, flag.Arg(0), ptr, *pretty)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func extract(w io.Writer, fname, ptr string, pretty bool) error {
	f, err := os.Open(fname)
	if err != nil {
		return xerrors.Errorf("could not open ODB file: %w", err)
	}
	defer f.Close()

	doc, err := odb.Load(f)
	if err != nil {
		return err
	}

	v, err := doc.Resolve(ptr)
	if err != nil {
		return err
	}

	return odb.Print(w, v, pretty)
}
