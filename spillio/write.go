// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spillio // import "github.com/go-daq/spill/spillio"

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/go-daq/spill"
	"github.com/go-daq/spill/window"
	"github.com/xuri/excelize/v2"
	"golang.org/x/xerrors"
)

// SheetName is the name of the worksheet holding the spill log.
const SheetName = "spill_log"

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func records(tbl spill.Table) [][]string {
	out := make([][]string, 0, len(tbl.Rows)+1)
	out = append(out, tbl.Header())
	for _, row := range tbl.Rows {
		rec := make([]string, 0, 4+len(tbl.Channels)+len(tbl.Counters))
		rec = append(rec, row.Sequencer, row.Description, ftoa(row.Start), ftoa(row.Stop))
		for _, name := range tbl.Channels {
			rec = append(rec, strconv.FormatInt(row.Counts[name], 10))
		}
		for _, name := range tbl.Counters {
			rec = append(rec, strconv.FormatInt(row.Deltas[name], 10))
		}
		out = append(out, rec)
	}
	return out
}

// WriteCSV writes the spill log as CSV.
func WriteCSV(w io.Writer, tbl spill.Table) error {
	ww := csv.NewWriter(w)
	err := ww.WriteAll(records(tbl))
	if err != nil {
		return xerrors.Errorf("spillio: could not write spill log CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes the spill log as an Excel workbook with a single sheet.
// Times and counts are stored as numbers.
func WriteXLSX(w io.Writer, tbl spill.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName(f.GetSheetName(0), SheetName)
	if err != nil {
		return xerrors.Errorf("spillio: could not create sheet: %w", err)
	}

	hdr := tbl.Header()
	err = f.SetSheetRow(SheetName, "A1", &hdr)
	if err != nil {
		return xerrors.Errorf("spillio: could not write header: %w", err)
	}

	for i, row := range tbl.Rows {
		vals := make([]interface{}, 0, len(hdr))
		vals = append(vals, row.Sequencer, row.Description, row.Start, row.Stop)
		for _, name := range tbl.Channels {
			vals = append(vals, row.Counts[name])
		}
		for _, name := range tbl.Counters {
			vals = append(vals, row.Deltas[name])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return xerrors.Errorf("spillio: invalid cell for row %d: %w", i, err)
		}
		err = f.SetSheetRow(SheetName, cell, &vals)
		if err != nil {
			return xerrors.Errorf("spillio: could not write row %d: %w", i, err)
		}
	}

	err = f.Write(w)
	if err != nil {
		return xerrors.Errorf("spillio: could not write workbook: %w", err)
	}
	return nil
}

// WriteEvents writes the timed sequencer events as CSV.
func WriteEvents(w io.Writer, evts []window.Timed) error {
	ww := csv.NewWriter(w)
	ww.Write([]string{"sequencer_name", "event_name", "event_description", "chronobox_time"})
	for _, evt := range evts {
		ww.Write([]string{evt.Sequencer, evt.Name, evt.Description, ftoa(evt.Time)})
	}
	ww.Flush()
	err := ww.Error()
	if err != nil {
		return xerrors.Errorf("spillio: could not write events CSV: %w", err)
	}
	return nil
}
