// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seqxml extracts the sequencer name and the event table out of
// the XML description of a control sequence.
//
// A sequence looks like:
//
//	<RunSequence>
//	  <SequencerName>rct</SequencerName>
//	  <event><name>startDump</name><description>"Hot Dump"</description></event>
//	  <event><name>stopDump</name><description>"Hot Dump"</description></event>
//	</RunSequence>
package seqxml // import "github.com/go-daq/spill/seqxml"

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/go-daq/spill"
	"golang.org/x/xerrors"
)

type node struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

// text returns the text of the first direct child named name, or the
// empty string if there is no such child.
func (n *node) text(name string) string {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return n.Nodes[i].Text
		}
	}
	return ""
}

// walk visits n and all its descendants in document order.
func (n *node) walk(f func(n *node) error) error {
	err := f(n)
	if err != nil {
		return err
	}
	for i := range n.Nodes {
		err = n.Nodes[i].walk(f)
		if err != nil {
			return err
		}
	}
	return nil
}

func parse(raw string) (*node, error) {
	var root node
	dec := xml.NewDecoder(strings.NewReader(raw))
	err := dec.Decode(&root)
	if err != nil {
		return nil, xerrors.Errorf("could not decode sequence XML: %v: %w", err, spill.ErrMalformedSequence)
	}

	// only whitespace, comments and processing instructions may follow the root element.
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("could not decode sequence XML: %v: %w", err, spill.ErrMalformedSequence)
		}
		switch tok := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(tok)) != 0 {
				return nil, xerrors.Errorf("trailing text after sequence XML: %w", spill.ErrMalformedSequence)
			}
		default:
			return nil, xerrors.Errorf("trailing content after sequence XML: %w", spill.ErrMalformedSequence)
		}
	}
	return &root, nil
}

// SequencerName returns the name of the sequencer that ran the sequence.
func SequencerName(raw string) (string, error) {
	root, err := parse(raw)
	if err != nil {
		return "", err
	}
	return sequencerName(root)
}

func sequencerName(root *node) (string, error) {
	name := root.text("SequencerName")
	if name == "" {
		return "", xerrors.Errorf("could not find sequencer name: %w", spill.ErrMalformedSequence)
	}
	return name, nil
}

// EventTable returns the events of the sequence, in document order.
func EventTable(raw string) ([]spill.Event, error) {
	root, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return eventTable(root)
}

func eventTable(root *node) ([]spill.Event, error) {
	var evts []spill.Event
	err := root.walk(func(n *node) error {
		if n.XMLName.Local != "event" {
			return nil
		}
		evt := spill.Event{
			Name:        n.text("name"),
			Description: n.text("description"),
		}
		if evt.Name == "" || evt.Description == "" {
			return xerrors.Errorf("could not find event #%d name/description: %w", len(evts), spill.ErrMalformedSequence)
		}
		evts = append(evts, evt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evts, nil
}

// Parse decodes the sequencer log entry into a record.
func Parse(entry spill.LogEntry) (spill.Record, error) {
	rec := spill.Record{Timestamp: entry.Timestamp}
	root, err := parse(entry.XML)
	if err != nil {
		return rec, err
	}
	rec.Sequencer, err = sequencerName(root)
	if err != nil {
		return rec, err
	}
	rec.Events, err = eventTable(root)
	if err != nil {
		return rec, xerrors.Errorf("sequencer %q: %w", rec.Sequencer, err)
	}
	return rec, nil
}

// ParseLog decodes all the entries of a sequencer log.
// Any malformed entry fails the whole log.
func ParseLog(entries []spill.LogEntry) ([]spill.Record, error) {
	recs := make([]spill.Record, len(entries))
	for i, entry := range entries {
		rec, err := Parse(entry)
		if err != nil {
			return nil, xerrors.Errorf("could not parse sequencer log entry #%d (t=%v): %w", i, entry.Timestamp, err)
		}
		recs[i] = rec
	}
	return recs, nil
}

// Summary renders the dumps of an event table, one per line.
// A startDump immediately followed by the matching stopDump is rendered as
// its description; a dangling startDump as "Start <description>".
func Summary(evts []spill.Event) string {
	var dumps []string
	for _, evt := range evts {
		desc := Unquote(evt.Description)
		switch {
		case evt.Name == spill.StartDump:
			dumps = append(dumps, "Start "+desc)
		case evt.Name == spill.StopDump && len(dumps) > 0 && dumps[len(dumps)-1] == "Start "+desc:
			dumps[len(dumps)-1] = desc
		default:
			dumps = append(dumps, desc)
		}
	}
	return strings.Join(dumps, "\n")
}

// Unquote strips the double quotes surrounding an event description.
func Unquote(desc string) string {
	return strings.Trim(desc, `"`)
}
