// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package odb reads the Online DataBase (ODB) dump of a run and resolves
// symbolic channel names to Chronobox hardware addresses.
package odb // import "github.com/go-daq/spill/odb"

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"golang.org/x/xerrors"
)

// Document is a decoded ODB dump.
type Document struct {
	root interface{}
}

// Load decodes an ODB JSON dump.
// The leading comment lines ('#') written by MIDAS are skipped.
func Load(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("odb: could not read ODB dump: %w", err)
	}
	raw = skipComments(raw)

	var root interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	err = dec.Decode(&root)
	if err != nil {
		return nil, xerrors.Errorf("odb: could not decode ODB JSON: %w", err)
	}
	return &Document{root: root}, nil
}

func skipComments(raw []byte) []byte {
	for len(raw) > 0 {
		line := raw
		i := bytes.IndexByte(raw, '\n')
		if i >= 0 {
			line = raw[:i+1]
		}
		if !bytes.HasPrefix(bytes.TrimSpace(line), []byte("#")) {
			break
		}
		raw = raw[len(line):]
	}
	return raw
}

// Resolve returns the value pointed at by the JSON pointer ptr (RFC 6901),
// e.g. "/Equipment/cbtrg/Settings/names/0".
func (doc *Document) Resolve(ptr string) (interface{}, error) {
	p, err := jsonpointer.New(ptr)
	if err != nil {
		return nil, xerrors.Errorf("odb: invalid JSON pointer %q: %w", ptr, err)
	}

	// array indices with a leading zero are not valid RFC 6901 indices.
	cur := doc.root
	for _, tok := range p.DecodedTokens() {
		if _, ok := cur.([]interface{}); ok && len(tok) > 1 && tok[0] == '0' {
			return nil, xerrors.Errorf("odb: could not resolve %q: invalid index %q", ptr, tok)
		}
		cur, _, err = jsonpointer.GetForToken(cur, tok)
		if err != nil {
			break
		}
	}

	v, _, err := p.Get(doc.root)
	if err != nil {
		return nil, xerrors.Errorf("odb: could not resolve %q: %w", ptr, err)
	}
	return v, nil
}

// Settings extracts the channel names of the Chronobox boards from
// /Equipment/<board>/Settings/names.
// If no board is given, every equipment with a list of channel names is used.
func (doc *Document) Settings(boards ...string) (Settings, error) {
	if len(boards) == 0 {
		boards = doc.boards()
	}
	s := make(Settings, len(boards))
	for _, board := range boards {
		v, err := doc.Resolve(namesPtr(board))
		if err != nil {
			return nil, xerrors.Errorf("odb: could not find channel names of board %q: %w", board, err)
		}
		names, err := strs(v)
		if err != nil {
			return nil, xerrors.Errorf("odb: invalid channel names of board %q: %w", board, err)
		}
		s[board] = names
	}
	return s, nil
}

func (doc *Document) boards() []string {
	eqs, err := doc.Resolve("/Equipment")
	if err != nil {
		return nil
	}
	m, ok := eqs.(map[string]interface{})
	if !ok {
		return nil
	}
	var boards []string
	for name := range m {
		v, err := doc.Resolve(namesPtr(name))
		if err != nil {
			continue
		}
		if _, err := strs(v); err != nil {
			continue
		}
		boards = append(boards, name)
	}
	sort.Strings(boards)
	return boards
}

func namesPtr(board string) string {
	board = strings.NewReplacer("~", "~0", "/", "~1").Replace(board)
	return "/Equipment/" + board + "/Settings/names"
}

func strs(v interface{}) ([]string, error) {
	vs, ok := v.([]interface{})
	if !ok {
		return nil, xerrors.Errorf("expected a list, got %T", v)
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		s, ok := v.(string)
		if !ok {
			return nil, xerrors.Errorf("expected a string at index %d, got %T", i, v)
		}
		out[i] = s
	}
	return out, nil
}

// Print writes the value v, as resolved from a document, to w.
// Strings are written verbatim; other values are JSON-encoded,
// indented if pretty is set.
func Print(w io.Writer, v interface{}, pretty bool) error {
	bw := bufio.NewWriter(w)
	if s, ok := v.(string); ok {
		bw.WriteString(s + "\n")
		return bw.Flush()
	}
	enc := json.NewEncoder(bw)
	if pretty {
		enc.SetIndent("", "    ")
	}
	err := enc.Encode(v)
	if err != nil {
		return xerrors.Errorf("odb: could not encode value: %w", err)
	}
	return bw.Flush()
}
