// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dflow // import "github.com/go-daq/spill/internal/dflow"

import (
	"reflect"
	"strings"
	"testing"
)

type nodeT struct {
	name string
	in   []string
	out  []string
}

func newGraph(t *testing.T, nodes []nodeT) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		err := g.Add(n.name, n.in, n.out)
		if err != nil {
			t.Fatalf("could not add node %q: %+v", n.name, err)
		}
	}
	return g
}

func TestGraph(t *testing.T) {
	g := newGraph(t, []nodeT{
		{name: "n1", in: []string{"A", "B"}, out: []string{"C"}},
		{name: "n2", out: []string{"A"}},
		{name: "n3", out: []string{"B", "E"}},
		{name: "n4", in: []string{"C"}, out: []string{"D"}},
		{name: "n5", in: []string{"D", "E"}},
	})

	if !g.Has("n3") || g.Has("n6") {
		t.Fatalf("invalid node lookup")
	}

	err := g.Analyze()
	if err != nil {
		t.Fatalf("could not analyze graph: %+v", err)
	}

	order, err := g.Sort()
	if err != nil {
		t.Fatalf("could not sort graph: %+v", err)
	}
	if got, want := len(order), 5; got != want {
		t.Fatalf("invalid number of sorted nodes: got=%d, want=%d", got, want)
	}
	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	for _, edge := range [][2]string{
		{"n2", "n1"}, {"n3", "n1"}, {"n1", "n4"}, {"n4", "n5"}, {"n3", "n5"},
	} {
		if pos[edge[0]] > pos[edge[1]] {
			t.Fatalf("node %q sorted after %q: %v", edge[0], edge[1], order)
		}
	}

	again, err := g.Sort()
	if err != nil {
		t.Fatalf("could not sort graph: %+v", err)
	}
	if !reflect.DeepEqual(again, order) {
		t.Fatalf("non-deterministic sort:\ngot= %v\nwant=%v", again, order)
	}
}

func TestGraphChain(t *testing.T) {
	g := newGraph(t, []nodeT{
		{name: "aggregate", in: []string{"windows", "hits"}, out: []string{"table"}},
		{name: "inputs", out: []string{"log", "hits"}},
		{name: "windows", in: []string{"synced", "hits"}, out: []string{"windows"}},
		{name: "extract", in: []string{"log"}, out: []string{"records"}},
		{name: "sync", in: []string{"records", "hits"}, out: []string{"synced"}},
	})
	got, err := g.Sort()
	if err != nil {
		t.Fatalf("could not sort graph: %+v", err)
	}
	want := []string{"inputs", "extract", "sync", "windows", "aggregate"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid order:\ngot= %v\nwant=%v", got, want)
	}
}

func TestGraphWithCycle(t *testing.T) {
	g := newGraph(t, []nodeT{
		{name: "n1", in: []string{"A", "B"}, out: []string{"C"}},
		{name: "n2", out: []string{"A"}},
		{name: "n3", in: []string{"D"}, out: []string{"B"}},
		{name: "n4", in: []string{"C"}, out: []string{"D"}},
	})

	err := g.Analyze()
	if err == nil {
		t.Fatalf("expected a cycle")
	}
	if got, want := err.Error(), "cycle detected: n1 -> n3 -> n4"; got != want {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
	}

	_, err = g.Sort()
	if err == nil {
		t.Fatalf("expected a cycle")
	}
}

func TestGraphErrors(t *testing.T) {
	g := New()
	for _, tt := range []struct {
		node nodeT
		err  string
	}{
		{
			node: nodeT{name: "n1", out: []string{"A"}},
		},
		{
			node: nodeT{name: "n1", out: []string{"B"}},
			err:  `duplicate node "n1"`,
		},
		{
			node: nodeT{name: "n2", in: []string{"A", "A"}},
			err:  `duplicate inputs for node "n2": [A]`,
		},
		{
			node: nodeT{name: "n3", out: []string{"C", "C"}},
			err:  `duplicate outputs for node "n3": [C]`,
		},
	} {
		err := g.Add(tt.node.name, tt.node.in, tt.node.out)
		switch {
		case err == nil && tt.err == "":
			// ok
		case err != nil && tt.err != "":
			if got, want := err.Error(), tt.err; got != want {
				t.Fatalf("invalid error for node %q:\ngot = %v\nwant= %v\n", tt.node.name, got, want)
			}
		case err == nil:
			t.Fatalf("expected an error for node %q", tt.node.name)
		default:
			t.Fatalf("could not add node %q: %+v", tt.node.name, err)
		}
	}

	for _, tt := range []struct {
		nodes []nodeT
		err   string
	}{
		{
			nodes: []nodeT{
				{name: "n1", out: []string{"A"}},
				{name: "n2", out: []string{"A"}},
			},
			err: `node "n1" already declared "A" as its output (dup-node="n2")`,
		},
		{
			nodes: []nodeT{
				{name: "n1", in: []string{"X"}},
			},
			err: `node "n1" declared "X" as input but NO KNOWN producer for it`,
		},
		{
			nodes: []nodeT{
				{name: "n1", in: []string{"A"}, out: []string{"A"}},
			},
			err: `node "n1" consumes its own output "A"`,
		},
	} {
		err := newGraph(t, tt.nodes).Analyze()
		if err == nil || !strings.Contains(err.Error(), tt.err) {
			t.Fatalf("invalid error:\ngot = %v\nwant= %v", err, tt.err)
		}
	}
}
