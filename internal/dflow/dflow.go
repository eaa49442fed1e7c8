// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dflow exposes functions and types to represent the data-flow
// dependency graph of the stages of a pipeline.
package dflow // import "github.com/go-daq/spill/internal/dflow"

import (
	"sort"
	"strings"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph is the set of stages of a pipeline, connected by the named
// relations they consume and produce.
type Graph struct {
	nodes map[string]*node
	names []string // nodes, in insertion order
}

type node struct {
	id   int64
	name string
	in   []string
	out  []string
}

func (n node) ID() int64 { return n.id }

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Add declares the stage name, consuming the relations in and producing
// the relations out.
func (g *Graph) Add(name string, in []string, out []string) error {
	if _, dup := g.nodes[name]; dup {
		return xerrors.Errorf("duplicate node %q", name)
	}

	if dups := dups(in); len(dups) > 0 {
		return xerrors.Errorf("duplicate inputs for node %q: %v", name, dups)
	}
	if dups := dups(out); len(dups) > 0 {
		return xerrors.Errorf("duplicate outputs for node %q: %v", name, dups)
	}

	n := &node{
		name: name,
		id:   int64(len(g.nodes) + 1), // id must not be zero
		in:   append([]string(nil), in...),
		out:  append([]string(nil), out...),
	}
	g.nodes[name] = n
	g.names = append(g.names, name)

	return nil
}

func (g *Graph) build() (*simple.DirectedGraph, error) {
	names := make([]string, len(g.names))
	copy(names, g.names)
	sort.Strings(names)

	// make sure all inputs of nodes are available as outputs of another node
	// detect whether an output is labeled as such by only 1 node.
	out := make(map[string]string) // outport-name -> node-name
	for _, name := range names {
		node := g.nodes[name]
		for _, k := range node.out {
			n, dup := out[k]
			if dup {
				return nil, xerrors.Errorf("node %q already declared %q as its output (dup-node=%q)", n, k, name)
			}
			out[k] = name
		}
	}

	dg := simple.NewDirectedGraph()
	for _, name := range names {
		dg.AddNode(g.nodes[name])
	}

	for _, name := range names {
		node := g.nodes[name]
		for _, k := range node.in {
			src, ok := out[k]
			if !ok {
				return nil, xerrors.Errorf("node %q declared %q as input but NO KNOWN producer for it", name, k)
			}
			if src == name {
				return nil, xerrors.Errorf("node %q consumes its own output %q", name, k)
			}
			from := g.nodes[src]
			if dg.HasEdgeFromTo(from.ID(), node.ID()) {
				continue
			}
			dg.SetEdge(simple.Edge{F: from, T: node})
		}
	}

	return dg, nil
}

// Analyze checks that every consumed relation has exactly one producer
// and that the graph has no cycle.
func (g *Graph) Analyze() error {
	dg, err := g.build()
	if err != nil {
		return xerrors.Errorf("could not build graph for analysis: %w", err)
	}

	return g.check(dg)
}

func (g *Graph) check(dg *simple.DirectedGraph) error {
	sccs := topo.TarjanSCC(dg)
	for _, c := range sccs {
		if len(c) == 1 {
			continue
		}
		cycle := make([]string, 0, len(c))
		for _, n := range c {
			cycle = append(cycle, n.(*node).name)
		}
		sort.Strings(cycle)
		return xerrors.Errorf("cycle detected: %v", strings.Join(cycle, " -> "))
	}
	return nil
}

// Sort returns the stages in an execution order: every stage comes after
// the producers of its inputs. Independent stages keep their insertion order.
func (g *Graph) Sort() ([]string, error) {
	dg, err := g.build()
	if err != nil {
		return nil, xerrors.Errorf("could not build graph for sorting: %w", err)
	}
	err = g.check(dg)
	if err != nil {
		return nil, err
	}

	nodes, err := topo.SortStabilized(dg, func(ns []graph.Node) {
		sort.Slice(ns, func(i, j int) bool { return ns[i].ID() < ns[j].ID() })
	})
	if err != nil {
		return nil, xerrors.Errorf("could not sort graph: %w", err)
	}

	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.(*node).name
	}
	return names, nil
}

func dups(vs []string) []string {
	var (
		dups []string
		set  = make(map[string]struct{}, len(vs))
	)
	for _, v := range vs {
		if _, dup := set[v]; dup {
			dups = append(dups, v)
			continue
		}
		set[v] = struct{}{}
	}
	return dups
}

var (
	_ graph.Node = (*node)(nil)
)
