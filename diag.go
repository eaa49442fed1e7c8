// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spill // import "github.com/go-daq/spill"

import (
	"fmt"
	"sync"
)

// Diagnostic is a non-fatal condition met while deriving the spill log.
// The subset of the run it concerns is absent from the spill log.
type Diagnostic struct {
	Sequencer string // empty when the condition is not tied to a sequencer
	Stage     string
	Msg       string
}

func (d Diagnostic) String() string {
	if d.Sequencer == "" {
		return fmt.Sprintf("[%s] %s", d.Stage, d.Msg)
	}
	return fmt.Sprintf("[%s] sequencer %q: %s", d.Stage, d.Sequencer, d.Msg)
}

// Diagnostics is a goroutine-safe collection of diagnostics.
type Diagnostics struct {
	mu sync.Mutex
	ds []Diagnostic
}

func (ds *Diagnostics) Add(d Diagnostic) {
	ds.mu.Lock()
	ds.ds = append(ds.ds, d)
	ds.mu.Unlock()
}

// Merge appends the diagnostics of o, in their emission order.
func (ds *Diagnostics) Merge(o *Diagnostics) {
	if o == nil {
		return
	}
	vs := o.List()
	ds.mu.Lock()
	ds.ds = append(ds.ds, vs...)
	ds.mu.Unlock()
}

// List returns a copy of the diagnostics, in emission order.
func (ds *Diagnostics) List() []Diagnostic {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make([]Diagnostic, len(ds.ds))
	copy(out, ds.ds)
	return out
}

func (ds *Diagnostics) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.ds)
}
