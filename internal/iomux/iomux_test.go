// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iomux // import "github.com/go-daq/spill/internal/iomux"

import (
	"bufio"
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestConcurrentWrites(t *testing.T) {
	const (
		nprocs = 8
		nlines = 100
	)
	buf := new(bytes.Buffer)
	o := NewWriter(buf)

	var wg sync.WaitGroup
	wg.Add(nprocs)
	for i := 0; i < nprocs; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < nlines; j++ {
				o.Write([]byte("0123456789\n"))
			}
		}()
	}
	wg.Wait()

	if err := o.Sync(); err != nil {
		t.Fatalf("could not sync: %+v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), nprocs*nlines; got != want {
		t.Fatalf("invalid number of lines: got=%d, want=%d", got, want)
	}
	for i, line := range lines {
		if line != "0123456789" {
			t.Fatalf("line %d was interleaved: %q", i, line)
		}
	}
}

func TestSyncFlush(t *testing.T) {
	buf := new(bytes.Buffer)
	bw := bufio.NewWriter(buf)
	o := NewWriter(bw)
	o.Write([]byte("hello"))
	if got := buf.String(); got != "" {
		t.Fatalf("unexpected early flush: %q", got)
	}
	if err := o.Sync(); err != nil {
		t.Fatalf("could not sync: %+v", err)
	}
	if got, want := buf.String(), "hello"; got != want {
		t.Fatalf("invalid flushed content: got=%q, want=%q", got, want)
	}
	if NewWriter(o) != o {
		t.Fatalf("wrapping a Writer should be a no-op")
	}
}
