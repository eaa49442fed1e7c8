// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iomux provides simple goroutine safe I/O primitives.
package iomux // import "github.com/go-daq/spill/internal/iomux"

import (
	"io"
	"sync"
)

// Writer is a goroutine-safe io.Writer.
// Message streams of sequencers processed concurrently share one Writer
// so that their lines are not interleaved.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	if w, ok := w.(*Writer); ok {
		return w
	}
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	n, err := w.w.Write(p)
	w.mu.Unlock()
	return n, err
}

// Sync flushes the underlying writer, if it can be flushed.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch ww := w.w.(type) {
	case interface{ Sync() error }:
		return ww.Sync()
	case interface{ Flush() error }:
		return ww.Flush()
	}
	return nil
}

var (
	_ io.Writer = (*Writer)(nil)
)
