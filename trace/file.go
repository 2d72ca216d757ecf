// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package trace

import (
	"compress/gzip"
	"io"
	"os"

	"stbrun/errors"
)

// FileSink is a Sink that saves the event stream to a file as
// gzip-compressed newline-delimited JSON.
type FileSink struct {
	f  *os.File
	zw *gzip.Writer
	w  *Writer
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates path (truncating an existing file) and returns a
// sink writing to it.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace file")
	}
	zw := gzip.NewWriter(f)
	return &FileSink{f: f, zw: zw, w: NewWriter(zw)}, nil
}

// WriteEvent writes ev to the compressed stream.
func (s *FileSink) WriteEvent(ev interface{}) error {
	return s.w.WriteEvent(ev)
}

// Close flushes the compressed stream and closes the file. Events written
// so far are preserved even if the run was aborted partway.
func (s *FileSink) Close() error {
	zerr := s.zw.Close()
	ferr := s.f.Close()
	if zerr != nil {
		return errors.Wrap(zerr, "failed to flush trace file")
	}
	return ferr
}

// OpenFile opens a trace file written by FileSink and returns a Reader
// over its decompressed contents, plus a closer for the underlying file.
func OpenFile(path string) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrap(err, "failed to read trace file")
	}
	return NewReader(zr), f, nil
}
