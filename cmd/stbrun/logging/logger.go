// Copyright 2017 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging is used by the stbrun executable to write informational
// and diagnostic output.
package logging

import (
	"io"
	"log"
)

// Logger is the interface used for logging by the stbrun executable. It
// carries the run's diagnostic stream: failure stacks, screenshot paths
// and teardown warnings all go here, never to stdout.
type Logger interface {
	// Log formats args using default formatting and logs them unconditionally.
	Log(args ...interface{})
	// Logf is similar to Log but formats args as per fmt.Sprintf.
	Logf(format string, args ...interface{})

	// Debug formats args using default formatting and logs them only in
	// verbose mode.
	Debug(args ...interface{})
	// Debugf is similar to Debug but formats args as per fmt.Sprintf.
	Debugf(format string, args ...interface{})
}

// simple is a Logger that writes to an io.Writer through the log package.
type simple struct {
	lg      *log.Logger
	verbose bool
}

// NewSimple returns a Logger writing to w. flag contains logging
// properties passed to log.New. Debug messages are dropped unless verbose
// is true.
func NewSimple(w io.Writer, flag int, verbose bool) Logger {
	return &simple{lg: log.New(w, "", flag), verbose: verbose}
}

func (s *simple) Log(args ...interface{})                 { s.lg.Print(args...) }
func (s *simple) Logf(format string, args ...interface{}) { s.lg.Printf(format, args...) }

func (s *simple) Debug(args ...interface{}) {
	if s.verbose {
		s.lg.Print(args...)
	}
}

func (s *simple) Debugf(format string, args ...interface{}) {
	if s.verbose {
		s.lg.Printf(format, args...)
	}
}

// Discard returns a Logger that drops all messages. It is used by unit
// tests that don't care about diagnostic output.
func Discard() Logger {
	return &simple{lg: log.New(io.Discard, "", 0)}
}
