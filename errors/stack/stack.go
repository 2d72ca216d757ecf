// Copyright 2018 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stack captures and formats stack traces.
// Test scripts should not use this package directly; the errors package
// records a stack for every error it constructs.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	maxDepth = 10 // frames recorded per trace

	ellipsis = "\t..." // trailing line added when a trace is truncated
)

// Stack holds a snapshot of program counters.
type Stack []uintptr

// New captures the current stack trace. skip is the number of frames to
// omit; skip=0 records the New call itself as the innermost frame.
func New(skip int) Stack {
	pc := make([]uintptr, maxDepth+1)
	pc = pc[:runtime.Callers(skip+2, pc)]
	return Stack(pc)
}

// String formats the trace as human-friendly text, one frame per line.
func (s Stack) String() string {
	var lines []string

	// runtime.CallersFrames is needed to interpret the counters correctly
	// in the presence of inlining: https://github.com/golang/go/issues/19426
	cf := runtime.CallersFrames(s)
	for {
		f, more := cf.Next()
		lines = append(lines, fmt.Sprintf("\tat %s (%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		if !more {
			break
		}
		if len(lines) >= maxDepth {
			lines = append(lines, ellipsis)
			break
		}
	}
	return strings.Join(lines, "\n")
}
