// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package demo contains a smoke-test script for exercising the harness
// without real hardware, typically with the "test" capture source.
package demo

import (
	"context"

	"stbrun/script"
)

func init() {
	script.Register(&script.Script{
		Main:     run,
		Routines: []script.Func{Checkpoints, AlwaysFails},
	})
}

// run is the whole-file test body.
func run(ctx context.Context, s *script.State) {
	s.Log("Demo script running")
	s.Checkpoint()
	s.Logf("Got %d script argument(s)", len(s.Args()))
}

// Checkpoints emits a handful of line events for inspecting trace output.
func Checkpoints(ctx context.Context, s *script.State) {
	s.Checkpoint()
	s.Checkpoint()
	s.Checkpoint()
	s.Log("Checkpoints done")
}

// AlwaysFails raises an explicit failure, for exercising failure
// diagnostics end to end.
func AlwaysFails(ctx context.Context, s *script.State) {
	s.Checkpoint()
	s.Fatal(&script.Failure{Msg: "demo failure requested"})
}
