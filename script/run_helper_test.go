// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

import "context"

// This file deliberately holds helpers for run_test.go: statements
// executed here belong to a different source file than the registered
// target, so the tracer must never report them.

// HelperRoutine exists to be registered from a file other than its own.
func HelperRoutine(ctx context.Context, s *State) {}

// checkpointTwice reports two statement checkpoints from this file.
func checkpointTwice(s *State) {
	s.Checkpoint()
	s.Checkpoint()
}
