// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"stbrun/cmd/stbrun/logging"
	"stbrun/device"
	"stbrun/script"
)

const (
	screenshotName = "screenshot.png" // fixed diagnostic screenshot name
	faillogName    = "faillog.txt"    // process snapshot saved alongside it
)

// report derives the run's outcome from e and returns the exit code. It
// prints the one-line FAIL summary to stdout, the stack and any artifact
// paths to the diagnostic stream, and saves the screenshot and process
// snapshot. sess is nil when the error occurred before a session existed.
// It is called at most once per run.
func report(ctx context.Context, cfg *Config, lg logging.Logger, locator string, sess device.Session, e *script.Error) int {
	msg := e.Reason
	if msg == "" && e.Kind == script.KindAssertion {
		// A bare assertion carries no message; fall back to the source
		// text of the failing statement.
		msg = sourceLine(e.File, e.Line)
	}

	// An explicit screenshot attached to the failure wins over the
	// session's most recent frame.
	shot := e.Screenshot
	if shot == nil && sess != nil {
		shot = sess.LastFrame()
	}
	if shot != nil {
		p := filepath.Join(cfg.outDir(), screenshotName)
		if err := os.WriteFile(p, shot, 0644); err != nil {
			lg.Log("Failed to save screenshot: ", err)
		} else {
			lg.Log("Saved screenshot to ", p)
		}
	}

	fmt.Fprintf(cfg.stdout(), "FAIL: %s: %s: %s\n", locator, e.Kind, msg)
	lg.Log(e.Stack)

	saveProcessSnapshot(ctx, cfg.outDir(), lg)

	if e.Failure {
		return StatusFailure
	}
	return StatusError
}

// sourceLine returns the trimmed source text of the given 1-based line,
// or "" if the file cannot be read.
func sourceLine(file string, line int) string {
	b, err := os.ReadFile(file)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(b), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

// saveProcessSnapshot writes a listing of the processes running on the
// test executor, to help debug failures caused by the rig rather than the
// device. Snapshot problems are only worth a debug message.
func saveProcessSnapshot(ctx context.Context, dir string, lg logging.Logger) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		lg.Debug("Failed to list processes: ", err)
		return
	}

	f, err := os.Create(filepath.Join(dir, faillogName))
	if err != nil {
		lg.Debug("Failed to create process snapshot: ", err)
		return
	}
	defer f.Close()

	for _, p := range procs {
		name, _ := p.NameWithContext(ctx)
		cmdline, _ := p.CmdlineWithContext(ctx)
		fmt.Fprintf(f, "%6d %-20s %s\n", p.Pid, name, cmdline)
	}
}
