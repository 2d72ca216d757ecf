// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package run orchestrates a single test run: it owns the device session
// and the trace sink, resolves the locator, executes the target, and
// turns the outcome into a process exit code plus diagnostic artifacts.
//
// Per invocation the run moves through acquisition, loading and running,
// then tears down whatever was acquired in strict reverse order, exactly
// once, on every exit path. A locator or load failure never attaches the
// tracer; the trace artifact then contains no events at all.
package run

import (
	"context"
	"io"
	"log"
	"os"

	"stbrun/cmd/stbrun/logging"
	"stbrun/device"
	"stbrun/script"
	"stbrun/trace"
)

// Exit codes of a run.
const (
	// StatusSuccess means the target returned normally.
	StatusSuccess = 0
	// StatusFailure means the target raised a test failure: an explicit
	// failure signal or an assertion.
	StatusFailure = 1
	// StatusError covers everything else: locator and load errors, and
	// any other error escaping the target.
	StatusError = 2
)

// Config describes one run. Exactly one target is resolved and executed
// per Config; a Config is never reused.
type Config struct {
	// Locator is the FILE[::SYMBOL] token identifying what to run.
	Locator string
	// Args are forwarded to the target untouched.
	Args []string
	// Device configures the device session. nil means an empty config
	// (no capture, no control channel).
	Device *device.Config
	// SaveTrace, when non-empty, is the file the progress trace is saved
	// to. Empty disables tracing entirely.
	SaveTrace string
	// SaveVideo, when non-empty, is the file captured frames are recorded
	// to while the target runs.
	SaveVideo string
	// RestartOnFailure makes the harness power-cycle the device during
	// teardown when the run did not succeed.
	RestartOnFailure bool
	// Logger receives diagnostic output. nil logs to stderr.
	Logger logging.Logger
	// Registry resolves the locator. nil uses the global script registry.
	Registry *script.Registry
	// OutDir is the directory diagnostic artifacts (screenshot, process
	// snapshot) are written to. Empty means the working directory.
	OutDir string
	// Stdout is the stream the FAIL summary line is printed to. nil means
	// os.Stdout.
	Stdout io.Writer

	// OpenSession opens the device session. nil uses device.Open. Unit
	// tests inject fakes here.
	OpenSession func(context.Context, *device.Config) (device.Session, error)
	// NewSink opens the trace sink for SaveTrace. nil uses trace.NewFileSink.
	NewSink func(path string) (trace.Sink, error)
}

func (c *Config) logger() logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.NewSimple(os.Stderr, log.LstdFlags, false)
}

func (c *Config) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c *Config) outDir() string {
	if c.OutDir != "" {
		return c.OutDir
	}
	return "."
}

// Run performs one test run per cfg and returns the process exit code.
//
// The device session and the trace sink are each opened at most once and
// closed exactly once, in reverse order of acquisition, whatever the
// outcome. An error while closing a resource is logged and the remaining
// resources are still released; it never changes an already-decided exit
// code (some device state may leak in that case, which is accepted).
func Run(ctx context.Context, cfg *Config) int {
	lg := cfg.logger()

	reg := cfg.Registry
	if reg == nil {
		reg = script.GlobalRegistry()
	}

	// Locator validation happens before any resource acquisition: a bad
	// token must not cost a device session.
	loc, err := script.ParseLocator(cfg.Locator)
	if err != nil {
		return report(ctx, cfg, lg, cfg.Locator, nil, script.ExternalError(err))
	}

	open := cfg.OpenSession
	if open == nil {
		open = device.Open
	}
	dcfg := cfg.Device
	if dcfg == nil {
		dcfg = &device.Config{}
	}
	sess, err := open(ctx, dcfg)
	if err != nil {
		return report(ctx, cfg, lg, loc.String(), nil, script.ExternalError(err))
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			lg.Log("Failed to close device session: ", err)
		}
	}()

	var sink trace.Sink
	if cfg.SaveTrace != "" {
		newSink := cfg.NewSink
		if newSink == nil {
			newSink = func(path string) (trace.Sink, error) { return trace.NewFileSink(path) }
		}
		if sink, err = newSink(cfg.SaveTrace); err != nil {
			return report(ctx, cfg, lg, loc.String(), sess, script.ExternalError(err))
		}
		defer func() {
			if err := sink.Close(); err != nil {
				lg.Log("Failed to close trace sink: ", err)
			}
		}()
	}

	if cfg.SaveVideo != "" {
		vr, err := startVideoRecorder(cfg.SaveVideo, sess, lg)
		if err != nil {
			return report(ctx, cfg, lg, loc.String(), sess, script.ExternalError(err))
		}
		defer vr.stop()
	}

	// Loading. Failure here goes straight to the errored outcome: the
	// tracer is never attached and no trace events are emitted.
	tgt, err := reg.Resolve(loc)
	if err != nil {
		return report(ctx, cfg, lg, loc.String(), sess, script.ExternalError(err))
	}

	// Running.
	errs := tgt.Run(ctx, &script.RunConfig{
		Sink: sink,
		Args: cfg.Args,
		Log:  func(msg string) { lg.Log(msg) },
	})

	code := StatusSuccess
	if len(errs) > 0 {
		code = report(ctx, cfg, lg, loc.String(), sess, errs[0])
		for _, e := range errs[1:] {
			lg.Log("Additional error: ", e.Reason)
			lg.Log(e.Stack)
		}
	}

	if code != StatusSuccess && cfg.RestartOnFailure {
		lg.Log("Restarting device under test")
		if err := sess.PowerCycle(ctx); err != nil {
			lg.Log("Failed to restart device: ", err)
		}
	}
	return code
}
