// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

import (
	"context"
	"fmt"

	"code.cloudfoundry.org/clock"

	"stbrun/errors/stack"
	"stbrun/trace"
)

// clk is replaced in unit tests to use fake clocks.
var clk = clock.NewClock()

// RunConfig configures a single execution of a Target.
type RunConfig struct {
	// Sink receives the run's ordered progress events. A nil Sink disables
	// tracing entirely; the target then runs with no instrumentation
	// overhead.
	Sink trace.Sink
	// Args are the command-line arguments that followed the locator,
	// forwarded to the target untouched.
	Args []string
	// Log is called with informational messages from the target and with
	// harness warnings. May be nil.
	Log func(msg string)
}

// Run executes the target once and returns the errors it reported, in
// order. An empty slice means the run completed.
//
// When cfg.Sink is set, exactly one Starting event is written before the
// target is invoked and exactly one Ended event after it returns or
// raises, whatever the outcome; in between, a Line event is written for
// every checkpointed statement in the target's own source file. Events
// are delivered inline, before the corresponding statement's side effects
// become externally observable.
//
// The target runs on its own goroutine so State.Fatal can stop it with
// runtime.Goexit, but Run blocks until it finishes; execution remains
// strictly sequential.
func (tgt *Target) Run(ctx context.Context, cfg *RunConfig) []*Error {
	s := &State{tgt: tgt, args: cfg.Args, logFn: cfg.Log}
	if cfg.Sink != nil {
		s.tr = &tracer{sink: cfg.Sink, log: cfg.Log}
		s.tr.starting(tgt)
		defer s.tr.ended()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				s.record(errorFromPanic(r))
			}
		}()
		tgt.fn(ctx, s)
	}()
	<-done

	return s.Errors()
}

// errorFromPanic converts a value recovered from a panicking target into
// an Error. A panic carrying an explicit Failure keeps the failure
// category; any other panic is an unhandled error.
func errorFromPanic(r interface{}) *Error {
	if err, ok := r.(error); ok {
		e := newError(err, err.Error(), err.Error(), 3)
		return e
	}
	msg := fmt.Sprint(r)
	return &Error{
		Reason: msg,
		Kind:   KindPanic,
		Stack:  fmt.Sprintf("%s\n%s", msg, stack.New(3)),
	}
}

// tracer forwards progress events to a sink. Sink write errors are logged
// and otherwise ignored; a broken sink never aborts the run.
type tracer struct {
	sink trace.Sink
	log  func(string)
}

func (t *tracer) write(ev interface{}) {
	if err := t.sink.WriteEvent(ev); err != nil && t.log != nil {
		t.log("Failed to write trace event: " + err.Error())
	}
}

func (t *tracer) starting(tgt *Target) {
	t.write(&trace.Starting{
		Time:      clk.Now(),
		Locator:   tgt.Locator.String(),
		File:      tgt.File,
		Symbol:    tgt.Symbol,
		FirstLine: tgt.FirstLine,
	})
}

func (t *tracer) line(file string, num int) {
	t.write(&trace.Line{Time: clk.Now(), File: file, Number: num})
}

func (t *tracer) ended() {
	t.write(&trace.Ended{Time: clk.Now()})
}
