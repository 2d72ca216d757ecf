// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

import (
	"bytes"
	"context"
	"testing"

	"stbrun/trace"
)

// testSink records the events written to it.
type testSink struct {
	evs    []interface{}
	closed int
}

func (s *testSink) WriteEvent(ev interface{}) error { s.evs = append(s.evs, ev); return nil }
func (s *testSink) Close() error                    { s.closed++; return nil }

// LowAudio is a script-defined failure kind wrapping the generic signal.
type LowAudio struct{ cause *Failure }

func (e *LowAudio) Error() string { return e.cause.Msg }
func (e *LowAudio) Unwrap() error { return e.cause }

// PipeError is an exported error type outside the failure category.
type PipeError struct{}

func (e *PipeError) Error() string { return "pipe burst" }

func TracedRoutine(ctx context.Context, s *State) {
	s.Checkpoint()     // traced-first
	checkpointTwice(s) // helper lines must not be reported
	s.Log("greetings") // traced-second
}

func ExplicitFailure(ctx context.Context, s *State) {
	s.Fatal(&Failure{Msg: "no play button", Screenshot: []byte{0x89, 0x50}})
}

func BareAssertion(ctx context.Context, s *State) {
	s.Assert(false)
}

func CustomFailure(ctx context.Context, s *State) {
	s.Fatal(&LowAudio{&Failure{Msg: "audio level too low"}})
}

func PlumbingError(ctx context.Context, s *State) {
	s.Fatal(&PipeError{})
}

func Panics(ctx context.Context, s *State) {
	panic("zap")
}

func PanicsTyped(ctx context.Context, s *State) {
	panic(&PipeError{})
}

func TwoErrors(ctx context.Context, s *State) {
	s.Error("first problem")
	s.Error("second problem")
}

// resolveRoutine registers this file's routines and resolves sym.
func resolveRoutine(t *testing.T, sym string) *Target {
	t.Helper()
	file := thisFile(t)
	reg := NewRegistry()
	err := reg.Add(&Script{Routines: []Func{
		TracedRoutine, ExplicitFailure, BareAssertion, CustomFailure,
		PlumbingError, Panics, PanicsTyped, TwoErrors,
	}})
	if err != nil {
		t.Fatal("Add() failed: ", err)
	}
	tgt, err := reg.Resolve(&Locator{Token: file + "::" + sym, Path: file, Abs: file, Symbol: sym})
	if err != nil {
		t.Fatal("Resolve() failed: ", err)
	}
	return tgt
}

func TestRunTraces(t *testing.T) {
	file := thisFile(t)
	tgt := resolveRoutine(t, "TracedRoutine")
	sink := &testSink{}

	if errs := tgt.Run(context.Background(), &RunConfig{Sink: sink}); len(errs) > 0 {
		t.Fatal("Run() reported errors: ", errs)
	}

	if len(sink.evs) != 4 {
		t.Fatalf("Run() emitted %d events (%v); want 4", len(sink.evs), sink.evs)
	}
	st, ok := sink.evs[0].(*trace.Starting)
	if !ok {
		t.Fatalf("First event is %T; want *trace.Starting", sink.evs[0])
	}
	wantFirst := lineOf(t, file, "func TracedRoutine(")
	if st.File != file || st.Symbol != "TracedRoutine" || st.FirstLine != wantFirst {
		t.Errorf("Starting = {File: %q, Symbol: %q, FirstLine: %d}; want {%q, \"TracedRoutine\", %d}",
			st.File, st.Symbol, st.FirstLine, file, wantFirst)
	}
	if _, ok := sink.evs[3].(*trace.Ended); !ok {
		t.Errorf("Last event is %T; want *trace.Ended", sink.evs[3])
	}

	wantLines := []int{lineOf(t, file, "traced-first"), lineOf(t, file, "traced-second")}
	for i, want := range wantLines {
		ln, ok := sink.evs[i+1].(*trace.Line)
		if !ok {
			t.Fatalf("Event %d is %T; want *trace.Line", i+1, sink.evs[i+1])
		}
		if ln.File != file || ln.Number != want {
			t.Errorf("Line %d = %s:%d; want %s:%d", i, ln.File, ln.Number, file, want)
		}
	}
}

func TestRunTracesFailedTarget(t *testing.T) {
	tgt := resolveRoutine(t, "ExplicitFailure")
	sink := &testSink{}

	if errs := tgt.Run(context.Background(), &RunConfig{Sink: sink}); len(errs) != 1 {
		t.Fatal("Run() didn't report exactly one error: ", errs)
	}

	// Starting and Ended are emitted exactly once even when the target raises.
	if n := len(sink.evs); n < 2 {
		t.Fatalf("Run() emitted %d events; want at least 2", n)
	}
	if _, ok := sink.evs[0].(*trace.Starting); !ok {
		t.Errorf("First event is %T; want *trace.Starting", sink.evs[0])
	}
	if _, ok := sink.evs[len(sink.evs)-1].(*trace.Ended); !ok {
		t.Errorf("Last event is %T; want *trace.Ended", sink.evs[len(sink.evs)-1])
	}
}

func TestRunWithoutSink(t *testing.T) {
	tgt := resolveRoutine(t, "TracedRoutine")
	if errs := tgt.Run(context.Background(), &RunConfig{}); len(errs) > 0 {
		t.Fatal("Run() reported errors: ", errs)
	}
}

func TestRunClassification(t *testing.T) {
	file := thisFile(t)
	for _, tc := range []struct {
		sym         string
		wantKind    string
		wantFailure bool
		wantReason  string
	}{
		{"ExplicitFailure", KindFailure, true, "no play button"},
		{"BareAssertion", KindAssertion, true, ""},
		{"CustomFailure", "LowAudio", true, "audio level too low"},
		{"PlumbingError", "PipeError", false, "pipe burst"},
		{"Panics", KindPanic, false, "zap"},
		{"PanicsTyped", "PipeError", false, "pipe burst"},
	} {
		tgt := resolveRoutine(t, tc.sym)
		errs := tgt.Run(context.Background(), &RunConfig{})
		if len(errs) != 1 {
			t.Errorf("%s: Run() reported %d errors (%v); want 1", tc.sym, len(errs), errs)
			continue
		}
		e := errs[0]
		if e.Kind != tc.wantKind || e.Failure != tc.wantFailure || e.Reason != tc.wantReason {
			t.Errorf("%s: got {Kind: %q, Failure: %v, Reason: %q}; want {%q, %v, %q}",
				tc.sym, e.Kind, e.Failure, e.Reason, tc.wantKind, tc.wantFailure, tc.wantReason)
		}
	}

	// A bare assertion records where it failed so the harness can recover
	// the statement's source text.
	tgt := resolveRoutine(t, "BareAssertion")
	e := tgt.Run(context.Background(), &RunConfig{})[0]
	if want := lineOf(t, file, "s.Assert(false)"); e.File != file || e.Line != want {
		t.Errorf("Assertion location = %s:%d; want %s:%d", e.File, e.Line, file, want)
	}
}

func TestRunScreenshotAttachment(t *testing.T) {
	tgt := resolveRoutine(t, "ExplicitFailure")
	errs := tgt.Run(context.Background(), &RunConfig{})
	if len(errs) != 1 {
		t.Fatal("Run() didn't report exactly one error: ", errs)
	}
	if !bytes.Equal(errs[0].Screenshot, []byte{0x89, 0x50}) {
		t.Errorf("Screenshot = %v; want the frame attached to the failure", errs[0].Screenshot)
	}
}

func TestRunNonFatalErrors(t *testing.T) {
	tgt := resolveRoutine(t, "TwoErrors")
	errs := tgt.Run(context.Background(), &RunConfig{})
	if len(errs) != 2 {
		t.Fatalf("Run() reported %d errors (%v); want 2", len(errs), errs)
	}
	for i, want := range []string{"first problem", "second problem"} {
		if errs[i].Reason != want {
			t.Errorf("Error %d reason = %q; want %q", i, errs[i].Reason, want)
		}
		if !errs[i].Failure {
			t.Errorf("Error %d not in the failure category", i)
		}
	}
}
