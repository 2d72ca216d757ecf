// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"sync"
	"unicode"
	"unicode/utf8"

	"stbrun/errors/stack"
)

// Func is the code of a test script body or routine.
type Func func(context.Context, *State)

// Well-known error kinds reported in Error.Kind.
const (
	// KindFailure marks an explicit failure signal raised by script logic.
	KindFailure = "Failure"
	// KindAssertion marks a failed Assert call.
	KindAssertion = "Assertion"
	// KindPanic marks a panic with a non-error value.
	KindPanic = "Panic"
)

// Failure is the explicit failure signal: the device under test did not
// behave as the script expected, as opposed to an error in the script or
// the harness itself. Failures select exit code 1. Scripts may use it
// directly or declare their own error types wrapping one to get a more
// specific kind in the FAIL summary.
type Failure struct {
	Msg string
	// Screenshot optionally holds the captured frame that shows the
	// failure. When present it takes precedence over the device session's
	// last frame in the saved diagnostics.
	Screenshot []byte
}

func (f *Failure) Error() string { return f.Msg }

// Error describes one error reported while running a target.
type Error struct {
	// Reason is the human-readable message. It may be empty for a bare
	// assertion; the classifier then falls back to the source text of the
	// failing statement.
	Reason string
	// Kind names what was raised, e.g. "Failure", "Assertion" or the
	// concrete type of a wrapped error.
	Kind string
	// File and Line identify the statement that reported the error.
	File string
	Line int
	// Stack is the formatted call stack at the point of the report.
	Stack string
	// Failure is true for the test-failure category: an explicit failure
	// signal or an assertion. Everything else is an unhandled error.
	Failure bool
	// Screenshot is the frame attached to the failure, if any.
	Screenshot []byte
}

// State carries per-run state into the target. Its surface is patterned
// after Go's testing.T; additionally every method acts as a statement
// checkpoint for the progress trace.
type State struct {
	tgt   *Target
	tr    *tracer // nil when tracing is disabled
	args  []string
	logFn func(string)

	mu   sync.Mutex
	errs []*Error
}

// Args returns the command-line arguments that followed the locator,
// untouched by the harness.
func (s *State) Args() []string { return s.args }

// Checkpoint reports the calling statement to the progress trace. Calls
// from files other than the target's own source file are ignored, so
// helper packages may call it freely.
func (s *State) Checkpoint() {
	s.checkpoint(1)
}

func (s *State) checkpoint(skip int) {
	if s.tr == nil {
		return
	}
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok || file != s.tgt.File {
		return
	}
	s.tr.line(file, line)
}

// Log formats its arguments with default formatting and logs them.
func (s *State) Log(args ...interface{}) {
	s.checkpoint(1)
	s.log(fmt.Sprint(args...))
}

// Logf is like Log but formats its arguments as per fmt.Sprintf.
func (s *State) Logf(format string, args ...interface{}) {
	s.checkpoint(1)
	s.log(fmt.Sprintf(format, args...))
}

func (s *State) log(msg string) {
	if s.logFn != nil {
		s.logFn(msg)
	}
}

// Error reports a failure described by its arguments while letting the
// target continue executing.
func (s *State) Error(args ...interface{}) {
	s.checkpoint(1)
	fullMsg, lastMsg, err := formatError(args...)
	s.record(newError(err, fullMsg, lastMsg, 1))
}

// Errorf is like Error but formats its arguments as per fmt.Sprintf.
func (s *State) Errorf(format string, args ...interface{}) {
	s.checkpoint(1)
	fullMsg, lastMsg, err := formatErrorf(format, args...)
	s.record(newError(err, fullMsg, lastMsg, 1))
}

// Fatal reports a failure and immediately ends the target.
func (s *State) Fatal(args ...interface{}) {
	s.checkpoint(1)
	fullMsg, lastMsg, err := formatError(args...)
	s.record(newError(err, fullMsg, lastMsg, 1))
	runtime.Goexit()
}

// Fatalf is like Fatal but formats its arguments as per fmt.Sprintf.
func (s *State) Fatalf(format string, args ...interface{}) {
	s.checkpoint(1)
	fullMsg, lastMsg, err := formatErrorf(format, args...)
	s.record(newError(err, fullMsg, lastMsg, 1))
	runtime.Goexit()
}

// Assert ends the target with an assertion failure unless cond holds.
// With no message arguments the recorded reason is empty and the harness
// reports the source text of the failing statement instead.
func (s *State) Assert(cond bool, args ...interface{}) {
	s.checkpoint(1)
	if cond {
		return
	}
	e := &Error{
		Reason:  fmt.Sprint(args...),
		Kind:    KindAssertion,
		Failure: true,
	}
	_, e.File, e.Line, _ = runtime.Caller(1)
	e.Stack = fmt.Sprintf("%s\n%s", e.Reason, stack.New(1))
	s.record(e)
	runtime.Goexit()
}

// HasError reports whether the target has already reported errors.
func (s *State) HasError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs) > 0
}

// Errors returns the errors reported so far, in order.
func (s *State) Errors() []*Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Error(nil), s.errs...)
}

func (s *State) record(e *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, e)
}

// newError builds an Error from a report made skipFrames above the caller.
func newError(err error, fullMsg, lastMsg string, skipFrames int) *Error {
	// Also skip the newError frame itself.
	skipFrames++

	e := &Error{Reason: fullMsg}
	_, e.File, e.Line, _ = runtime.Caller(skipFrames)

	e.Stack = fmt.Sprintf("%s\n%s", lastMsg, stack.New(skipFrames))
	if err != nil {
		e.Stack += fmt.Sprintf("\n%+v", err)
	}

	e.Kind, e.Failure = classifyErr(err)
	if err != nil {
		var f *Failure
		if stderrors.As(err, &f) {
			e.Screenshot = f.Screenshot
		}
	}
	return e
}

// ExternalError converts an error raised outside the target (locator
// parsing, loading, resource acquisition) into an Error record so it can
// be classified and reported like a target error.
func ExternalError(err error) *Error {
	return newError(err, err.Error(), err.Error(), 1)
}

// classifyErr derives the kind name and failure category of a raised
// error. A nil error means the script signaled failure without an error
// object (e.g. s.Fatal("mismatch")), which is still the failure category.
func classifyErr(err error) (kind string, failure bool) {
	if err == nil {
		return KindFailure, true
	}
	var f *Failure
	failure = stderrors.As(err, &f)
	if name := exportedTypeName(err); name != "" {
		return name, failure
	}
	if failure {
		return KindFailure, true
	}
	return "Error", false
}

// exportedTypeName returns err's concrete type name if it is exported,
// and "" otherwise (anonymous or unexported implementation types).
func exportedTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(name); !unicode.IsUpper(r) {
		return ""
	}
	return name
}

// errorSuffix matches the well-known message suffixes stripped by formatError.
var errorSuffix = regexp.MustCompile(`(\s*:\s*|\s+)$`)

// errorfSuffix matches the well-known format suffix stripped by formatErrorf.
var errorfSuffix = regexp.MustCompile(`(:\s*|\s+)%v$`)

// formatError formats an error message using fmt.Sprint. For the common
// shape
//
//	s.Fatal("Failed to press key: ", err)
//
// it extracts the trailing error object and returns the message both with
// and without the error text appended, so the stack trace is not
// duplicated in the summary line.
func formatError(args ...interface{}) (fullMsg, lastMsg string, err error) {
	fullMsg = fmt.Sprint(args...)
	if len(args) == 1 {
		if e, ok := args[0].(error); ok {
			err = e
		}
	} else if len(args) >= 2 {
		if e, ok := args[len(args)-1].(error); ok {
			if str, ok := args[len(args)-2].(string); ok {
				if m := errorSuffix.FindStringIndex(str); m != nil {
					err = e
					args = append(args[:len(args)-2], str[:m[0]])
				}
			}
		}
	}
	lastMsg = fmt.Sprint(args...)
	return fullMsg, lastMsg, err
}

// formatErrorf is the Sprintf counterpart of formatError.
func formatErrorf(format string, args ...interface{}) (fullMsg, lastMsg string, err error) {
	fullMsg = fmt.Sprintf(format, args...)
	if len(args) >= 1 {
		if e, ok := args[len(args)-1].(error); ok {
			if m := errorfSuffix.FindStringIndex(format); m != nil {
				err = e
				args = args[:len(args)-1]
				format = format[:m[0]]
			}
		}
	}
	lastMsg = fmt.Sprintf(format, args...)
	return fullMsg, lastMsg, err
}
