// Copyright 2018 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errors constructs errors that carry stack traces.
//
// Use this package instead of the standard errors and fmt packages when
// creating or wrapping errors in the harness and in test scripts. Errors
// built here record where they were created and chain their causes, which
// makes the diagnostic output of a failed run far easier to read.
//
//	errors.New("control channel closed")
//	errors.Wrapf(err, "failed to press %q", key)
//
// The full chain, including per-error stack traces, is printed by the
// "%+v" fmt verb.
package errors

import (
	"fmt"
	"io"
	"strings"

	"stbrun/errors/stack"
)

// impl is the concrete error type constructed by this package.
type impl struct {
	msg   string      // message prepended to the cause's message
	stk   stack.Stack // where this error was created
	cause error       // wrapped error, or nil
}

// Error implements the error interface.
func (e *impl) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

// Unwrap returns the wrapped error, if any.
func (e *impl) Unwrap() error {
	return e.cause
}

// Format implements fmt.Formatter. "%+v" prints the error chain with a
// stack trace for every error created by this package.
func (e *impl) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, formatChain(e))
	} else {
		io.WriteString(s, e.Error())
	}
}

// formatChain renders a chain of errors, innermost last.
func formatChain(err error) string {
	var chain []string
	for err != nil {
		if e, ok := err.(*impl); ok {
			chain = append(chain, fmt.Sprintf("%s\n%v", e.msg, e.stk))
			err = e.cause
		} else {
			chain = append(chain, fmt.Sprintf("%s\n\tat ???", err.Error()))
			err = nil
		}
	}
	return strings.Join(chain, "\n")
}

// New creates an error with the given message, recording the caller's
// location.
func New(msg string) error {
	return &impl{msg, stack.New(1), nil}
}

// Errorf creates an error with a formatted message, recording the caller's
// location.
func Errorf(format string, args ...interface{}) error {
	return &impl{fmt.Sprintf(format, args...), stack.New(1), nil}
}

// Wrap creates an error that adds msg as context to cause. If cause is nil
// the result behaves like New.
func Wrap(cause error, msg string) error {
	return &impl{msg, stack.New(1), cause}
}

// Wrapf is like Wrap but formats its message.
func Wrapf(cause error, format string, args ...interface{}) error {
	return &impl{fmt.Sprintf(format, args...), stack.New(1), cause}
}
