// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// scriptExt is the extension required of test script files.
const scriptExt = ".go"

// LocatorError describes a malformed or unsupported locator token. It is
// always raised before any device resources are acquired.
type LocatorError struct {
	Token  string
	Reason string
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("bad locator %q: %s", e.Token, e.Reason)
}

// LoadError describes a failure to resolve a valid locator against the
// registry: the script was never registered, it lacks the requested
// routine, or it lacks a file-level body.
type LoadError struct {
	Token  string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %q: %s", e.Token, e.Reason)
}

// Locator identifies what to run: a script file and, optionally, one
// named routine inside it.
type Locator struct {
	// Token is the FILE[::SYMBOL] string the locator was parsed from.
	Token string
	// Path is the file path as given.
	Path string
	// Abs is the resolved absolute path of the file.
	Abs string
	// Symbol is the requested routine name; empty selects whole-file mode.
	Symbol string
}

func (l *Locator) String() string { return l.Token }

// ParseLocator parses and validates a FILE[::SYMBOL] token. The file must
// carry the test script extension and exist on disk; violations are
// reported as *LocatorError. No resource beyond the filesystem is touched.
func ParseLocator(token string) (*Locator, error) {
	l := &Locator{Token: token, Path: token}
	if i := strings.Index(token, "::"); i >= 0 {
		l.Path, l.Symbol = token[:i], token[i+2:]
		if l.Symbol == "" {
			return nil, &LocatorError{token, "empty routine name after \"::\""}
		}
	}
	if l.Path == "" {
		return nil, &LocatorError{token, "empty file path"}
	}
	if ext := filepath.Ext(l.Path); ext != scriptExt {
		return nil, &LocatorError{token, fmt.Sprintf("unsupported extension %q (want %q)", ext, scriptExt)}
	}

	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, &LocatorError{token, err.Error()}
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, &LocatorError{token, fmt.Sprintf("no such script: %v", err)}
	}
	l.Abs = abs
	return l, nil
}

// Target is the resolved, not-yet-executed runnable unit. Exactly one
// Target is created per harness invocation and it is never reused.
type Target struct {
	// Locator is the locator the target was resolved from.
	Locator *Locator
	// File is the absolute path of the target's source file.
	File string
	// Symbol is the routine name, or empty in whole-file mode.
	Symbol string
	// FirstLine is the first source line of the routine; 1 in whole-file mode.
	FirstLine int

	fn Func
}

// Resolve looks up l in the registry and returns the runnable target.
// Resolution has no side effects and does not execute anything; failures
// are reported as *LoadError.
func (r *Registry) Resolve(l *Locator) (*Target, error) {
	sc, ok := r.scripts[l.Abs]
	if !ok {
		return nil, &LoadError{l.Token, "script is not registered with the harness"}
	}

	if l.Symbol == "" {
		if sc.Main == nil {
			return nil, &LoadError{l.Token, "script has no file-level test body"}
		}
		return &Target{Locator: l, File: sc.file, FirstLine: 1, fn: sc.Main}, nil
	}

	ri, ok := sc.routines[l.Symbol]
	if !ok {
		return nil, &LoadError{l.Token, fmt.Sprintf("script has no routine %q", l.Symbol)}
	}
	return &Target{Locator: l, File: sc.file, Symbol: ri.name, FirstLine: ri.firstLine, fn: ri.fn}, nil
}
