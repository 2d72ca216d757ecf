// Copyright 2018 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"stbrun/errors"
)

func TestNew(t *testing.T) {
	err := errors.New("meow")
	if s := err.Error(); s != "meow" {
		t.Errorf("Error() = %q; want %q", s, "meow")
	}
}

func TestErrorf(t *testing.T) {
	err := errors.Errorf("meow %d", 42)
	if s := err.Error(); s != "meow 42" {
		t.Errorf("Error() = %q; want %q", s, "meow 42")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("meow")
	err := errors.Wrap(cause, "woof")
	if s := err.Error(); s != "woof: meow" {
		t.Errorf("Error() = %q; want %q", s, "woof: meow")
	}
	if !stderrors.Is(err, cause) {
		t.Error("Is(err, cause) = false; want true")
	}
}

func TestWrapNil(t *testing.T) {
	err := errors.Wrap(nil, "woof")
	if s := err.Error(); s != "woof" {
		t.Errorf("Error() = %q; want %q", s, "woof")
	}
}

func TestFormatChain(t *testing.T) {
	cause := errors.New("meow")
	err := errors.Wrapf(cause, "woof %d", 42)

	s := fmt.Sprintf("%+v", err)
	for _, want := range []string{"woof 42", "meow", "\tat "} {
		if !strings.Contains(s, want) {
			t.Errorf("%%+v output %q doesn't contain %q", s, want)
		}
	}
	if s := fmt.Sprintf("%v", err); s != "woof 42: meow" {
		t.Errorf("%%v output = %q; want %q", s, "woof 42: meow")
	}
}
