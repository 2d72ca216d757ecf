// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package trace

import (
	"bytes"
	"path/filepath"
	gotesting "testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"stbrun/testutil"
)

func TestWriteAndRead(t *gotesting.T) {
	evs := []interface{}{
		&Starting{Time: time.Unix(1, 0), Locator: "menu.go::OpenMenu", File: "/tests/menu.go", Symbol: "OpenMenu", FirstLine: 12},
		&Line{Time: time.Unix(2, 0), File: "/tests/menu.go", Number: 13},
		&Line{Time: time.Unix(3, 0), File: "/tests/menu.go", Number: 15},
		&Ended{Time: time.Unix(4, 0)},
	}

	b := bytes.Buffer{}
	tw := NewWriter(&b)
	for _, ev := range evs {
		if err := tw.WriteEvent(ev); err != nil {
			t.Errorf("WriteEvent(%v) failed: %v", ev, err)
		}
	}

	act := make([]interface{}, 0)
	tr := NewReader(&b)
	for tr.More() {
		ev, err := tr.ReadEvent()
		if err != nil {
			t.Fatalf("ReadEvent() failed on %d: %v", len(act), err)
		}
		act = append(act, ev)
	}
	if diff := cmp.Diff(act, evs); diff != "" {
		t.Errorf("Read events mismatch (-got +want):\n%s", diff)
	}
}

func TestWriteEventUnknownType(t *gotesting.T) {
	tw := NewWriter(&bytes.Buffer{})
	if err := tw.WriteEvent(struct{}{}); err == nil {
		t.Error("WriteEvent() unexpectedly succeeded for unknown type")
	}
}

func TestFileSink(t *gotesting.T) {
	td := testutil.TempDir(t)
	path := filepath.Join(td, "trace.gz")

	s, err := NewFileSink(path)
	if err != nil {
		t.Fatal("NewFileSink() failed: ", err)
	}
	evs := []interface{}{
		&Starting{Time: time.Unix(1, 0), Locator: "power.go", File: "/tests/power.go", FirstLine: 1},
		&Ended{Time: time.Unix(2, 0)},
	}
	for _, ev := range evs {
		if err := s.WriteEvent(ev); err != nil {
			t.Errorf("WriteEvent(%v) failed: %v", ev, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal("Close() failed: ", err)
	}

	tr, c, err := OpenFile(path)
	if err != nil {
		t.Fatal("OpenFile() failed: ", err)
	}
	defer c.Close()

	act := make([]interface{}, 0)
	for tr.More() {
		ev, err := tr.ReadEvent()
		if err != nil {
			t.Fatalf("ReadEvent() failed on %d: %v", len(act), err)
		}
		act = append(act, ev)
	}
	if diff := cmp.Diff(act, evs); diff != "" {
		t.Errorf("Read events mismatch (-got +want):\n%s", diff)
	}
}
