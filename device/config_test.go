// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"stbrun/testutil"
)

func TestReadConfig(t *testing.T) {
	td := testutil.TempDir(t)
	p := filepath.Join(td, "stbrun.conf")
	const data = `source_pipeline: test
sink_pipeline: fakesink
control: tcp:relay:4999
audio_source: alsasrc
audio_noise_level: -60.5
`
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadConfig(p)
	if err != nil {
		t.Fatal("ReadConfig() failed: ", err)
	}
	want := &Config{
		Source:          "test",
		Sink:            "fakesink",
		Control:         "tcp:relay:4999",
		AudioSource:     "alsasrc",
		AudioNoiseLevel: -60.5,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("ReadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadConfigErrors(t *testing.T) {
	td := testutil.TempDir(t)

	if _, err := ReadConfig(filepath.Join(td, "missing.conf")); err == nil {
		t.Error("ReadConfig() succeeded for a missing file")
	}

	// Unknown keys are config mistakes, not extensions.
	p := filepath.Join(td, "bad.conf")
	if err := os.WriteFile(p, []byte("source_pipelin: test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadConfig(p); err == nil {
		t.Error("ReadConfig() accepted an unknown key")
	}
}
