// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"os"

	"gopkg.in/yaml.v2"

	"stbrun/errors"
)

// Config holds the parameters of a device session. Values come from a
// YAML config file; command-line flags override individual fields.
type Config struct {
	// Source names the video capture source. "test" selects the built-in
	// synthetic source; empty disables capture (LastFrame stays nil).
	// Anything else requires an external capture pipeline and is rejected
	// by this build.
	Source string `yaml:"source_pipeline"`
	// Sink names the video sink of the capture pipeline, e.g. "fakesink".
	Sink string `yaml:"sink_pipeline"`
	// Control names the remote-control channel used for power cycling,
	// e.g. "tcp:host:port". Empty disables device restarts.
	Control string `yaml:"control"`

	// Audio settings are parsed for the audio pipeline collaborator; the
	// harness itself does not consume them.
	AudioSource     string  `yaml:"audio_source"`
	AudioSink       string  `yaml:"audio_sink"`
	AudioNoiseLevel float64 `yaml:"audio_noise_level"`
}

// ReadConfig parses the YAML config file at path.
func ReadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read device config")
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse device config %s", path)
	}
	return &cfg, nil
}
