// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"stbrun/cmd/stbrun/run"
	"stbrun/command"
	"stbrun/device"
	"stbrun/script"
)

// runCmd implements subcommands.Command to run one test script.
type runCmd struct {
	config    string // device config file
	source    string // capture source override
	sink      string // video sink override
	control   string // control channel override
	restart   bool   // power-cycle the device after a failed run
	saveVideo string // record captured frames to this file
	saveTrace string // save the progress trace to this file

	runner func(context.Context, *run.Config) int // stubbed by unit tests
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run one test script" }
func (*runCmd) Usage() string {
	return `run <flags> FILE[::SYMBOL] [-- ARG...]:
	Runs one test script (or one named routine inside it) against the
	device under test and exits 0 on success, 1 on a test failure and 2
	on any other error. Arguments after the locator are passed to the
	script untouched.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.config, "config", "", "device config file (YAML)")
	f.StringVar(&r.source, "source", "", "video capture source (overrides config)")
	f.StringVar(&r.sink, "sink", "", "video sink (overrides config)")
	f.StringVar(&r.control, "control", "", "remote-control channel (overrides config)")
	f.BoolVar(&r.restart, "restart-on-failure", false, "power-cycle the device after a failed run")
	f.StringVar(&r.saveVideo, "save-video", "", "record captured frames to this file")
	f.StringVar(&r.saveTrace, "save-trace", "", "save the progress trace to this file")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if errs := script.RegistrationErrors(); len(errs) > 0 {
		for _, err := range errs {
			lg.Log("Script registration error: ", err)
		}
		return subcommands.ExitStatus(run.StatusError)
	}

	args := f.Args()
	if len(args) == 0 {
		err := command.NewStatusErrorf(int(subcommands.ExitUsageError), "missing script locator\n\n%s", r.Usage())
		return subcommands.ExitStatus(command.WriteError(os.Stderr, err))
	}
	locator, rest := args[0], args[1:]
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}

	dcfg := &device.Config{}
	if r.config != "" {
		var err error
		if dcfg, err = device.ReadConfig(r.config); err != nil {
			return subcommands.ExitStatus(command.WriteError(os.Stderr, command.NewStatusErrorf(run.StatusError, "%v", err)))
		}
	}
	if r.source != "" {
		dcfg.Source = r.source
	}
	if r.sink != "" {
		dcfg.Sink = r.sink
	}
	if r.control != "" {
		dcfg.Control = r.control
	}

	runner := r.runner
	if runner == nil {
		runner = run.Run
	}
	code := runner(ctx, &run.Config{
		Locator:          locator,
		Args:             rest,
		Device:           dcfg,
		SaveTrace:        r.saveTrace,
		SaveVideo:        r.saveVideo,
		RestartOnFailure: r.restart,
		Logger:           lg,
	})
	return subcommands.ExitStatus(code)
}
