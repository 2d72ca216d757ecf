// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"stbrun/script"
)

// listCmd implements subcommands.Command to list registered scripts.
type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list registered test scripts" }
func (*listCmd) Usage() string {
	return `list:
	Lists the locators of all registered test scripts and routines.
`
}

func (*listCmd) SetFlags(f *flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	writeScriptList(os.Stdout, script.GlobalRegistry())
	return subcommands.ExitSuccess
}

// writeScriptList prints one locator per line: the script file itself for
// scripts with a whole-file body, and FILE::SYMBOL for each routine.
func writeScriptList(w io.Writer, reg *script.Registry) {
	for _, sc := range reg.AllScripts() {
		if sc.Main != nil {
			fmt.Fprintln(w, sc.File())
		}
		for _, name := range sc.RoutineNames() {
			fmt.Fprintf(w, "%s::%s\n", sc.File(), name)
		}
	}
}
