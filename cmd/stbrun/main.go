// Copyright 2017 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the stbrun executable, used to run one UI test
// script against a live device under test.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"golang.org/x/crypto/ssh/terminal"

	"stbrun/cmd/stbrun/logging"

	// Test scripts register themselves from init; import them for effect.
	_ "stbrun/scripts/demo"
)

const signalChannelSize = 3 // capacity of channel used to intercept signals

// lg is used throughout the stbrun executable to log diagnostic messages.
var lg logging.Logger

// installSignalHandler starts a goroutine that attempts to do some
// minimal cleanup when the process is being terminated by a signal (which
// prevents deferred functions from running).
func installSignalHandler() {
	var st *terminal.State
	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		var err error
		if st, err = terminal.GetState(fd); err != nil {
			lg.Log("Failed to get terminal state: ", err)
		}
	}

	sc := make(chan os.Signal, signalChannelSize)
	go func() {
		for sig := range sc {
			if st != nil {
				terminal.Restore(fd, st)
			}
			fmt.Fprintf(os.Stderr, "\nCaught %v signal; exiting\n", sig)
			os.Exit(1)
		}
	}()
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
}

// doMain implements the main body of the program. It's a separate
// function so that its deferred functions will run before os.Exit makes
// the program exit immediately.
func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&listCmd{}, "")

	verbose := flag.Bool("verbose", false, "use verbose logging")
	logTime := flag.Bool("logtime", true, "include date/time headers in logs")
	flag.Parse()

	var flags int
	if *logTime {
		flags = log.LstdFlags
	}
	lg = logging.NewSimple(os.Stderr, flags, *verbose)

	installSignalHandler()

	return int(subcommands.Execute(context.Background()))
}

func main() {
	os.Exit(doMain())
}
