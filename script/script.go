// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package script provides the registration contract and execution state
// for test scripts.
//
// A test script is an ordinary Go source file compiled into the harness
// binary. Its package registers it from an init function:
//
//	func init() {
//		script.Register(&script.Script{
//			Main:     run,
//			Routines: []script.Func{PowerCycle, MenuNavigates},
//		})
//	}
//
// The harness later resolves a FILE[::SYMBOL] locator against the
// registry: FILE alone runs Main ("execute the whole file as the test
// body"), FILE::SYMBOL runs the routine whose function name is SYMBOL.
package script

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// routineNameRegexp validates routine names, which must be exported
// function identifiers so they can be named in a locator.
var routineNameRegexp = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// Script describes one registered test script.
type Script struct {
	// Main is the whole-file test body, run when a locator names the file
	// without a symbol. It may be nil if the script only offers Routines.
	Main Func
	// Routines are the individually runnable routines of the script.
	// Every routine must be a named, exported function defined in the same
	// source file as Main.
	Routines []Func

	file     string // absolute source path, derived from the functions at registration
	routines map[string]*routineInfo
}

// routineInfo records what the registry needs to resolve one routine.
type routineInfo struct {
	fn        Func
	name      string // bare function name, used as the locator symbol
	firstLine int    // first source line of the function definition
}

// File returns the absolute path of the script's source file.
func (sc *Script) File() string { return sc.file }

// RoutineNames returns the sorted names of the script's routines.
func (sc *Script) RoutineNames() []string {
	var names []string
	for n := range sc.routines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// finalize derives the script's file and routine table from its functions
// and validates the result.
func (sc *Script) finalize() error {
	if sc.Main == nil && len(sc.Routines) == 0 {
		return fmt.Errorf("script registers neither a main body nor routines")
	}

	if sc.Main != nil {
		file, _, _, err := funcInfo(sc.Main)
		if err != nil {
			return err
		}
		sc.file = file
	}

	sc.routines = make(map[string]*routineInfo)
	for _, fn := range sc.Routines {
		file, line, name, err := funcInfo(fn)
		if err != nil {
			return err
		}
		if !routineNameRegexp.MatchString(name) {
			return fmt.Errorf("invalid routine name %q (want an exported function)", name)
		}
		if sc.file == "" {
			sc.file = file
		} else if file != sc.file {
			return fmt.Errorf("routine %s is defined in %s, not %s", name, file, sc.file)
		}
		if _, ok := sc.routines[name]; ok {
			return fmt.Errorf("duplicate routine %s", name)
		}
		sc.routines[name] = &routineInfo{fn: fn, name: name, firstLine: line}
	}
	return nil
}

// funcInfo returns the defining source file, first line and bare name of f.
func funcInfo(f Func) (file string, line int, name string, err error) {
	pc := reflect.ValueOf(f).Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return "", 0, "", fmt.Errorf("failed to get function from PC")
	}
	file, line = rf.FileLine(pc)
	if file, err = filepath.Abs(file); err != nil {
		return "", 0, "", err
	}
	// rf.Name is fully qualified, e.g. "stbrun/scripts/demo.PowerCycle".
	name = rf.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return file, line, name, nil
}

// Registry holds registered scripts, keyed by their source file.
type Registry struct {
	scripts map[string]*Script
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]*Script)}
}

// Add registers sc, deriving its file and routine table.
func (r *Registry) Add(sc *Script) error {
	if err := sc.finalize(); err != nil {
		return err
	}
	if _, ok := r.scripts[sc.file]; ok {
		return fmt.Errorf("script %s registered twice", sc.file)
	}
	r.scripts[sc.file] = sc
	return nil
}

// AllScripts returns the registered scripts sorted by source file.
func (r *Registry) AllScripts() []*Script {
	var scs []*Script
	for _, sc := range r.scripts {
		scs = append(scs, sc)
	}
	sort.Slice(scs, func(i, j int) bool { return scs[i].file < scs[j].file })
	return scs
}
