// Copyright 2020 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package script

var globalRegistry *Registry // singleton, initialized on first use

var registrationErrors []error

// GlobalRegistry returns the registry that Register adds to.
func GlobalRegistry() *Registry {
	if globalRegistry == nil {
		globalRegistry = NewRegistry()
	}
	return globalRegistry
}

// Register adds sc to the global registry. It is intended to be called
// from an init function in the script's package. Errors are collected and
// reported by RegistrationErrors before anything runs.
func Register(sc *Script) {
	if err := GlobalRegistry().Add(sc); err != nil {
		registrationErrors = append(registrationErrors, err)
	}
}

// RegistrationErrors returns errors accumulated by Register.
func RegistrationErrors() []error {
	return registrationErrors
}

// SetGlobalRegistryForTesting temporarily sets reg as the global registry
// and clears registration errors. The caller must call the returned
// function to restore the original state. Only unit tests should use this.
func SetGlobalRegistryForTesting(reg *Registry) (restore func()) {
	origReg, origErrs := globalRegistry, registrationErrors
	globalRegistry, registrationErrors = reg, nil
	return func() {
		globalRegistry, registrationErrors = origReg, origErrs
	}
}
