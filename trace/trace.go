// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package trace writes and reads events describing the progress of a
// single script run.
//
// Events are JSON-marshaled, one per line. A run produces a strictly
// ordered sequence:
//
//	Starting (the target is about to be invoked)
//		Line (a statement on one of the target's lines executed)
//		Line ...
//	Ended (the target returned or raised)
//
// Exactly one Starting and one Ended event are emitted per traced run;
// Line events appear only for lines belonging to the target's own source
// file, never for helper code the target calls into.
//
// Events of different types are unmarshaled into a single eventUnion
// struct. To be able to infer an event's type, each event struct carries a
// Time field with a type-prefixed JSON name (e.g. "startingTime" for
// Starting.Time), and its other fields are namespaced the same way.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"stbrun/errors"
)

// Starting reports that the resolved target is about to be invoked.
type Starting struct {
	// Time is the local time at which the run reached the target.
	Time time.Time `json:"startingTime"`
	// Locator is the FILE[::SYMBOL] token the run was invoked with.
	Locator string `json:"startingLocator"`
	// File is the absolute path of the target's source file.
	File string `json:"startingFile"`
	// Symbol is the requested routine name, or empty in whole-file mode.
	Symbol string `json:"startingSymbol"`
	// FirstLine is the first source line of the routine (1 in whole-file mode).
	FirstLine int `json:"startingFirstLine"`
}

// Line reports that a statement on one of the target's lines executed.
type Line struct {
	// Time is the local time at which the statement was reached.
	Time time.Time `json:"lineTime"`
	// File is the absolute path of the file containing the statement.
	// It always equals the Starting event's File.
	File string `json:"lineFile"`
	// Number is the 1-based line number of the statement.
	Number int `json:"lineNumber"`
}

// Ended reports that the target returned or raised. It is emitted exactly
// once, whatever the outcome.
type Ended struct {
	// Time is the local time at which the target finished.
	Time time.Time `json:"endedTime"`
}

// eventUnion holds all event types to aid in marshaling and unmarshaling
// heterogeneous events.
type eventUnion struct {
	*Starting
	*Line
	*Ended
}

// Sink consumes the ordered event stream of one run.
//
// WriteEvent is called inline from the thread running the target, so an
// implementation must not block indefinitely: a stalled sink stalls the
// whole run. Close flushes and releases the sink; it is called exactly
// once by the run's owner, even if the run fails partway.
type Sink interface {
	WriteEvent(ev interface{}) error
	Close() error
}

// Writer marshals events to a stream, one JSON object per line.
// It is safe to call its methods concurrently from multiple goroutines.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter returns a Writer that writes events to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// WriteEvent writes ev, which must be one of *Starting, *Line or *Ended.
func (tw *Writer) WriteEvent(ev interface{}) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	switch v := ev.(type) {
	case *Starting:
		return tw.enc.Encode(&eventUnion{Starting: v})
	case *Line:
		return tw.enc.Encode(&eventUnion{Line: v})
	case *Ended:
		return tw.enc.Encode(&eventUnion{Ended: v})
	default:
		return errors.Errorf("unable to encode event of type %T", ev)
	}
}

// Reader interprets an event stream produced by Writer.
type Reader json.Decoder

// NewReader returns a Reader that reads events from r.
func NewReader(r io.Reader) *Reader {
	return (*Reader)(json.NewDecoder(r))
}

// More returns true if more events are available.
func (tr *Reader) More() bool {
	return (*json.Decoder)(tr).More()
}

// ReadEvent reads and returns the next event.
func (tr *Reader) ReadEvent() (interface{}, error) {
	dec := (*json.Decoder)(tr)
	var eu eventUnion
	if err := dec.Decode(&eu); err != nil {
		return nil, fmt.Errorf("unable to decode event: %v", err)
	}
	switch {
	case eu.Starting != nil:
		return eu.Starting, nil
	case eu.Line != nil:
		return eu.Line, nil
	case eu.Ended != nil:
		return eu.Ended, nil
	default:
		return nil, errors.New("unable to decode event of unknown type")
	}
}
