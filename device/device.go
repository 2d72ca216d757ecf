// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package device provides the session to the device under test for the
// duration of one run.
//
// A session bundles the video capture channel, which supplies the most
// recently captured frame on demand, and the control channel used to
// power-cycle the device. The full device-control and image-matching
// pipeline lives outside the harness; this package implements only the
// session contract the harness consumes, plus a synthetic capture source
// for rigs and unit tests that run without real hardware.
package device

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sync/errgroup"

	"stbrun/errors"
)

// clk is replaced in unit tests to use fake clocks.
var clk = clock.NewClock()

// captureInterval is the delay between frames of the synthetic source.
const captureInterval = 40 * time.Millisecond // 25 fps

// Session is a handle to the device under test, exclusively owned by one
// run. It is opened exactly once and must be closed exactly once.
type Session interface {
	// LastFrame returns the most recently captured frame as encoded PNG
	// bytes, or nil if no frame has been captured yet.
	LastFrame() []byte
	// PowerCycle restarts the device under test via the control channel.
	PowerCycle(ctx context.Context) error
	// Close releases the session's capture and control resources.
	Close(ctx context.Context) error
}

// session is the built-in Session implementation.
type session struct {
	cfg *Config

	mu    sync.Mutex
	frame []byte

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// Open establishes a session per cfg. With the "test" capture source a
// background goroutine refreshes LastFrame at the capture frame rate
// until Close is called.
func Open(ctx context.Context, cfg *Config) (Session, error) {
	s := &session{cfg: cfg}

	switch cfg.Source {
	case "":
		// No capture; LastFrame stays nil.
	case "test":
		cctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.eg, cctx = errgroup.WithContext(cctx)
		s.eg.Go(func() error { return s.captureLoop(cctx) })
	default:
		return nil, errors.Errorf("capture source %q requires an external pipeline not included in this build", cfg.Source)
	}
	return s, nil
}

// captureLoop generates synthetic frames until ctx is canceled. The first
// frame is stored before the loop starts ticking so LastFrame becomes
// non-nil promptly after Open.
func (s *session) captureLoop(ctx context.Context) error {
	n := 0
	s.storeFrame(testFrame(n))

	t := clk.NewTicker(captureInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C():
			n++
			s.storeFrame(testFrame(n))
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *session) storeFrame(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = b
}

func (s *session) LastFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// PowerCycle asks the control channel to restart the device.
func (s *session) PowerCycle(ctx context.Context) error {
	ctl := s.cfg.Control
	switch {
	case ctl == "" || ctl == "none":
		return errors.New("no control channel configured")
	case strings.HasPrefix(ctl, "tcp:"):
		return powerCycleTCP(ctx, strings.TrimPrefix(ctl, "tcp:"))
	default:
		return errors.Errorf("control channel %q requires an external pipeline not included in this build", ctl)
	}
}

// powerCycleTCP sends a power-cycle command to a remote-control relay.
func powerCycleTCP(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to reach control relay %s", addr)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("power-cycle\n")); err != nil {
		return errors.Wrap(err, "failed to send power-cycle command")
	}
	return nil
}

// Close stops the capture loop and releases the session.
func (s *session) Close(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
		if err := s.eg.Wait(); err != nil {
			return errors.Wrap(err, "capture pipeline failed")
		}
	}
	return nil
}

// testFrame encodes frame n of the synthetic source: a small uniform
// image whose color varies with n, so consecutive frames differ.
func testFrame(n int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	c := color.RGBA{R: uint8(41 * n), G: uint8(97 * n), B: uint8(193 * n), A: 255}
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
