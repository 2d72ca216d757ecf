// Copyright 2019 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sync/errgroup"

	"stbrun/cmd/stbrun/logging"
	"stbrun/device"
	"stbrun/errors"
)

// clk is replaced in unit tests to use fake clocks.
var clk = clock.NewClock()

// videoPollInterval is how often the recorder samples the session's
// last frame.
const videoPollInterval = 100 * time.Millisecond

// videoRecorder saves the session's captured frames to a file while the
// target runs. Each frame is appended as a 4-byte big-endian length
// prefix followed by the encoded frame bytes.
type videoRecorder struct {
	f      *os.File
	cancel context.CancelFunc
	eg     *errgroup.Group
	lg     logging.Logger
}

// startVideoRecorder begins recording sess's frames to path.
func startVideoRecorder(path string, sess device.Session, lg logging.Logger) (*videoRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create video file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)
	vr := &videoRecorder{f: f, cancel: cancel, eg: eg, lg: lg}
	eg.Go(func() error { return vr.loop(ctx, sess) })
	return vr, nil
}

func (vr *videoRecorder) loop(ctx context.Context, sess device.Session) error {
	t := clk.NewTicker(videoPollInterval)
	defer t.Stop()

	var last []byte
	for {
		select {
		case <-t.C():
			frame := sess.LastFrame()
			if frame == nil || bytes.Equal(frame, last) {
				continue
			}
			if err := vr.writeFrame(frame); err != nil {
				return err
			}
			last = frame
		case <-ctx.Done():
			return nil
		}
	}
}

func (vr *videoRecorder) writeFrame(b []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := vr.f.Write(hdr[:]); err != nil {
		return err
	}
	_, err := vr.f.Write(b)
	return err
}

// stop ends recording and closes the file. The run's teardown calls it
// before the device session closes.
func (vr *videoRecorder) stop() {
	vr.cancel()
	if err := vr.eg.Wait(); err != nil {
		vr.lg.Log("Video recording failed: ", err)
	}
	if err := vr.f.Close(); err != nil {
		vr.lg.Log("Failed to close video file: ", err)
	}
}
