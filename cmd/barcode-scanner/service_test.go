// barcode-scanner - decode barcodes placed inside a viewfinder box
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
	"github.com/TheCacophonyProject/barcode-scanner/viewfinder"
)

type stubHandle struct{}

func (stubHandle) Stop() error         { return nil }
func (stubHandle) HasFlash() bool      { return false }
func (stubHandle) SetTorch(bool) error { return nil }

// flakyCamera fails to open the first `failures` times.
type flakyCamera struct {
	mu       sync.Mutex
	failures int
	starts   int
}

func (c *flakyCamera) Start(scanner.CameraConfig, scanner.FrameHandler) (scanner.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.starts <= c.failures {
		return nil, errors.New("camera busy")
	}
	return stubHandle{}, nil
}

func (c *flakyCamera) Release() {}

func (c *flakyCamera) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

type noDecoder struct{}

func (noDecoder) Decode(_ *frame.RawFrame, report func([]scanner.Symbol)) { report(nil) }

func TestServiceStartRecoversFromOpenFailure(t *testing.T) {
	captureEvents(t)
	cam := &flakyCamera{failures: 1}
	listener := newScanListener(nil, false, nil)
	controller := scanner.New(cam, noDecoder{}, listener)
	defer controller.Release()
	defer listener.flush()

	cfg := scanner.DefaultConfig()
	require.NoError(t, controller.Configure(cfg))
	require.NoError(t, controller.SetPermission(true))
	require.NoError(t, controller.LayoutComplete(viewfinder.Size{Width: 640, Height: 480}, false))
	require.NoError(t, controller.SurfaceReady())

	s := &service{controller: controller, config: cfg, listener: listener}
	require.Nil(t, s.Start())
	require.Eventually(t, func() bool {
		return controller.State() == scanner.Idle
	}, time.Second, 5*time.Millisecond)
	r, ok := listener.lastResult()
	require.True(t, ok)
	assert.Equal(t, scanner.Error, r.Status)

	require.Nil(t, s.Start())
	assert.Equal(t, scanner.Running, controller.State())
	require.Eventually(t, func() bool {
		return controller.Info().CameraOpen
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, cam.startCount())
}

func TestServiceStartWhenRunning(t *testing.T) {
	cam := new(flakyCamera)
	listener := newScanListener(nil, false, nil)
	controller := scanner.New(cam, noDecoder{}, listener)
	defer controller.Release()

	cfg := scanner.DefaultConfig()
	require.NoError(t, controller.Configure(cfg))
	require.NoError(t, controller.SetPermission(true))
	require.NoError(t, controller.LayoutComplete(viewfinder.Size{Width: 640, Height: 480}, false))
	require.NoError(t, controller.SurfaceReady())

	s := &service{controller: controller, config: cfg, listener: listener}
	require.Nil(t, s.Start())
	require.Nil(t, s.Start())
	assert.Equal(t, scanner.Running, controller.State())
	require.Eventually(t, func() bool { return cam.startCount() == 1 }, time.Second, 5*time.Millisecond)
}
