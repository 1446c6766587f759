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
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type surfaceEvents struct {
	mu     sync.Mutex
	events []string
}

func (s *surfaceEvents) SurfaceReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "ready")
	return nil
}

func (s *surfaceEvents) SurfaceDestroyed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "destroyed")
	return nil
}

func (s *surfaceEvents) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func TestWatchSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.sock")
	events := new(surfaceEvents)
	tick := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchSurface(ctx, events, path, tick)
		close(done)
	}()

	tick <- time.Now()
	assert.Empty(t, events.get())

	require.NoError(t, os.WriteFile(path, nil, 0600))
	tick <- time.Now()
	tick <- time.Now()
	require.NoError(t, os.Remove(path))
	tick <- time.Now()
	tick <- time.Now()

	cancel()
	<-done
	assert.Equal(t, []string{"ready", "destroyed"}, events.get())
}
