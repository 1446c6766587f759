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
	"log"
	"os"
	"time"
)

const surfacePollInterval = time.Second

// surface is the part of the controller that follows the camera socket.
type surface interface {
	SurfaceReady() error
	SurfaceDestroyed() error
}

// watchSurface treats the camera daemon's socket as the capture surface:
// it is ready while the socket exists. It returns when ctx is done.
func watchSurface(ctx context.Context, s surface, path string, tick <-chan time.Time) {
	ready := false
	check := func() {
		_, err := os.Stat(path)
		exists := err == nil
		if exists == ready {
			return
		}
		ready = exists
		if ready {
			log.Printf("camera socket %s is available", path)
			err = s.SurfaceReady()
		} else {
			log.Printf("camera socket %s has gone", path)
			err = s.SurfaceDestroyed()
		}
		if err != nil {
			log.Printf("surface update failed: %v", err)
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			check()
		}
	}
}
