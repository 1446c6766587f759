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
	"image"
	"image/png"
	"log"
	"os"
	"path"
	"sync"
	"time"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
)

const (
	snapshotName          = "still.png"
	viewfinderName        = "viewfinder.png"
	allowedSnapshotPeriod = 500 * time.Millisecond
	recentFramePeriod     = time.Second
)

// overlayRenderer draws the viewfinder as currently laid out.
type overlayRenderer interface {
	RenderOverlay() (*image.RGBA, error)
}

// snapshotter keeps a copy of a recent decoder input so a still can be
// saved on request. Copies are taken at most once a second.
type snapshotter struct {
	dir     string
	overlay overlayRenderer

	mu            sync.Mutex
	recent        *image.Gray
	recentTime    time.Time
	previousTaken time.Time
	nowFunc       func() time.Time
}

func newSnapshotter(dir string, overlay overlayRenderer) *snapshotter {
	return &snapshotter{
		dir:     dir,
		overlay: overlay,
		nowFunc: time.Now,
	}
}

// Observe implements scanner.Observer.
func (s *snapshotter) Observe(f *frame.RawFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if s.recent != nil && now.Sub(s.recentTime) < recentFramePeriod {
		return
	}
	s.recent = f.Gray()
	s.recentTime = now
}

// take writes the recent frame and, when a box is shown, the viewfinder.
func (s *snapshotter) take() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.Sub(s.previousTaken) < allowedSnapshotPeriod {
		return nil
	}
	if s.recent == nil {
		return errors.New("no frames yet")
	}
	if err := writePNG(path.Join(s.dir, snapshotName), s.recent); err != nil {
		return err
	}

	if s.overlay != nil {
		if img, err := s.overlay.RenderOverlay(); err == nil {
			if err := writePNG(path.Join(s.dir, viewfinderName), img); err != nil {
				return err
			}
		}
	}

	// the time will be changed only if the attempt is successful
	s.previousTaken = now
	return nil
}

func writePNG(filename string, img image.Image) error {
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func deleteSnapshot(dir string) {
	deleteSnapshotFile(dir, snapshotName)
	deleteSnapshotFile(dir, viewfinderName)
}

func deleteSnapshotFile(dir, basename string) {
	if err := os.Remove(path.Join(dir, basename)); err != nil && !os.IsNotExist(err) {
		log.Printf("error deleting snapshot image: %v", err)
	}
}
