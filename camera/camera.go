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

// Package camera implements scanner.Camera over a unix socket served by a
// camera daemon, with an optional GPIO pin driving the torch.
//
// A client opens the camera by connecting, sending a headers.Request and
// reading back a headers.HeaderInfo. Raw frames of the advertised size
// follow until either side closes the connection.
package camera

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/headers"
	"github.com/TheCacophonyProject/barcode-scanner/metrics"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

const (
	openTimeout = 10 * time.Second

	frameLogIntervalFirstMin = 15 * 25
	frameLogInterval         = 60 * 5 * 25
)

var ErrCameraReleased = errors.New("camera has been released")

// Torch switches a light. A nil Torch means the camera has no flash.
type Torch interface {
	Out(l gpio.Level) error
}

// TorchPin looks up a GPIO pin by name. An empty name or an unknown pin
// gives no torch.
func TorchPin(name string) Torch {
	if name == "" {
		return nil
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		log.Printf("torch pin %q not found", name)
		return nil
	}
	return pin
}

// SocketCamera reads frames from a camera daemon's unix socket.
type SocketCamera struct {
	path  string
	torch Torch

	mu       sync.Mutex
	released bool
}

func New(path string, torch Torch) *SocketCamera {
	return &SocketCamera{path: path, torch: torch}
}

func (c *SocketCamera) Start(cfg scanner.CameraConfig, h scanner.FrameHandler) (scanner.Handle, error) {
	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		return nil, ErrCameraReleased
	}

	conn, err := net.DialTimeout("unix", c.path, openTimeout)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", scanner.ErrPermissionDenied, err)
		}
		return nil, err
	}

	info, reader, err := handshake(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	log.Printf("camera opened: %s %s %dx%d@%dfps", info.Brand(), info.Model(), info.ResX(), info.ResY(), info.FPS())

	handle := &socketHandle{
		conn:  conn,
		torch: c.torch,
		done:  make(chan struct{}),
	}
	go handle.readFrames(reader, info, h)
	return handle, nil
}

// Release turns the torch off and refuses further starts.
func (c *SocketCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	if c.torch != nil {
		if err := c.torch.Out(gpio.Low); err != nil {
			log.Printf("failed to turn torch off: %v", err)
		}
	}
}

func handshake(conn net.Conn, cfg scanner.CameraConfig) (*headers.HeaderInfo, *bufio.Reader, error) {
	conn.SetDeadline(time.Now().Add(openTimeout))
	defer conn.SetDeadline(time.Time{})

	req := &headers.Request{
		Width:     cfg.Width,
		Height:    cfg.Height,
		FPS:       cfg.FPS,
		Facing:    string(cfg.Facing),
		Autofocus: cfg.Autofocus,
	}
	if err := headers.WriteRequest(conn, req); err != nil {
		return nil, nil, fmt.Errorf("failed to send camera request: %v", err)
	}

	reader := bufio.NewReader(conn)
	info, err := headers.ReadHeaderInfo(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read camera header: %v", err)
	}
	if err := info.Validate(); err != nil {
		return nil, nil, fmt.Errorf("bad camera header: %v", err)
	}
	return info, reader, nil
}

type socketHandle struct {
	conn  net.Conn
	torch Torch
	once  sync.Once
	done  chan struct{}
}

// Stop closes the connection without waiting for the frame being handled.
func (s *socketHandle) Stop() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.torch != nil {
			if torchErr := s.torch.Out(gpio.Low); torchErr != nil {
				log.Printf("failed to turn torch off: %v", torchErr)
			}
		}
		err = s.conn.Close()
	})
	return err
}

func (s *socketHandle) HasFlash() bool {
	return s.torch != nil
}

func (s *socketHandle) SetTorch(on bool) error {
	if s.torch == nil {
		return errors.New("camera has no torch")
	}
	select {
	case <-s.done:
		return errors.New("camera is stopped")
	default:
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return s.torch.Out(level)
}

func (s *socketHandle) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// readFrames reads the stream and hands frames to h on a second goroutine
// through a one frame slot. While h is busy the slot keeps only the newest
// frame; older ones are dropped. A frame handed to h is never reused by
// the camera, so h may keep it for as long as it needs.
func (s *socketHandle) readFrames(r io.Reader, info *headers.HeaderInfo, h scanner.FrameHandler) {
	latest := make(chan *frame.RawFrame, 1)
	defer close(latest)
	go s.handleFrames(latest, h)

	meta := info.Metadata()
	f := frame.New(meta)
	totalFrames := 0
	for {
		if _, err := io.ReadFull(r, f.Data); err != nil {
			if !s.stopped() {
				log.Printf("camera connection ended with: %v", err)
			}
			return
		}
		if s.stopped() {
			return
		}
		totalFrames++
		if totalFrames%frameLogIntervalFirstMin == 0 &&
			totalFrames <= 60*info.FPS() || totalFrames%frameLogInterval == 0 {
			log.Printf("%d frames for this connection", totalFrames)
		}

		f.Timestamp = time.Now()
		f = s.offer(latest, f, meta)
	}
}

// offer puts f in the slot and returns the buffer to read the next frame
// into. Only the reading goroutine sends on latest, so the sends after the
// slot has been emptied can't block.
func (s *socketHandle) offer(latest chan *frame.RawFrame, f *frame.RawFrame, meta frame.Metadata) *frame.RawFrame {
	select {
	case latest <- f:
		return frame.New(meta)
	default:
	}
	select {
	case stale := <-latest:
		metrics.FrameDropped()
		latest <- f
		return stale
	default:
		latest <- f
		return frame.New(meta)
	}
}

func (s *socketHandle) handleFrames(latest <-chan *frame.RawFrame, h scanner.FrameHandler) {
	for f := range latest {
		if s.stopped() {
			return
		}
		h(f)
	}
}
