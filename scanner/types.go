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

package scanner

import (
	"errors"
	"fmt"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/viewfinder"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrReleased         = errors.New("capture session released")
)

// CameraOpenError is reported when the camera capability fails to start.
type CameraOpenError struct {
	cause error
}

func (e *CameraOpenError) Error() string {
	return fmt.Sprintf("failed to open camera: %v", e.cause)
}

func (e *CameraOpenError) Unwrap() error {
	return e.cause
}

// Symbol is one barcode recognised by a Decoder.
type Symbol struct {
	Format string
	Text   string
}

// Decoder recognises barcodes in a frame. Decode must call report exactly
// once per frame, possibly from another goroutine, with every symbol found
// (none is a valid answer). The frame must not be used after report has
// been called.
type Decoder interface {
	Decode(f *frame.RawFrame, report func([]Symbol))
}

// FrameHandler is called by the camera for every captured frame. Frames are
// only valid for the duration of the call.
type FrameHandler func(f *frame.RawFrame)

// Camera is the capability that produces frames.
type Camera interface {
	// Start opens the camera and delivers frames to h until the returned
	// Handle is stopped. A denied camera returns ErrPermissionDenied.
	Start(cfg CameraConfig, h FrameHandler) (Handle, error)
	// Release frees the camera for good.
	Release()
}

// Handle controls one opened camera.
type Handle interface {
	Stop() error
	HasFlash() bool
	SetTorch(on bool) error
}

type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

type CameraConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	FPS       int    `yaml:"fps"`
	Facing    Facing `yaml:"facing"`
	Autofocus bool   `yaml:"autofocus"`
}

func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Width:     1920,
		Height:    1080,
		FPS:       25,
		Facing:    FacingBack,
		Autofocus: true,
	}
}

func (c CameraConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid camera resolution %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid camera fps %d", c.FPS)
	}
	if c.Facing != FacingBack && c.Facing != FacingFront {
		return fmt.Errorf("unknown camera facing %q", c.Facing)
	}
	return nil
}

// Config is what a caller hands to Configure.
type Config struct {
	Camera CameraConfig
	// ShowBox enables the viewfinder box and crops frames to it.
	ShowBox bool
	Box     viewfinder.Box
	// Density converts the box size into device pixels.
	Density float64
	Flash   bool
}

func DefaultConfig() Config {
	return Config{
		Camera:  DefaultCameraConfig(),
		Box:     viewfinder.DefaultBox(),
		Density: 1,
		Flash:   true,
	}
}

type State int

const (
	Idle State = iota
	SurfaceNotReady
	Running
	Stopped
	Released
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SurfaceNotReady:
		return "surface-not-ready"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Released:
		return "released"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Status int

const (
	Success Status = iota
	Canceled
	Error
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Canceled:
		return "canceled"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of a capture session. Symbol is only set on
// Success and Err only on Error.
type Result struct {
	Status  Status
	Symbol  Symbol
	Err     error
	Session string
}

// Listener receives controller notifications. Its methods are called from
// the controller's event loop and must not call back into the Controller.
// session is the id of the current capture session, empty when there is
// none.
type Listener interface {
	StateChanged(s State, session string)
	ScanFinished(r Result)
}

// Observer sees every frame handed to the decoder, on the capture
// goroutine. The frame must not be kept after Observe returns.
type Observer interface {
	Observe(f *frame.RawFrame)
}

type nullListener struct{}

func (nullListener) StateChanged(State, string) {}
func (nullListener) ScanFinished(Result)        {}
