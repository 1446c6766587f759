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

// Package scanner runs capture sessions: it starts the camera once the
// surface, layout and permission are all in place, routes frames through the
// cropper to a decoder and accepts at most one barcode per session.
//
// All session state belongs to a single event loop goroutine. Exported
// methods run on that loop and wait for it; decoder results arriving from
// the capture goroutine are posted to it without waiting.
package scanner

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TheCacophonyProject/barcode-scanner/cropper"
	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/loglimiter"
	"github.com/TheCacophonyProject/barcode-scanner/metrics"
	"github.com/TheCacophonyProject/barcode-scanner/viewfinder"
)

const frameLogInterval = time.Minute

type permission int

const (
	permissionUnknown permission = iota
	permissionGranted
	permissionDenied
)

// session is one run of the camera, from start to stop.
type session struct {
	id       string
	handle   Handle
	accepted bool
}

// capture is the state the capture goroutine reads. A new layout replaces
// it rather than changing it.
type capture struct {
	session string
	cropper *cropper.FrameCropper
	busy    *atomic.Bool
}

// Info describes the controller at one point in time.
type Info struct {
	State          State
	Session        string
	CameraOpen     bool
	Torch          bool
	FlashAvailable bool
}

type Controller struct {
	camera    Camera
	decoder   Decoder
	listener  Listener
	observers []Observer

	calls chan func()
	done  chan struct{}

	capture  atomic.Pointer[capture]
	frameLog *loglimiter.LogLimiter

	// Only touched from the event loop.
	state          State
	config         Config
	overlay        *viewfinder.Overlay
	surfaceReady   bool
	layoutComplete bool
	startRequested bool
	permission     permission
	view           viewfinder.Size
	portrait       bool
	session        *session
	torch          bool
}

// New returns an Idle controller. listener may be nil.
func New(cam Camera, dec Decoder, listener Listener, observers ...Observer) *Controller {
	if listener == nil {
		listener = nullListener{}
	}
	c := &Controller{
		camera:    cam,
		decoder:   dec,
		listener:  listener,
		observers: observers,
		calls:     make(chan func()),
		done:      make(chan struct{}),
		frameLog:  loglimiter.New(frameLogInterval),
		config:    DefaultConfig(),
	}
	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		fn := <-c.calls
		fn()
		if c.state == Released {
			return
		}
	}
}

// Done is closed once the controller has been released.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// do runs fn on the event loop and waits for it to finish.
func (c *Controller) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case c.calls <- func() {
		defer close(finished)
		fn()
	}:
	case <-c.done:
		return ErrReleased
	}
	<-finished
	return nil
}

func (c *Controller) call(fn func() error) error {
	var err error
	if doErr := c.do(func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// post queues fn on the event loop without waiting. It is used from the
// capture goroutine, which must never block on the loop since the loop
// may be stopping the camera that goroutine belongs to.
func (c *Controller) post(fn func()) {
	go func() {
		select {
		case c.calls <- fn:
		case <-c.done:
		}
	}()
}

// Configure sets the session options. It moves an Idle controller to
// SurfaceNotReady and can be repeated until capture starts.
func (c *Controller) Configure(cfg Config) error {
	if err := cfg.Camera.Validate(); err != nil {
		return err
	}
	if cfg.Density <= 0 {
		return fmt.Errorf("invalid display density %v", cfg.Density)
	}
	return c.call(func() error {
		if c.state != Idle && c.state != SurfaceNotReady {
			return fmt.Errorf("can't configure a %s session", c.state)
		}
		c.config = cfg
		c.overlay = nil
		if cfg.ShowBox {
			c.overlay = viewfinder.NewOverlay(cfg.Box, cfg.Density)
			if c.layoutComplete {
				c.overlay.Layout(c.view)
			}
		}
		c.setState(SurfaceNotReady)
		c.maybeStart()
		return nil
	})
}

func (c *Controller) SurfaceReady() error {
	return c.call(func() error {
		c.surfaceReady = true
		c.maybeStart()
		return nil
	})
}

// SurfaceDestroyed stops a running capture. It resumes when the surface is
// ready again.
func (c *Controller) SurfaceDestroyed() error {
	return c.call(func() error {
		c.surfaceReady = false
		if c.state == Running {
			c.endCapture()
			c.startRequested = true
			c.setState(SurfaceNotReady)
		}
		return nil
	})
}

// LayoutComplete records the view size and display orientation. Calling it
// again while running swaps in a cropper for the new geometry.
func (c *Controller) LayoutComplete(view viewfinder.Size, portrait bool) error {
	if view.Empty() {
		return fmt.Errorf("invalid view size %dx%d", view.Width, view.Height)
	}
	return c.call(func() error {
		c.view = view
		c.portrait = portrait
		c.layoutComplete = true
		if c.overlay != nil {
			c.overlay.Layout(view)
		}
		if cp := c.capture.Load(); cp != nil {
			c.capture.Store(&capture{
				session: cp.session,
				cropper: cropper.New(c.geometry()),
				busy:    cp.busy,
			})
		}
		c.maybeStart()
		return nil
	})
}

// SetPermission records whether the camera may be used. A denial ends the
// session with an Error result and releases the controller.
func (c *Controller) SetPermission(granted bool) error {
	return c.call(func() error {
		if granted {
			c.permission = permissionGranted
			c.maybeStart()
			return nil
		}
		c.permission = permissionDenied
		c.deny()
		return nil
	})
}

// Start requests capture. It begins immediately when the surface, layout
// and permission are ready, otherwise as soon as the last of them is.
func (c *Controller) Start() error {
	return c.call(func() error {
		if c.state == Running {
			return nil
		}
		c.startRequested = true
		if c.state == Stopped && !(c.surfaceReady && c.layoutComplete) {
			c.setState(SurfaceNotReady)
		}
		c.maybeStart()
		return nil
	})
}

// Stop ends capture. Stopping a controller that isn't running does
// nothing.
func (c *Controller) Stop() error {
	return c.call(func() error {
		c.startRequested = false
		if c.state == Running {
			c.endCapture()
			c.setState(Stopped)
		}
		return nil
	})
}

// Cancel reports a Canceled result and releases the controller.
func (c *Controller) Cancel() error {
	return c.call(func() error {
		c.finish(Result{Status: Canceled, Session: c.sessionID()})
		c.release()
		return nil
	})
}

// Release stops capture and frees the camera. It is safe to call at any
// time, more than once, and does not wait for a frame being decoded.
func (c *Controller) Release() {
	c.do(func() {
		if c.state != Released {
			c.release()
		}
	})
}

// SetFlash switches the torch and returns its resulting state. Without a
// camera that has a flash, or with flash disabled, it does nothing.
func (c *Controller) SetFlash(on bool) (bool, error) {
	var torch bool
	err := c.call(func() error {
		err := c.setTorch(on)
		torch = c.torchOn()
		return err
	})
	return torch, err
}

func (c *Controller) ToggleFlash() (bool, error) {
	var torch bool
	err := c.call(func() error {
		err := c.setTorch(!c.torch)
		torch = c.torchOn()
		return err
	})
	return torch, err
}

// FlashAvailable reports whether a flash control should be offered.
func (c *Controller) FlashAvailable() bool {
	var ok bool
	c.do(func() { ok = c.flashAvailable() })
	return ok
}

func (c *Controller) State() State {
	state := Released
	c.do(func() { state = c.state })
	return state
}

func (c *Controller) Info() Info {
	info := Info{State: Released}
	c.do(func() {
		info = Info{
			State:          c.state,
			Session:        c.sessionID(),
			CameraOpen:     c.session != nil && c.session.handle != nil,
			Torch:          c.torchOn(),
			FlashAvailable: c.flashAvailable(),
		}
	})
	return info
}

// RenderOverlay draws the viewfinder at the laid out view size.
func (c *Controller) RenderOverlay() (*image.RGBA, error) {
	var img *image.RGBA
	err := c.call(func() error {
		if c.overlay == nil {
			return errors.New("no viewfinder box configured")
		}
		if !c.layoutComplete {
			return errors.New("view has not been laid out")
		}
		img = image.NewRGBA(image.Rect(0, 0, c.view.Width, c.view.Height))
		c.overlay.Render(img)
		return nil
	})
	return img, err
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	log.Printf("capture session %s -> %s", c.state, s)
	c.state = s
	c.listener.StateChanged(s, c.sessionID())
}

func (c *Controller) sessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.id
}

func (c *Controller) geometry() cropper.Geometry {
	g := cropper.Geometry{View: c.view, Portrait: c.portrait}
	if c.overlay != nil {
		g.Box = c.overlay.BoxSize()
	}
	return g
}

func (c *Controller) maybeStart() {
	if !c.startRequested || !c.surfaceReady || !c.layoutComplete {
		return
	}
	if c.state != SurfaceNotReady && c.state != Stopped {
		return
	}
	switch c.permission {
	case permissionUnknown:
		return
	case permissionDenied:
		c.deny()
		return
	}
	c.startRequested = false

	s := &session{id: uuid.NewString()}
	c.session = s
	c.capture.Store(&capture{
		session: s.id,
		cropper: cropper.New(c.geometry()),
		busy:    new(atomic.Bool),
	})
	if c.overlay != nil {
		c.overlay.SetColor(viewfinder.Neutral)
	}
	c.setState(Running)
	metrics.SessionStarted()
	log.Printf("starting capture session %s", s.id)

	cfg := c.config.Camera
	handler := c.frameHandler(s.id)
	go func() {
		h, err := c.camera.Start(cfg, handler)
		c.post(func() { c.opened(s, h, err) })
	}()
}

// opened takes the result of opening the camera for s. A handle that
// arrives after s has ended is stopped straight away.
func (c *Controller) opened(s *session, h Handle, err error) {
	current := c.state == Running && c.session == s
	if err != nil {
		if h != nil {
			stopHandle(h)
		}
		if !current {
			return
		}
		c.endCapture()
		if errors.Is(err, ErrPermissionDenied) {
			c.permission = permissionDenied
			c.deny()
			return
		}
		log.Printf("failed to open camera: %v", err)
		c.setState(Idle)
		c.finish(Result{Status: Error, Err: &CameraOpenError{err}, Session: s.id})
		return
	}
	if !current {
		log.Printf("releasing camera opened for ended session %s", s.id)
		stopHandle(h)
		return
	}

	s.handle = h
	if c.torch && c.flashAvailable() {
		if err := h.SetTorch(true); err != nil {
			log.Printf("failed to restore torch: %v", err)
			c.torch = false
		}
	}
}

func (c *Controller) frameHandler(session string) FrameHandler {
	return func(f *frame.RawFrame) {
		cp := c.capture.Load()
		if cp == nil || cp.session != session {
			return
		}
		metrics.FrameDelivered()
		if !cp.busy.CompareAndSwap(false, true) {
			metrics.FrameDropped()
			return
		}

		in, err := cp.cropper.Crop(f)
		if err != nil {
			cp.busy.Store(false)
			metrics.CropFailed()
			c.frameLog.Print(err.Error())
			return
		}
		for _, o := range c.observers {
			o.Observe(in)
		}

		c.decoder.Decode(in, func(symbols []Symbol) {
			cp.busy.Store(false)
			metrics.Decoded(len(symbols))
			if len(symbols) != 1 {
				return
			}
			sym := symbols[0]
			c.post(func() { c.accept(session, sym) })
		})
	}
}

// accept takes the first symbol decoded in a running session and ends it.
func (c *Controller) accept(id string, sym Symbol) {
	s := c.session
	if c.state != Running || s == nil || s.id != id || s.accepted {
		return
	}
	s.accepted = true
	if c.overlay != nil {
		c.overlay.SetColor(viewfinder.Detected)
	}
	c.endCapture()
	c.setState(Stopped)
	log.Printf("session %s scanned %s barcode", s.id, sym.Format)
	c.finish(Result{Status: Success, Symbol: sym, Session: s.id})
}

// endCapture stops frame delivery. The session is kept so that its id and
// accepted flag stay visible until the next start.
func (c *Controller) endCapture() {
	c.capture.Store(nil)
	if c.session == nil || c.session.handle == nil {
		return
	}
	stopHandle(c.session.handle)
	c.session.handle = nil
}

func (c *Controller) deny() {
	log.Print("camera permission denied")
	c.finish(Result{Status: Error, Err: ErrPermissionDenied, Session: c.sessionID()})
	c.release()
}

func (c *Controller) release() {
	c.endCapture()
	c.session = nil
	c.startRequested = false
	c.camera.Release()
	c.setState(Released)
}

func (c *Controller) finish(r Result) {
	metrics.Finished(r.Status.String())
	c.listener.ScanFinished(r)
}

func (c *Controller) flashAvailable() bool {
	return c.config.Flash && c.session != nil && c.session.handle != nil && c.session.handle.HasFlash()
}

// torchOn reports whether the torch is lit. c.torch holds the requested
// state, which outlives the handle it was applied to.
func (c *Controller) torchOn() bool {
	return c.torch && c.flashAvailable()
}

func (c *Controller) setTorch(on bool) error {
	if on == c.torch || !c.flashAvailable() {
		return nil
	}
	if err := c.session.handle.SetTorch(on); err != nil {
		return fmt.Errorf("failed to set torch: %w", err)
	}
	c.torch = on
	return nil
}

func stopHandle(h Handle) {
	if err := h.Stop(); err != nil {
		log.Printf("failed to stop camera: %v", err)
	}
}
