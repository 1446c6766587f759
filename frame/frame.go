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

// Package frame holds the raw camera frames delivered by a camera
// capability. Frames use the NV21 layout: a full resolution luma plane
// followed by a half resolution plane of interleaved V/U samples.
package frame

import (
	"errors"
	"fmt"
	"image"
	"time"
)

type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

func (r Rotation) Valid() bool {
	switch r {
	case Rotation0, Rotation90, Rotation180, Rotation270:
		return true
	}
	return false
}

type Format string

const NV21 Format = "nv21"

var (
	ErrShortBuffer = errors.New("frame buffer is shorter than its metadata")
	ErrEmptyCrop   = errors.New("crop rectangle does not overlap the frame")
)

// Metadata describes a single frame. It never changes once the frame has
// been produced.
type Metadata struct {
	Width    int
	Height   int
	Rotation Rotation
	Format   Format
}

// Size returns the number of bytes needed to hold a frame with this
// metadata.
func (m Metadata) Size() int {
	return m.Width*m.Height + m.Width*m.Height/2
}

func (m Metadata) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", m.Width, m.Height)
	}
	if m.Width%2 != 0 || m.Height%2 != 0 {
		return fmt.Errorf("frame size %dx%d must be even for %s", m.Width, m.Height, NV21)
	}
	if !m.Rotation.Valid() {
		return fmt.Errorf("invalid frame rotation %d", m.Rotation)
	}
	if m.Format != NV21 {
		return fmt.Errorf("unsupported pixel format %q", m.Format)
	}
	return nil
}

// RawFrame is a pixel buffer plus its metadata. A RawFrame belongs to the
// capture callback that received it and must not be kept afterwards.
type RawFrame struct {
	Metadata
	Data      []byte
	Timestamp time.Time
}

// New allocates a zeroed frame for meta.
func New(meta Metadata) *RawFrame {
	return &RawFrame{
		Metadata: meta,
		Data:     make([]byte, meta.Size()),
	}
}

func (f *RawFrame) Validate() error {
	if err := f.Metadata.Validate(); err != nil {
		return err
	}
	if len(f.Data) < f.Size() {
		return ErrShortBuffer
	}
	return nil
}

func (f *RawFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Luma returns the luma plane without copying.
func (f *RawFrame) Luma() []byte {
	return f.Data[:f.Width*f.Height]
}

// Gray copies the luma plane into a new greyscale image.
func (f *RawFrame) Gray() *image.Gray {
	img := image.NewGray(f.Bounds())
	copy(img.Pix, f.Luma())
	return img
}

// Crop copies the part of the frame inside r into a new frame of the same
// format. r is clipped to the frame and widened to even coordinates so
// that every luma sample keeps its chroma pair.
func (f *RawFrame) Crop(r image.Rectangle) (*RawFrame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	r = alignToChroma(r.Intersect(f.Bounds()))
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	w, h := r.Dx(), r.Dy()
	out := New(Metadata{Width: w, Height: h, Rotation: f.Rotation, Format: f.Format})
	out.Timestamp = f.Timestamp

	for y := 0; y < h; y++ {
		src := (r.Min.Y+y)*f.Width + r.Min.X
		copy(out.Data[y*w:(y+1)*w], f.Data[src:src+w])
	}

	srcChroma := f.Data[f.Width*f.Height:]
	dstChroma := out.Data[w*h:]
	for y := 0; y < h/2; y++ {
		src := (r.Min.Y/2+y)*f.Width + r.Min.X
		copy(dstChroma[y*w:(y+1)*w], srcChroma[src:src+w])
	}
	return out, nil
}

func alignToChroma(r image.Rectangle) image.Rectangle {
	if r.Empty() {
		return r
	}
	r.Min.X &^= 1
	r.Min.Y &^= 1
	r.Max.X = (r.Max.X + 1) &^ 1
	r.Max.Y = (r.Max.Y + 1) &^ 1
	return r
}
