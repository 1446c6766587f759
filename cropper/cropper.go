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

// Package cropper cuts the part of a camera frame that lies under the
// viewfinder box, so the decoder only sees what the user aimed at.
package cropper

import (
	"image"
	"math"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/viewfinder"
)

// DecodeError is returned when a frame buffer can't be cropped. It only
// ever costs the current frame.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string {
	return "can't crop frame: " + e.cause.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.cause
}

// Geometry is the layout state a crop depends on. Box is the overlay box
// in device pixels and is zero when no box is shown. Portrait is the
// display orientation at layout time; camera sensors are landscape native
// so portrait swaps the axes.
type Geometry struct {
	Box      viewfinder.Size
	View     viewfinder.Size
	Portrait bool
}

func (g Geometry) HasBox() bool {
	return !g.Box.Empty()
}

// FrameCropper applies one fixed Geometry to every frame. A layout change
// means a new FrameCropper rather than a mutated one.
type FrameCropper struct {
	geometry Geometry
}

func New(g Geometry) *FrameCropper {
	return &FrameCropper{geometry: g}
}

func (c *FrameCropper) Geometry() Geometry {
	return c.geometry
}

// Crop returns the part of f under the box, or f itself when there is no
// box to crop to.
func (c *FrameCropper) Crop(f *frame.RawFrame) (*frame.RawFrame, error) {
	if err := f.Validate(); err != nil {
		return nil, &DecodeError{err}
	}
	if !c.geometry.HasBox() {
		return f, nil
	}

	r := CropRect(f.Metadata, c.geometry)
	if r.Empty() || r == f.Bounds() {
		return f, nil
	}
	out, err := f.Crop(r)
	if err != nil {
		return nil, &DecodeError{err}
	}
	return out, nil
}

// CropRect maps the on-screen box onto frame pixels. The rectangle is
// centred on the frame and clamped to it; boxes larger than the frame
// allows are cut down rather than rejected.
func CropRect(meta frame.Metadata, g Geometry) image.Rectangle {
	bounds := image.Rect(0, 0, meta.Width, meta.Height)
	if !g.HasBox() || g.View.Empty() {
		return bounds
	}

	frameW, frameH := float64(meta.Width), float64(meta.Height)
	viewW, viewH := float64(g.View.Width), float64(g.View.Height)

	var widthScale, heightScale float64
	if g.Portrait {
		widthScale = frameH / viewW
		heightScale = frameW / viewH
	} else {
		widthScale = frameW / viewW
		heightScale = frameH / viewH
	}

	boxW := math.Round(float64(g.Box.Width) * widthScale)
	boxH := math.Round(float64(g.Box.Height) * heightScale)

	extentX, extentY := boxW, boxH
	if g.Portrait {
		extentX, extentY = boxH, boxW
	}

	cx, cy := meta.Width/2, meta.Height/2
	halfX := int(math.Round(extentX / 2))
	halfY := int(math.Round(extentY / 2))
	r := image.Rect(cx-halfX, cy-halfY, cx+halfX, cy+halfY)
	return r.Intersect(bounds)
}
