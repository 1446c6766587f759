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

// Package viewfinder draws the scan box shown over the camera preview and
// holds the box geometry the frame cropper works from.
package viewfinder

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const (
	strokeWidth  = 10
	cornerRadius = 20

	// Fraction of the box kept as a corner accent, split across both ends
	// of each edge.
	cornerFraction = 0.3

	// Cubic bezier handle length for a quarter circle.
	kappa = 0.5522847
)

var backgroundColor = color.RGBA{A: 0x44}

// Box is the scan box size in density independent pixels.
type Box struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func DefaultBox() Box {
	return Box{Width: 200, Height: 200}
}

// Pixels resolves the box to device pixels.
func (b Box) Pixels(density float64) Size {
	return Size{
		Width:  int(math.Round(float64(b.Width) * density)),
		Height: int(math.Round(float64(b.Height) * density)),
	}
}

// Size is a width and height in device pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

type ResultColor int

const (
	Neutral ResultColor = iota
	Detected
)

func (c ResultColor) RGBA() color.RGBA {
	if c == Detected {
		return color.RGBA{G: 0xff, A: 0xff}
	}
	return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

func (c ResultColor) String() string {
	if c == Detected {
		return "detected"
	}
	return "neutral"
}

// Overlay renders the scan box centred in the preview. It is not safe for
// concurrent use; the scanner only touches it from its event loop.
type Overlay struct {
	box    Size
	view   Size
	origin image.Point
	color  ResultColor
}

func NewOverlay(box Box, density float64) *Overlay {
	return &Overlay{box: box.Pixels(density)}
}

// BoxSize returns the box size in device pixels.
func (o *Overlay) BoxSize() Size {
	return o.box
}

func (o *Overlay) View() Size {
	return o.view
}

func (o *Overlay) SetColor(c ResultColor) {
	o.color = c
}

func (o *Overlay) Color() ResultColor {
	return o.color
}

// Layout centres the box in a view of the given size.
func (o *Overlay) Layout(view Size) {
	o.view = view
	o.origin = image.Pt((view.Width-o.box.Width)/2, (view.Height-o.box.Height)/2)
}

// BoxRect is the cleared area inside the outline, in view coordinates.
func (o *Overlay) BoxRect() image.Rectangle {
	return image.Rectangle{Min: o.origin, Max: o.origin.Add(image.Pt(o.box.Width, o.box.Height))}
}

// CornerLength is how far each corner accent reaches along an edge.
func (o *Overlay) CornerLength() int {
	w := int(float64(o.box.Width) * cornerFraction / 2)
	h := int(float64(o.box.Height) * cornerFraction / 2)
	if w < h {
		return w
	}
	return h
}

// Render draws the overlay into dst, which should match the laid out view
// size. The box is cut out of the dimmed background before the outline is
// stroked; the outline is then opened up along each edge so only the
// corners remain.
func (o *Overlay) Render(dst *image.RGBA) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	box := o.BoxRect().Add(b.Min)
	erase(dst, box)

	const half = strokeWidth / 2
	left := box.Min.X - half
	top := box.Min.Y - half
	right := box.Max.X + half
	bottom := box.Max.Y + half

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	ox, oy := float32(b.Min.X), float32(b.Min.Y)
	roundRect(z, float32(left-half)-ox, float32(top-half)-oy, float32(right+half)-ox, float32(bottom+half)-oy, cornerRadius+half, false)
	roundRect(z, float32(left+half)-ox, float32(top+half)-oy, float32(right-half)-ox, float32(bottom-half)-oy, cornerRadius-half, true)
	z.Draw(dst, b, image.NewUniform(o.color.RGBA()), image.Point{})

	offset := o.CornerLength()
	erase(dst, image.Rect(left+offset, top-half, right-offset, top+half))
	erase(dst, image.Rect(left+offset, bottom-half, right-offset, bottom+half))
	erase(dst, image.Rect(left-half, top+offset, left+half, bottom-offset))
	erase(dst, image.Rect(right-half, top+offset, right+half, bottom-offset))
}

func erase(dst draw.Image, r image.Rectangle) {
	draw.Draw(dst, r, image.Transparent, image.Point{}, draw.Src)
}

// roundRect adds a closed rounded rectangle path to z. Paths traced in
// opposite directions cancel, which is how the outline gets its hole.
func roundRect(z *vector.Rasterizer, l, t, r, b, radius float32, reverse bool) {
	if radius < 0 {
		radius = 0
	}
	k := radius * kappa
	if !reverse {
		z.MoveTo(l+radius, t)
		z.LineTo(r-radius, t)
		z.CubeTo(r-radius+k, t, r, t+radius-k, r, t+radius)
		z.LineTo(r, b-radius)
		z.CubeTo(r, b-radius+k, r-radius+k, b, r-radius, b)
		z.LineTo(l+radius, b)
		z.CubeTo(l+radius-k, b, l, b-radius+k, l, b-radius)
		z.LineTo(l, t+radius)
		z.CubeTo(l, t+radius-k, l+radius-k, t, l+radius, t)
	} else {
		z.MoveTo(l+radius, t)
		z.CubeTo(l+radius-k, t, l, t+radius-k, l, t+radius)
		z.LineTo(l, b-radius)
		z.CubeTo(l, b-radius+k, l+radius-k, b, l+radius, b)
		z.LineTo(r-radius, b)
		z.CubeTo(r-radius+k, b, r, b-radius+k, r, b-radius)
		z.LineTo(r, t+radius)
		z.CubeTo(r, t+radius-k, r-radius+k, t, r-radius, t)
	}
	z.ClosePath()
}
