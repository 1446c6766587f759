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

package frame

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFrame returns a frame whose luma sample at (x, y) is x+y*10 and whose
// chroma pair for block (bx, by) is (100+bx, 200+by).
func makeFrame(w, h int) *RawFrame {
	f := New(Metadata{Width: w, Height: h, Rotation: Rotation90, Format: NV21})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Data[y*w+x] = byte(x + y*10)
		}
	}
	chroma := f.Data[w*h:]
	for by := 0; by < h/2; by++ {
		for bx := 0; bx < w/2; bx++ {
			chroma[by*w+bx*2] = byte(100 + bx)
			chroma[by*w+bx*2+1] = byte(200 + by)
		}
	}
	return f
}

func TestMetadataSize(t *testing.T) {
	assert.Equal(t, 1920*1080*3/2, Metadata{Width: 1920, Height: 1080}.Size())
}

func TestMetadataValidate(t *testing.T) {
	good := Metadata{Width: 8, Height: 6, Rotation: Rotation270, Format: NV21}
	assert.NoError(t, good.Validate())

	odd := good
	odd.Width = 7
	assert.Error(t, odd.Validate())

	rotated := good
	rotated.Rotation = 45
	assert.EqualError(t, rotated.Validate(), "invalid frame rotation 45")

	format := good
	format.Format = "yuyv"
	assert.Error(t, format.Validate())
}

func TestShortBuffer(t *testing.T) {
	f := makeFrame(8, 6)
	f.Data = f.Data[:10]
	_, err := f.Crop(image.Rect(0, 0, 4, 4))
	assert.Equal(t, ErrShortBuffer, err)
}

func TestCropCopiesBothPlanes(t *testing.T) {
	f := makeFrame(8, 6)
	out, err := f.Crop(image.Rect(2, 2, 6, 6))
	require.NoError(t, err)

	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 4, out.Height)
	assert.Equal(t, Rotation90, out.Rotation)
	assert.Len(t, out.Data, out.Size())

	assert.Equal(t, []byte{22, 23, 24, 25}, out.Luma()[0:4])
	assert.Equal(t, []byte{52, 53, 54, 55}, out.Luma()[12:16])

	chroma := out.Data[16:]
	assert.Equal(t, []byte{101, 201, 102, 201}, chroma[0:4])
	assert.Equal(t, []byte{101, 202, 102, 202}, chroma[4:8])
}

func TestCropAlignsOddRectangles(t *testing.T) {
	f := makeFrame(8, 6)
	out, err := f.Crop(image.Rect(1, 1, 4, 4))
	require.NoError(t, err)

	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 4, out.Height)
	assert.Equal(t, byte(0), out.Luma()[0])
}

func TestCropClipsToFrame(t *testing.T) {
	f := makeFrame(8, 6)
	out, err := f.Crop(image.Rect(-10, -10, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, f.Data, out.Data)

	_, err = f.Crop(image.Rect(20, 20, 30, 30))
	assert.Equal(t, ErrEmptyCrop, err)
}

func TestGrayCopiesLuma(t *testing.T) {
	f := makeFrame(4, 2)
	img := f.Gray()
	f.Data[0] = 99
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(13), img.GrayAt(3, 1).Y)
}
