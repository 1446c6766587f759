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

package decoder

import (
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

const (
	frameWidth  = 480
	frameHeight = 360
)

// whiteFrame returns a frame with a white luma plane and neutral chroma.
func whiteFrame() *frame.RawFrame {
	f := frame.New(frame.Metadata{
		Width:    frameWidth,
		Height:   frameHeight,
		Rotation: frame.Rotation0,
		Format:   frame.NV21,
	})
	for i := range f.Data {
		f.Data[i] = 128
	}
	luma := f.Luma()
	for i := range luma {
		luma[i] = 255
	}
	return f
}

// paint draws m into the middle of the frame's luma plane.
func paint(t *testing.T, f *frame.RawFrame, m *gozxing.BitMatrix) {
	ox := (f.Width - m.GetWidth()) / 2
	oy := (f.Height - m.GetHeight()) / 2
	require.True(t, ox >= 0 && oy >= 0, "barcode larger than frame")
	luma := f.Luma()
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				luma[(oy+y)*f.Width+ox+x] = 0
			}
		}
	}
}

func decodeOnce(d scanner.Decoder, f *frame.RawFrame) []scanner.Symbol {
	var got []scanner.Symbol
	calls := 0
	d.Decode(f, func(symbols []scanner.Symbol) {
		calls++
		got = symbols
	})
	if calls != 1 {
		panic("report not called exactly once")
	}
	return got
}

func TestDecodesQRCode(t *testing.T) {
	m, err := qrcode.NewQRCodeWriter().Encode("https://cacophony.org.nz", gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	require.NoError(t, err)
	f := whiteFrame()
	paint(t, f, m)

	symbols := decodeOnce(New(false), f)
	require.Len(t, symbols, 1)
	assert.Equal(t, "QR_CODE", symbols[0].Format)
	assert.Equal(t, "https://cacophony.org.nz", symbols[0].Text)
}

func TestDecodesCode128(t *testing.T) {
	m, err := oned.NewCode128Writer().Encode("DEVICE-1234", gozxing.BarcodeFormat_CODE_128, 400, 120, nil)
	require.NoError(t, err)
	f := whiteFrame()
	paint(t, f, m)

	symbols := decodeOnce(New(true), f)
	require.Len(t, symbols, 1)
	assert.Equal(t, "CODE_128", symbols[0].Format)
	assert.Equal(t, "DEVICE-1234", symbols[0].Text)
}

func TestBlankFrameHasNoSymbols(t *testing.T) {
	assert.Empty(t, decodeOnce(New(true), whiteFrame()))
}

func TestMalformedFrameReportsNothing(t *testing.T) {
	f := whiteFrame()
	f.Data = f.Data[:frameWidth]
	assert.Empty(t, decodeOnce(New(false), f))
}
