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

// Package decoder adapts the gozxing barcode readers to scanner.Decoder.
package decoder

import (
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/loglimiter"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

const errLogInterval = time.Minute

// ZXing looks for a QR code and for any 1D barcode in the luma plane of
// each frame. Every reader that finds something contributes one symbol, so
// a frame showing two different codes reports two.
type ZXing struct {
	mu      sync.Mutex
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
	errLog  *loglimiter.LogLimiter
}

// New returns a decoder. tryHarder trades speed for accuracy.
func New(tryHarder bool) *ZXing {
	hints := make(map[gozxing.DecodeHintType]interface{})
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &ZXing{
		readers: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			oned.NewMultiFormatOneDReader(hints),
		},
		hints:  hints,
		errLog: loglimiter.New(errLogInterval),
	}
}

// Decode runs synchronously and reports before returning.
func (z *ZXing) Decode(f *frame.RawFrame, report func([]scanner.Symbol)) {
	symbols, err := z.decode(f)
	if err != nil {
		z.errLog.Printf("decode failed: %v", err)
	}
	report(symbols)
}

func (z *ZXing) decode(f *frame.RawFrame) ([]scanner.Symbol, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	source, err := gozxing.NewPlanarYUVLuminanceSource(
		f.Data, f.Width, f.Height, 0, 0, f.Width, f.Height, false)
	if err != nil {
		return nil, err
	}
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return nil, err
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	var symbols []scanner.Symbol
	for _, reader := range z.readers {
		result, err := reader.Decode(bmp, z.hints)
		reader.Reset()
		if err != nil {
			if !notFound(err) {
				z.errLog.Printf("barcode reader: %v", err)
			}
			continue
		}
		symbols = append(symbols, scanner.Symbol{
			Format: result.GetBarcodeFormat().String(),
			Text:   result.GetText(),
		})
	}
	return symbols, nil
}

// notFound is true for the errors a reader returns when the frame simply
// has no readable barcode in it.
func notFound(err error) bool {
	switch err.(type) {
	case gozxing.NotFoundException, gozxing.ChecksumException, gozxing.FormatException:
		return true
	}
	return false
}
