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

package throttle

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/metrics"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

func NewThrottledDecoder(
	decoder scanner.Decoder,
	config ThrottlerConfig,
	listener ThrottledEventListener,
) *ThrottledDecoder {
	return NewThrottledDecoderWithClock(decoder, config, listener, new(realClock))
}

func NewThrottledDecoderWithClock(
	decoder scanner.Decoder,
	config ThrottlerConfig,
	listener ThrottledEventListener,
	clock ratelimit.Clock,
) *ThrottledDecoder {
	// Each token is one decode attempt.
	bucket := ratelimit.NewBucketWithRateAndClock(config.DecodesPerSec, config.Burst, clock)

	if listener == nil {
		listener = new(nullListener)
	}

	return &ThrottledDecoder{
		decoder:  decoder,
		listener: listener,
		bucket:   bucket,
	}
}

// ThrottledDecoder wraps a decoder so that frames arriving faster than the
// configured rate are reported as empty instead of decoded. Decoding every
// frame of a high frame rate camera mostly repeats work on near identical
// images and starves the rest of the device.
type ThrottledDecoder struct {
	decoder   scanner.Decoder
	listener  ThrottledEventListener
	bucket    *ratelimit.Bucket
	throttled atomic.Bool
}

type ThrottledEventListener interface {
	WhenThrottled()
}

type nullListener struct{}

func (lis *nullListener) WhenThrottled() {}

func (throttler *ThrottledDecoder) Decode(f *frame.RawFrame, report func([]scanner.Symbol)) {
	if throttler.bucket.TakeAvailable(1) > 0 {
		if throttler.throttled.CompareAndSwap(true, false) {
			log.Print("decoding resumed")
		}
		throttler.decoder.Decode(f, report)
		return
	}

	metrics.DecodeThrottled()
	if throttler.throttled.CompareAndSwap(false, true) {
		log.Print("decoding throttled")
		throttler.listener.WhenThrottled()
	}
	report(nil)
}

// Throttled reports whether the last frame was skipped.
func (throttler *ThrottledDecoder) Throttled() bool {
	return throttler.throttled.Load()
}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
