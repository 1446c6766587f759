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

package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigValidates(t *testing.T) {
	conf := DefaultRecorderConfig()
	assert.NoError(t, conf.Validate())

	conf.Record = true
	assert.NoError(t, conf.Validate())
}

func TestRecordingNeedsDir(t *testing.T) {
	conf := DefaultRecorderConfig()
	conf.Record = true
	conf.Dir = ""
	assert.EqualError(t, conf.Validate(), "recorder dir is required when recording")
}

func TestMaxFramesMustBePositive(t *testing.T) {
	conf := DefaultRecorderConfig()
	conf.Record = true
	conf.MaxFrames = 0
	assert.EqualError(t, conf.Validate(), "max-frames should be at least 1")

	conf.Record = false
	assert.NoError(t, conf.Validate())
}
