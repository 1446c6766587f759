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

import "github.com/TheCacophonyProject/barcode-scanner/frame"

// Recorder keeps the frames a capture session hands to the decoder.
type Recorder interface {
	StartRecording(session string) error
	WriteFrame(*frame.RawFrame) error
	StopRecording() error
}

type NoWriteRecorder struct {
}

func (*NoWriteRecorder) StartRecording(string) error      { return nil }
func (*NoWriteRecorder) WriteFrame(*frame.RawFrame) error { return nil }
func (*NoWriteRecorder) StopRecording() error             { return nil }
