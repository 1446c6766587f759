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

package headers

import (
	"bufio"
	"io"
)

// Request keys, sent by a client when it opens the camera.
const (
	RequestWidth     = "Width"
	RequestHeight    = "Height"
	RequestFPS       = "FPS"
	RequestFacing    = "Facing"
	RequestAutofocus = "Autofocus"
)

// Request is what a client asks of the camera. The camera answers with the
// HeaderInfo of what it actually delivers.
type Request struct {
	Width     int
	Height    int
	FPS       int
	Facing    string
	Autofocus bool
}

func ReadRequest(reader *bufio.Reader) (*Request, error) {
	h, err := readFields(reader)
	if err != nil {
		return nil, err
	}
	return &Request{
		Width:     toInt(h[RequestWidth]),
		Height:    toInt(h[RequestHeight]),
		FPS:       toInt(h[RequestFPS]),
		Facing:    toStr(h[RequestFacing]),
		Autofocus: toBool(h[RequestAutofocus]),
	}, nil
}

func WriteRequest(w io.Writer, r *Request) error {
	return writeFields(w, map[string]interface{}{
		RequestWidth:     r.Width,
		RequestHeight:    r.Height,
		RequestFPS:       r.FPS,
		RequestFacing:    r.Facing,
		RequestAutofocus: r.Autofocus,
	})
}
