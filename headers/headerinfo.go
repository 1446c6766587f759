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

// Package headers reads and writes the YAML blocks that open a camera
// stream. Each block is a set of "key: value" lines ended by a blank line.
package headers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v1"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
)

// Stream header keys.
const (
	XResolution = "ResX"
	YResolution = "ResY"
	FPS         = "FPS"
	FrameSize   = "FrameSize"
	Rotation    = "Rotation"
	PixelFormat = "PixelFormat"
	Brand       = "Brand"
	Model       = "Model"
)

// HeaderInfo contains the camera description fields returned by a
// camera service.
type HeaderInfo struct {
	resX      int
	resY      int
	fps       int
	framesize int
	rotation  int
	format    string
	brand     string
	model     string
}

// New describes a stream of frames with the given metadata.
func New(meta frame.Metadata, fps int, brand, model string) *HeaderInfo {
	return &HeaderInfo{
		resX:      meta.Width,
		resY:      meta.Height,
		fps:       fps,
		framesize: meta.Size(),
		rotation:  int(meta.Rotation),
		format:    string(meta.Format),
		brand:     brand,
		model:     model,
	}
}

// ResX implements cptvframe.CameraSpec.
func (h *HeaderInfo) ResX() int {
	return h.resX
}

// ResY implements cptvframe.CameraSpec.
func (h *HeaderInfo) ResY() int {
	return h.resY
}

// FPS implements cptvframe.CameraSpec.
func (h *HeaderInfo) FPS() int {
	return h.fps
}

// FrameSize returns the number of bytes in each frame.
func (h *HeaderInfo) FrameSize() int {
	return h.framesize
}

// Model returns the camera model.
func (h *HeaderInfo) Model() string {
	return h.model
}

// Brand returns the camera brand.
func (h *HeaderInfo) Brand() string {
	return h.brand
}

// Metadata returns the metadata shared by every frame in the stream.
func (h *HeaderInfo) Metadata() frame.Metadata {
	return frame.Metadata{
		Width:    h.resX,
		Height:   h.resY,
		Rotation: frame.Rotation(h.rotation),
		Format:   frame.Format(h.format),
	}
}

// Validate checks that the header describes frames this package can read.
func (h *HeaderInfo) Validate() error {
	meta := h.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}
	if h.framesize != meta.Size() {
		return fmt.Errorf("frame size %d doesn't match %dx%d %s", h.framesize, h.resX, h.resY, h.format)
	}
	if h.fps <= 0 {
		return fmt.Errorf("invalid fps %d", h.fps)
	}
	return nil
}

func ReadHeaderInfo(reader *bufio.Reader) (*HeaderInfo, error) {
	h, err := readFields(reader)
	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		resX:      toInt(h[XResolution]),
		resY:      toInt(h[YResolution]),
		fps:       toInt(h[FPS]),
		framesize: toInt(h[FrameSize]),
		rotation:  toInt(h[Rotation]),
		format:    toStr(h[PixelFormat]),
		brand:     toStr(h[Brand]),
		model:     toStr(h[Model]),
	}, nil
}

func WriteHeaderInfo(w io.Writer, h *HeaderInfo) error {
	return writeFields(w, map[string]interface{}{
		XResolution: h.resX,
		YResolution: h.resY,
		FPS:         h.fps,
		FrameSize:   h.framesize,
		Rotation:    h.rotation,
		PixelFormat: h.format,
		Brand:       h.brand,
		Model:       h.model,
	})
}

func readFields(reader *bufio.Reader) (map[string]interface{}, error) {
	var buf bytes.Buffer
	for {
		line, err := reader.ReadString(byte('\n'))
		if err != nil {
			return nil, err
		}
		if strings.TrimRight(line, " \r\n") == "" {
			break
		}
		buf.WriteString(line)
	}
	h := make(map[string]interface{})
	if err := yaml.Unmarshal(buf.Bytes(), &h); err != nil {
		return nil, err
	}
	return h, nil
}

func writeFields(w io.Writer, fields map[string]interface{}) error {
	out, err := yaml.Marshal(fields)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func toInt(v interface{}) int {
	out, ok := v.(int)
	if !ok {
		return 0
	}
	return out
}

func toStr(v interface{}) string {
	out, ok := v.(string)
	if !ok {
		return ""
	}
	return out
}

func toBool(v interface{}) bool {
	out, ok := v.(bool)
	if !ok {
		return false
	}
	return out
}
