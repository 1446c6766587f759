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
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"syscall"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/cptvframe"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/location"
	"github.com/TheCacophonyProject/barcode-scanner/loglimiter"
)

const cptvTempExt = "cptv.temp"

// frameSpec implements cptvframe.CameraSpec for the frames of one
// recording. Cropped frames are smaller than the camera's.
type frameSpec struct {
	resX, resY, fps int
}

func (s frameSpec) ResX() int { return s.resX }
func (s frameSpec) ResY() int { return s.resY }
func (s frameSpec) FPS() int  { return s.fps }

// CPTVRecorder writes the luma plane of each frame the decoder sees to a
// CPTV file, one file per capture session. The file is only created once
// the first frame arrives since its resolution depends on the crop.
type CPTVRecorder struct {
	mu      sync.Mutex
	conf    RecorderConfig
	header  cptv.Header
	session string
	spec    frameSpec
	writer  *cptv.FileWriter
	out     *cptvframe.Frame
	frames  int
	start   time.Time
	errLog  *loglimiter.LogLimiter
}

// NewCPTVRecorder returns a recorder whose files carry the device identity
// and, when known, its location. loc may be nil.
func NewCPTVRecorder(conf RecorderConfig, device goconfig.Device, loc *location.Location, fps int, brand, model string) *CPTVRecorder {
	header := cptv.Header{
		DeviceName: device.Name,
		FPS:        fps,
		Brand:      brand,
		Model:      model,
	}
	if device.ID > 0 {
		header.DeviceID = device.ID
	}
	if loc != nil {
		header.Latitude = loc.Latitude
		header.Longitude = loc.Longitude
		header.LocTimestamp = loc.Timestamp
		header.Altitude = loc.Altitude
		header.Accuracy = loc.Accuracy
	}
	return &CPTVRecorder{
		conf:   conf,
		header: header,
		errLog: loglimiter.New(time.Minute),
	}
}

func (r *CPTVRecorder) CheckCanRecord() error {
	enoughSpace, err := checkDiskSpace(r.conf.MinDiskSpace, r.conf.Dir)
	if err != nil {
		return fmt.Errorf("Problem with checking disk space: %v", err)
	} else if !enoughSpace {
		return errors.New("not enough free disk space to record scan")
	}
	return nil
}

// StartRecording ends any current recording and begins collecting frames
// for session.
func (r *CPTVRecorder) StartRecording(session string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.closeWriter(); err != nil {
		log.Printf("failed to finish recording: %v", err)
	}
	r.session = session
	return nil
}

func (r *CPTVRecorder) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = ""
	return r.closeWriter()
}

// Stop abandons the current recording.
func (r *CPTVRecorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = ""
	if r.writer != nil {
		r.writer.Close()
		os.Remove(r.writer.Name())
		r.writer = nil
	}
}

func (r *CPTVRecorder) WriteFrame(f *frame.RawFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == "" {
		return nil
	}

	spec := frameSpec{resX: f.Width, resY: f.Height, fps: r.header.FPS}
	if r.writer != nil && spec != r.spec {
		// A new layout changed the crop, so the frames need a new file.
		if err := r.closeWriter(); err != nil {
			return err
		}
	}
	if r.writer == nil {
		if err := r.openWriter(spec); err != nil {
			return err
		}
	}
	if r.frames >= r.conf.MaxFrames {
		return nil
	}

	luma := f.Luma()
	for y, row := range r.out.Pix {
		for x := range row {
			row[x] = uint16(luma[y*f.Width+x])
		}
	}
	r.out.Status.TimeOn = time.Since(r.start)
	if err := r.writer.WriteFrame(r.out); err != nil {
		return err
	}
	r.frames++
	return nil
}

// Observe records f, logging rather than returning failures.
func (r *CPTVRecorder) Observe(f *frame.RawFrame) {
	if err := r.WriteFrame(f); err != nil {
		r.errLog.Printf("failed to record frame: %v", err)
	}
}

func (r *CPTVRecorder) openWriter(spec frameSpec) error {
	if err := r.CheckCanRecord(); err != nil {
		return err
	}
	filename := filepath.Join(r.conf.Dir, newRecordingTempName(r.session))
	writer, err := cptv.NewFileWriter(filename, spec)
	if err != nil {
		return err
	}
	if err := writer.WriteHeader(r.header); err != nil {
		writer.Close()
		os.Remove(filename)
		return err
	}
	log.Printf("recording started: %s", filename)

	r.writer = writer
	r.spec = spec
	r.out = cptvframe.NewFrame(spec)
	r.frames = 0
	r.start = time.Now()
	return nil
}

func (r *CPTVRecorder) closeWriter() error {
	if r.writer == nil {
		return nil
	}
	r.writer.Close()
	finalName, err := renameTempRecording(r.writer.Name())
	log.Printf("recording stopped: %s (%d frames)", finalName, r.frames)
	r.writer = nil
	return err
}

func newRecordingTempName(session string) string {
	if len(session) > 8 {
		session = session[:8]
	}
	return time.Now().Format("20060102.150405.000.") + session + "." + cptvTempExt
}

func renameTempRecording(tempName string) (string, error) {
	finalName := recordingFinalName(tempName)
	err := os.Rename(tempName, finalName)
	if err != nil {
		return "", err
	}
	return finalName, nil
}

var reTempName = regexp.MustCompile(`(.+)\.temp$`)

func recordingFinalName(filename string) string {
	return reTempName.ReplaceAllString(filename, `$1`)
}

// DeleteTempFiles removes recordings left unfinished by a crash.
func DeleteTempFiles(directory string) error {
	matches, _ := filepath.Glob(filepath.Join(directory, "*."+cptvTempExt))
	for _, filename := range matches {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	return nil
}

func checkDiskSpace(mb uint64, dir string) (bool, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(dir, &fs); err != nil {
		return false, err
	}
	return fs.Bavail*uint64(fs.Bsize)/1024/1024 >= mb, nil
}
