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

package camera

import (
	"bufio"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
	"github.com/TheCacophonyProject/barcode-scanner/headers"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

var testMeta = frame.Metadata{Width: 8, Height: 4, Rotation: frame.Rotation90, Format: frame.NV21}

type fakeTorch struct {
	mu     sync.Mutex
	levels []gpio.Level
}

func (t *fakeTorch) Out(l gpio.Level) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.levels = append(t.levels, l)
	return nil
}

func (t *fakeTorch) Levels() []gpio.Level {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]gpio.Level(nil), t.levels...)
}

// serveFrames runs a one connection camera daemon that sends frames
// numbered 0 to count-1, then waits for the client to hang up.
func serveFrames(t *testing.T, info *headers.HeaderInfo, count int) (string, <-chan *headers.Request) {
	path := filepath.Join(t.TempDir(), "camera.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	requests := make(chan *headers.Request, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req, err := headers.ReadRequest(bufio.NewReader(conn))
		if err != nil {
			return
		}
		requests <- req
		if err := headers.WriteHeaderInfo(conn, info); err != nil {
			return
		}
		buf := make([]byte, info.FrameSize())
		for i := 0; i < count; i++ {
			for j := range buf {
				buf[j] = byte(i)
			}
			if _, err := conn.Write(buf); err != nil {
				return
			}
		}
		conn.Read(make([]byte, 1))
	}()
	return path, requests
}

// collectFrames starts cam and records the first byte of every frame the
// handler sees, sleeping for delay in each call, until the last frame
// numbered count-1 arrives.
func collectFrames(t *testing.T, cam *SocketCamera, count int, delay time.Duration) ([]byte, []*frame.RawFrame) {
	var mu sync.Mutex
	var seen []byte
	var kept []*frame.RawFrame
	last := make(chan struct{})
	h, err := cam.Start(scanner.DefaultCameraConfig(), func(f *frame.RawFrame) {
		mu.Lock()
		seen = append(seen, f.Data[0])
		kept = append(kept, f)
		mu.Unlock()
		time.Sleep(delay)
		if f.Data[0] == byte(count-1) {
			close(last)
		}
	})
	require.NoError(t, err)
	defer h.Stop()

	select {
	case <-last:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the last frame")
	}
	mu.Lock()
	defer mu.Unlock()
	return append([]byte(nil), seen...), append([]*frame.RawFrame(nil), kept...)
}

func TestStreamsFrames(t *testing.T) {
	path, requests := serveFrames(t, headers.New(testMeta, 25, "acme", "cam"), 3)

	cam := New(path, nil)
	seen, kept := collectFrames(t, cam, 3, 0)

	req := <-requests
	assert.Equal(t, 1920, req.Width)
	assert.Equal(t, 1080, req.Height)
	assert.Equal(t, 25, req.FPS)
	assert.Equal(t, "back", req.Facing)
	assert.True(t, req.Autofocus)

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
	for _, f := range kept {
		assert.Equal(t, testMeta, f.Metadata)
		assert.Len(t, f.Data, testMeta.Size())
	}
}

func TestSlowHandlerDropsFrames(t *testing.T) {
	const count = 10
	path, _ := serveFrames(t, headers.New(testMeta, 25, "", ""), count)

	seen, _ := collectFrames(t, New(path, nil), count, 50*time.Millisecond)

	assert.Less(t, len(seen), count)
	assert.Equal(t, byte(count-1), seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
}

func TestHandledFramesAreNotReused(t *testing.T) {
	const count = 10
	path, _ := serveFrames(t, headers.New(testMeta, 25, "", ""), count)

	seen, kept := collectFrames(t, New(path, nil), count, 5*time.Millisecond)

	require.Len(t, kept, len(seen))
	for i, f := range kept {
		for _, b := range f.Data {
			require.Equal(t, seen[i], b, "frame %d was overwritten after delivery", i)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	path, _ := serveFrames(t, headers.New(testMeta, 25, "", ""), 0)

	h, err := New(path, nil).Start(scanner.DefaultCameraConfig(), func(*frame.RawFrame) {})
	require.NoError(t, err)
	assert.NoError(t, h.Stop())
	assert.NoError(t, h.Stop())
}

func TestBadHeaderFailsStart(t *testing.T) {
	bad := headers.New(frame.Metadata{Width: 7, Height: 4, Format: frame.NV21}, 25, "", "")
	path, _ := serveFrames(t, bad, 0)

	_, err := New(path, nil).Start(scanner.DefaultCameraConfig(), func(*frame.RawFrame) {})
	assert.Error(t, err)
}

func TestNoDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")
	_, err := New(path, nil).Start(scanner.DefaultCameraConfig(), func(*frame.RawFrame) {})
	require.Error(t, err)
	assert.False(t, errors.Is(err, scanner.ErrPermissionDenied))
}

func TestPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores socket permissions")
	}
	path, _ := serveFrames(t, headers.New(testMeta, 25, "", ""), 0)
	require.NoError(t, os.Chmod(path, 0))

	_, err := New(path, nil).Start(scanner.DefaultCameraConfig(), func(*frame.RawFrame) {})
	assert.True(t, errors.Is(err, scanner.ErrPermissionDenied))
}

func TestTorch(t *testing.T) {
	path, _ := serveFrames(t, headers.New(testMeta, 25, "", ""), 0)
	torch := new(fakeTorch)
	cam := New(path, torch)

	h, err := cam.Start(scanner.DefaultCameraConfig(), func(*frame.RawFrame) {})
	require.NoError(t, err)
	assert.True(t, h.HasFlash())

	require.NoError(t, h.SetTorch(true))
	require.NoError(t, h.SetTorch(false))
	require.NoError(t, h.Stop())
	assert.Error(t, h.SetTorch(true))

	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.Low}, torch.Levels())
}

func TestReleasedCameraWontStart(t *testing.T) {
	torch := new(fakeTorch)
	cam := New("unused", torch)
	cam.Release()
	cam.Release()

	_, err := cam.Start(scanner.DefaultCameraConfig(), func(*frame.RawFrame) {})
	assert.Equal(t, ErrCameraReleased, err)
	assert.Equal(t, []gpio.Level{gpio.Low}, torch.Levels())
}

func TestTorchPinWithoutName(t *testing.T) {
	assert.Nil(t, TorchPin(""))
}
