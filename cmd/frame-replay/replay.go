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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/coreos/go-systemd/daemon"

	"github.com/TheCacophonyProject/barcode-scanner/headers"
)

const framesPerSdNotify = 50

var errNoFrames = errors.New("input holds no complete frames")

// openFunc opens the raw NV21 input from its start.
type openFunc func() (io.ReadCloser, error)

func openFile(name string) openFunc {
	return func() (io.ReadCloser, error) {
		return os.Open(name)
	}
}

// listen serves one client at a time until the listener fails.
func listen(conf *Config) error {
	os.Remove(conf.FrameOutput)
	listener, err := net.Listen("unix", conf.FrameOutput)
	if err != nil {
		return err
	}
	defer listener.Close()

	for {
		log.Print("waiting for scanner connection")
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		err = serveConn(conn, conf, openFile(conf.Input), nil)
		conn.Close()
		log.Printf("scanner connection ended with: %v", err)
	}
}

// serveConn answers the client's request with the stream header and then
// sends frames from open at the configured rate. A nil pace uses a ticker
// at the configured fps.
func serveConn(conn io.ReadWriter, conf *Config, open openFunc, pace <-chan time.Time) error {
	req, err := headers.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return fmt.Errorf("failed to read request: %v", err)
	}
	log.Printf("scanner requested %dx%d at %d fps (%s camera)", req.Width, req.Height, req.FPS, req.Facing)
	meta := conf.Metadata()
	if req.Width != meta.Width || req.Height != meta.Height {
		log.Printf("replaying %dx%d frames instead", meta.Width, meta.Height)
	}

	info := headers.New(meta, conf.FPS, conf.Brand, conf.Model)
	if err := headers.WriteHeaderInfo(conn, info); err != nil {
		return err
	}

	if pace == nil {
		ticker := time.NewTicker(time.Second / time.Duration(conf.FPS))
		defer ticker.Stop()
		pace = ticker.C
	}

	buf := make([]byte, meta.Size())
	notifyCount := 0
	for {
		sent, err := replay(conn, open, buf, pace, func() {
			if notifyCount++; notifyCount >= framesPerSdNotify {
				daemon.SdNotify(false, "WATCHDOG=1")
				notifyCount = 0
			}
		})
		if err != nil {
			return err
		}
		if sent == 0 {
			return errNoFrames
		}
		if !conf.Loop {
			return nil
		}
	}
}

// replay sends every complete frame of the input once. A trailing partial
// frame is ignored.
func replay(w io.Writer, open openFunc, buf []byte, pace <-chan time.Time, sent func()) (int, error) {
	r, err := open()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count := 0
	for {
		_, err := io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return count, nil
		} else if err != nil {
			return count, err
		}
		<-pace
		if _, err := w.Write(buf); err != nil {
			return count, err
		}
		count++
		sent()
	}
}
