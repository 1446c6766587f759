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
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/TheCacophonyProject/event-reporter/eventclient"
	goconfig "github.com/TheCacophonyProject/go-config"

	"github.com/TheCacophonyProject/barcode-scanner/location"
	"github.com/TheCacophonyProject/barcode-scanner/recorder"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

// addEvent is replaced in tests.
var addEvent = eventclient.AddEvent

// scanListener reacts to the controller: it keeps the last result for the
// D-Bus service, records events, rings the bell and starts and stops scan
// recordings. It runs on the controller's event loop so anything slow is
// pushed to a goroutine.
type scanListener struct {
	recorder recorder.Recorder
	beep     bool
	bell     io.Writer
	location *location.Location
	device   goconfig.Device

	mu       sync.Mutex
	last     scanner.Result
	finished bool
	wg       sync.WaitGroup
}

func newScanListener(rec recorder.Recorder, beep bool, bell io.Writer) *scanListener {
	if rec == nil {
		rec = new(recorder.NoWriteRecorder)
	}
	return &scanListener{
		recorder: rec,
		beep:     beep,
		bell:     bell,
	}
}

func (l *scanListener) StateChanged(s scanner.State, session string) {
	switch s {
	case scanner.Running:
		if err := l.recorder.StartRecording(session); err != nil {
			log.Printf("failed to start recording: %v", err)
		}
	default:
		if err := l.recorder.StopRecording(); err != nil {
			log.Printf("failed to stop recording: %v", err)
		}
	}
}

func (l *scanListener) ScanFinished(r scanner.Result) {
	l.mu.Lock()
	l.last = r
	l.finished = true
	l.mu.Unlock()

	switch r.Status {
	case scanner.Success:
		log.Printf("scanned %s: %q", r.Symbol.Format, r.Symbol.Text)
		if l.beep && l.bell != nil {
			fmt.Fprint(l.bell, "\a")
		}
		details := map[string]interface{}{
			"format":  r.Symbol.Format,
			"text":    r.Symbol.Text,
			"session": r.Session,
		}
		l.location.AddTo(details)
		l.addDevice(details)
		l.queueEvent("barcodeScanned", details)
	case scanner.Error:
		log.Printf("scan failed: %v", r.Err)
		details := map[string]interface{}{
			"error":   r.Err.Error(),
			"session": r.Session,
		}
		l.addDevice(details)
		l.queueEvent("scanError", details)
	case scanner.Canceled:
		log.Print("scan canceled")
	}
}

func (l *scanListener) addDevice(details map[string]interface{}) {
	if l.device.Name != "" {
		details["deviceName"] = l.device.Name
	}
	if l.device.ID > 0 {
		details["deviceID"] = l.device.ID
	}
}

// lastResult returns the most recent result, if any session has finished.
func (l *scanListener) lastResult() (scanner.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.finished
}

func (l *scanListener) queueEvent(eventType string, details map[string]interface{}) {
	event := eventclient.Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details:   details,
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := addEvent(event); err != nil {
			log.Printf("could not record %s event: %v", eventType, err)
		}
	}()
}

// flush waits for queued events to be sent.
func (l *scanListener) flush() {
	l.wg.Wait()
}
