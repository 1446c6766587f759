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
	"errors"
	"sync"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/TheCacophonyProject/barcode-scanner/scanner"
)

const (
	dbusName = "org.cacophony.barcodescanner"
	dbusPath = "/org/cacophony/barcodescanner"
)

type service struct {
	controller *scanner.Controller
	config     scanner.Config
	listener   *scanListener
	snapshots  *snapshotter

	startMu sync.Mutex
}

func startService(controller *scanner.Controller, config scanner.Config, listener *scanListener, snapshots *snapshotter) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		controller: controller,
		config:     config,
		listener:   listener,
		snapshots:  snapshots,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")

	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// Start begins a capture session, or restarts a stopped one. A controller
// that went back to Idle after the camera failed to open is configured
// again first.
func (s *service) Start() *dbus.Error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.controller.State() == scanner.Idle {
		if err := s.controller.Configure(s.config); err != nil {
			return makeDbusError("Start", err)
		}
	}
	if err := s.controller.Start(); err != nil {
		return makeDbusError("Start", err)
	}
	return nil
}

func (s *service) Stop() *dbus.Error {
	if err := s.controller.Stop(); err != nil {
		return makeDbusError("Stop", err)
	}
	return nil
}

// Cancel ends scanning for good. The service has to be restarted to scan
// again.
func (s *service) Cancel() *dbus.Error {
	if err := s.controller.Cancel(); err != nil {
		return makeDbusError("Cancel", err)
	}
	return nil
}

func (s *service) ToggleFlash() (bool, *dbus.Error) {
	on, err := s.controller.ToggleFlash()
	if err != nil {
		return false, makeDbusError("ToggleFlash", err)
	}
	return on, nil
}

func (s *service) SetFlash(on bool) (bool, *dbus.Error) {
	torch, err := s.controller.SetFlash(on)
	if err != nil {
		return false, makeDbusError("SetFlash", err)
	}
	return torch, nil
}

// Status returns the session state, its id, the torch state and whether a
// flash control is available.
func (s *service) Status() (string, string, bool, bool, *dbus.Error) {
	info := s.controller.Info()
	return info.State.String(), info.Session, info.Torch, info.FlashAvailable, nil
}

// LastResult returns the status, barcode format, text, session and error
// message of the most recent finished session.
func (s *service) LastResult() (string, string, string, string, string, *dbus.Error) {
	r, ok := s.listener.lastResult()
	if !ok {
		return "", "", "", "", "", nil
	}
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}
	return r.Status.String(), r.Symbol.Format, r.Symbol.Text, r.Session, errMsg, nil
}

// TakeSnapshot will save the most recent decoder input as a still.
func (s *service) TakeSnapshot() *dbus.Error {
	if err := s.snapshots.take(); err != nil {
		return makeDbusError("TakeSnapshot", err)
	}
	return nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + name,
		Body: []interface{}{err.Error()},
	}
}
