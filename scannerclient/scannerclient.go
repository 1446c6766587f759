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

// Package scannerclient calls the barcode-scanner D-Bus service.
package scannerclient

import "github.com/godbus/dbus"

const (
	dbusPath   = "/org/cacophony/barcodescanner"
	dbusDest   = "org.cacophony.barcodescanner"
	methodBase = "org.cacophony.barcodescanner"
)

// Status mirrors the service's Status reply.
type Status struct {
	State          string
	Session        string
	Torch          bool
	FlashAvailable bool
}

// Result is the outcome of the most recent capture session.
type Result struct {
	Status  string
	Format  string
	Text    string
	Session string
	Error   string
}

func getDbusObj() (dbus.BusObject, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(dbusDest, dbusPath)
	return obj, nil
}

func call(method string, args ...interface{}) *dbus.Call {
	obj, err := getDbusObj()
	if err != nil {
		return &dbus.Call{Err: err}
	}
	return obj.Call(methodBase+"."+method, 0, args...)
}

func Start() error {
	return call("Start").Store()
}

func Stop() error {
	return call("Stop").Store()
}

func Cancel() error {
	return call("Cancel").Store()
}

// ToggleFlash returns whether the torch is now on.
func ToggleFlash() (bool, error) {
	var on bool
	err := call("ToggleFlash").Store(&on)
	return on, err
}

func SetFlash(on bool) (bool, error) {
	var torch bool
	err := call("SetFlash", on).Store(&torch)
	return torch, err
}

func GetStatus() (*Status, error) {
	s := new(Status)
	err := call("Status").Store(&s.State, &s.Session, &s.Torch, &s.FlashAvailable)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func LastResult() (*Result, error) {
	r := new(Result)
	err := call("LastResult").Store(&r.Status, &r.Format, &r.Text, &r.Session, &r.Error)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func TakeSnapshot() error {
	return call("TakeSnapshot").Store()
}
