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

// Package location reads the device location kept by the management
// interface so that scans can be tagged with where they happened.
package location

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultFile  = "/etc/cacophony/location.yaml"
	maxLatitude  = 90
	maxLongitude = 180
)

type Location struct {
	Latitude  float32   `yaml:"latitude"`
	Longitude float32   `yaml:"longitude"`
	Timestamp time.Time `yaml:"timestamp"`
	Altitude  float32   `yaml:"altitude"`
	Accuracy  float32   `yaml:"accuracy"`
}

// Load reads the location file. A missing file, or a location of (0, 0),
// means the location is unknown and gives nil.
func Load(filename string) (*Location, error) {
	buf, err := ioutil.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return Parse(buf)
}

func Parse(buf []byte) (*Location, error) {
	loc := new(Location)
	if err := yaml.Unmarshal(buf, loc); err != nil {
		return nil, err
	}
	if loc.Unknown() {
		return nil, nil
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}

func (l *Location) Unknown() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

func (l *Location) Validate() error {
	if l.Latitude < -maxLatitude || l.Latitude > maxLatitude {
		return fmt.Errorf("latitude %v outside of normal range", l.Latitude)
	}
	if l.Longitude < -maxLongitude || l.Longitude > maxLongitude {
		return fmt.Errorf("longitude %v outside of normal range", l.Longitude)
	}
	return nil
}

// AddTo copies the location into event details. Altitude, accuracy and
// timestamp are optional and only added when set.
func (l *Location) AddTo(details map[string]interface{}) {
	if l == nil {
		return
	}
	details["latitude"] = l.Latitude
	details["longitude"] = l.Longitude
	if l.Altitude != 0 {
		details["altitude"] = l.Altitude
	}
	if l.Accuracy != 0 {
		details["accuracy"] = l.Accuracy
	}
	if !l.Timestamp.IsZero() {
		details["locationTimestamp"] = l.Timestamp.Format(time.RFC3339)
	}
}
