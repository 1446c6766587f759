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

package location

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	loc, err := Parse([]byte(`
latitude: -43.5
longitude: 172.6
altitude: 20
accuracy: 5
timestamp: 2020-06-01T10:00:00Z
`))
	require.NoError(t, err)
	assert.Equal(t, &Location{
		Latitude:  -43.5,
		Longitude: 172.6,
		Altitude:  20,
		Accuracy:  5,
		Timestamp: time.Date(2020, 6, 1, 10, 0, 0, 0, time.UTC),
	}, loc)
}

func TestUnknownLocation(t *testing.T) {
	loc, err := Parse([]byte("altitude: 10"))
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestOutOfRange(t *testing.T) {
	_, err := Parse([]byte("latitude: 91\nlongitude: 10"))
	assert.Error(t, err)
	_, err = Parse([]byte("latitude: 10\nlongitude: -181"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	loc, err := Load(filepath.Join(t.TempDir(), "location.yaml"))
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "location.yaml")
	require.NoError(t, ioutil.WriteFile(filename, []byte("latitude: 1.5\nlongitude: 2.5\n"), 0644))
	loc, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, &Location{Latitude: 1.5, Longitude: 2.5}, loc)
}

func TestAddTo(t *testing.T) {
	details := map[string]interface{}{"text": "abc"}
	(&Location{Latitude: 1, Longitude: 2}).AddTo(details)
	assert.Equal(t, map[string]interface{}{
		"text":      "abc",
		"latitude":  float32(1),
		"longitude": float32(2),
	}, details)

	var none *Location
	none.AddTo(details)
	assert.Len(t, details, 3)
}
