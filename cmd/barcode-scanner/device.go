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
	goconfig "github.com/TheCacophonyProject/go-config"
)

const defaultConfigDir = "/etc/cacophony"

// loadDevice reads the device identity shared by the Cacophony services.
func loadDevice(configDir string) (goconfig.Device, error) {
	var device goconfig.Device
	configRW, err := goconfig.New(configDir)
	if err != nil {
		return device, err
	}
	if err := configRW.Unmarshal(goconfig.DeviceKey, &device); err != nil {
		return device, err
	}
	return device, nil
}
