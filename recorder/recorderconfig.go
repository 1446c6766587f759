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

import "errors"

type RecorderConfig struct {
	Record    bool   `yaml:"record"`
	Dir       string `yaml:"dir"`
	MaxFrames int    `yaml:"max-frames"`
	// MinDiskSpace is in megabytes.
	MinDiskSpace uint64 `yaml:"min-disk-mb"`
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Record:       false,
		Dir:          "/var/spool/barcode-scanner",
		MaxFrames:    250,
		MinDiskSpace: 200,
	}
}

func (conf *RecorderConfig) Validate() error {
	if !conf.Record {
		return nil
	}
	if conf.Dir == "" {
		return errors.New("recorder dir is required when recording")
	}
	if conf.MaxFrames < 1 {
		return errors.New("max-frames should be at least 1")
	}
	return nil
}
