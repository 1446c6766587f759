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
	"fmt"
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/barcode-scanner/frame"
)

type Config struct {
	FrameOutput string `yaml:"frame-output"`
	Input       string `yaml:"input"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Rotation    int    `yaml:"rotation"`
	FPS         int    `yaml:"fps"`
	Loop        bool   `yaml:"loop"`
	Brand       string `yaml:"brand"`
	Model       string `yaml:"model"`
}

var defaultConfig = Config{
	FrameOutput: "/var/run/camera-frames",
	Input:       "/var/lib/frame-replay/frames.nv21",
	Width:       1920,
	Height:      1080,
	Rotation:    90,
	FPS:         25,
	Loop:        true,
	Brand:       "cacophony",
	Model:       "frame-replay",
}

func (conf *Config) Metadata() frame.Metadata {
	return frame.Metadata{
		Width:    conf.Width,
		Height:   conf.Height,
		Rotation: frame.Rotation(conf.Rotation),
		Format:   frame.NV21,
	}
}

func (conf *Config) Validate() error {
	if conf.FrameOutput == "" {
		return errors.New("frame-output is required")
	}
	if conf.Input == "" {
		return errors.New("input is required")
	}
	if conf.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", conf.FPS)
	}
	return conf.Metadata().Validate()
}

func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
