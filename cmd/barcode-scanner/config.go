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
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/barcode-scanner/recorder"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
	"github.com/TheCacophonyProject/barcode-scanner/throttle"
	"github.com/TheCacophonyProject/barcode-scanner/viewfinder"
)

type Config struct {
	CameraInput string                   `yaml:"camera-input"`
	OutputDir   string                   `yaml:"output-dir"`
	AutoStart   bool                     `yaml:"auto-start"`
	Beep        bool                     `yaml:"beep"`
	Flash       bool                     `yaml:"flash"`
	Box         bool                     `yaml:"box"`
	BoxWidth    int                      `yaml:"box-width"`
	BoxHeight   int                      `yaml:"box-height"`
	Density     float64                  `yaml:"density"`
	ViewWidth   int                      `yaml:"view-width"`
	ViewHeight  int                      `yaml:"view-height"`
	Portrait    bool                     `yaml:"portrait"`
	TorchPin    string                   `yaml:"torch-pin"`
	TryHarder   bool                     `yaml:"try-harder"`
	MetricsAddr string                   `yaml:"metrics-addr"`
	Camera      scanner.CameraConfig     `yaml:"camera"`
	Throttler   throttle.ThrottlerConfig `yaml:"throttle"`
	Recorder    recorder.RecorderConfig  `yaml:"recorder"`
}

var defaultConfig = Config{
	CameraInput: "/var/run/camera-frames",
	OutputDir:   "/var/spool/barcode-scanner",
	AutoStart:   false,
	Beep:        true,
	Flash:       true,
	Box:         false,
	BoxWidth:    viewfinder.DefaultBox().Width,
	BoxHeight:   viewfinder.DefaultBox().Height,
	Density:     1,
	ViewWidth:   1080,
	ViewHeight:  1920,
	Portrait:    true,
	TorchPin:    "",
	TryHarder:   true,
	MetricsAddr: "",
	Camera:      scanner.DefaultCameraConfig(),
	Throttler:   throttle.DefaultThrottlerConfig(),
	Recorder:    recorder.DefaultRecorderConfig(),
}

func (conf *Config) Validate() error {
	if conf.CameraInput == "" {
		return errors.New("camera-input is required")
	}
	if conf.Box && (conf.BoxWidth <= 0 || conf.BoxHeight <= 0) {
		return fmt.Errorf("invalid box size %dx%d", conf.BoxWidth, conf.BoxHeight)
	}
	if conf.Density <= 0 {
		return fmt.Errorf("density must be positive, got %v", conf.Density)
	}
	if conf.ViewWidth <= 0 || conf.ViewHeight <= 0 {
		return fmt.Errorf("invalid view size %dx%d", conf.ViewWidth, conf.ViewHeight)
	}
	if err := conf.Camera.Validate(); err != nil {
		return err
	}
	if err := conf.Throttler.Validate(); err != nil {
		return err
	}
	if err := conf.Recorder.Validate(); err != nil {
		return err
	}
	return nil
}

// ScannerConfig is the part of the configuration a capture session uses.
func (conf *Config) ScannerConfig() scanner.Config {
	return scanner.Config{
		Camera:  conf.Camera,
		ShowBox: conf.Box,
		Box:     viewfinder.Box{Width: conf.BoxWidth, Height: conf.BoxHeight},
		Density: conf.Density,
		Flash:   conf.Flash,
	}
}

func (conf *Config) View() viewfinder.Size {
	return viewfinder.Size{Width: conf.ViewWidth, Height: conf.ViewHeight}
}

func ParseConfigFile(filename string) (*Config, error) {
	buf, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
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
