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
	"log"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
)

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	Input      string `arg:"-i,--input" help:"raw NV21 frames to replay, overrides the config"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/frame-replay.yaml"
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()
	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	if args.Input != "" {
		conf.Input = args.Input
	}
	logConfig(conf)

	daemon.SdNotify(false, "READY=1")
	return listen(conf)
}

func logConfig(conf *Config) {
	log.Printf("frame output: %s", conf.FrameOutput)
	log.Printf("input: %s", conf.Input)
	log.Printf("frames: %dx%d rotation %d at %d fps", conf.Width, conf.Height, conf.Rotation, conf.FPS)
	log.Printf("loop: %v", conf.Loop)
}
