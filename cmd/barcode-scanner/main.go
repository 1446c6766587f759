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
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"periph.io/x/periph/host"

	"github.com/TheCacophonyProject/barcode-scanner/camera"
	"github.com/TheCacophonyProject/barcode-scanner/decoder"
	"github.com/TheCacophonyProject/barcode-scanner/location"
	"github.com/TheCacophonyProject/barcode-scanner/metrics"
	"github.com/TheCacophonyProject/barcode-scanner/recorder"
	"github.com/TheCacophonyProject/barcode-scanner/scanner"
	"github.com/TheCacophonyProject/barcode-scanner/throttle"
)

const (
	brand = "cacophony"
	model = "barcode-scanner"
)

var version = "<not set>"

type Args struct {
	ConfigFile   string `arg:"-c,--config" help:"path to configuration file"`
	ConfigDir    string `arg:"-d,--config-dir" help:"path to the shared device configuration folder"`
	LocationFile string `arg:"-l,--location" help:"path to location file"`
	Timestamps   bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/barcode-scanner.yaml"
	args.ConfigDir = defaultConfigDir
	args.LocationFile = location.DefaultFile
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

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	logConfig(conf)

	device, err := loadDevice(args.ConfigDir)
	if err != nil {
		log.Printf("device identity unavailable: %v", err)
	} else {
		log.Printf("device: %s (%d)", device.Name, device.ID)
	}

	loc, err := location.Load(args.LocationFile)
	if err != nil {
		log.Printf("ignoring location: %v", err)
	} else if loc == nil {
		log.Println("location unknown")
	}

	if conf.TorchPin != "" {
		log.Println("host initialisation")
		if _, err := host.Init(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(conf.OutputDir, 0755); err != nil {
		return err
	}
	deleteSnapshot(conf.OutputDir)

	var rec recorder.Recorder = new(recorder.NoWriteRecorder)
	var observers []scanner.Observer
	if conf.Recorder.Record {
		log.Println("deleting temp files")
		if err := recorder.DeleteTempFiles(conf.Recorder.Dir); err != nil {
			return err
		}
		cptvRecorder := recorder.NewCPTVRecorder(conf.Recorder, device, loc, conf.Camera.FPS, brand, model)
		defer cptvRecorder.Stop()
		rec = cptvRecorder
		observers = append(observers, cptvRecorder)
	}

	var dec scanner.Decoder = decoder.New(conf.TryHarder)
	if conf.Throttler.ApplyThrottling {
		dec = throttle.NewThrottledDecoder(dec, conf.Throttler, throttle.ThrottledEventRecorder{})
	}

	snapshots := newSnapshotter(conf.OutputDir, nil)
	observers = append(observers, snapshots)

	listener := newScanListener(rec, conf.Beep, os.Stderr)
	listener.location = loc
	listener.device = device
	cam := camera.New(conf.CameraInput, camera.TorchPin(conf.TorchPin))
	controller := scanner.New(cam, dec, listener, observers...)
	defer func() {
		controller.Release()
		listener.flush()
		if err := rec.StopRecording(); err != nil {
			log.Printf("failed to finish recording: %v", err)
		}
	}()
	snapshots.overlay = controller

	if err := controller.Configure(conf.ScannerConfig()); err != nil {
		return err
	}
	if err := controller.SetPermission(true); err != nil {
		return err
	}
	if err := controller.LayoutComplete(conf.View(), conf.Portrait); err != nil {
		return err
	}

	log.Println("starting d-bus service")
	if err := startService(controller, conf.ScannerConfig(), listener, snapshots); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := metrics.Serve(ctx, conf.MetricsAddr); err != nil {
			log.Printf("metrics server failed: %v", err)
		}
	}()

	ticker := time.NewTicker(surfacePollInterval)
	defer ticker.Stop()
	go watchSurface(ctx, controller, conf.CameraInput, ticker.C)

	if conf.AutoStart {
		if err := controller.Start(); err != nil {
			return err
		}
	}

	daemon.SdNotify(false, "READY=1")
	go watchdog(ctx)

	select {
	case <-ctx.Done():
		log.Println("shutting down")
	case <-controller.Done():
		log.Println("scanner released")
	}
	return nil
}

// watchdog keeps systemd informed while the service is running. It does
// nothing when the unit has no watchdog configured.
func watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			daemon.SdNotify(false, "WATCHDOG=1")
		}
	}
}

func logConfig(conf *Config) {
	log.Printf("camera input: %s", conf.CameraInput)
	log.Printf("output dir: %s", conf.OutputDir)
	log.Printf("camera: %+v", conf.Camera)
	if conf.Box {
		log.Printf("scan box: %dx%d dp at density %.2f", conf.BoxWidth, conf.BoxHeight, conf.Density)
	}
	log.Printf("view: %dx%d portrait=%v", conf.ViewWidth, conf.ViewHeight, conf.Portrait)
	log.Printf("beep: %v flash: %v", conf.Beep, conf.Flash)
	if conf.TorchPin != "" {
		log.Printf("torch pin: %s", conf.TorchPin)
	}
	log.Printf("throttler: %+v", conf.Throttler)
	if conf.Recorder.Record {
		log.Printf("recorder: %+v", conf.Recorder)
	}
	if conf.MetricsAddr != "" {
		log.Printf("metrics: %s", conf.MetricsAddr)
	}
}
