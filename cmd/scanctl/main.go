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
	"log"
	"os"
	"time"

	arg "github.com/alexflint/go-arg"

	"github.com/TheCacophonyProject/barcode-scanner/scannerclient"
)

const pollInterval = 200 * time.Millisecond

var version = "<not set>"

type FlashCmd struct {
	State string `arg:"positional" help:"on, off or toggle"`
}

type ScanCmd struct {
	Timeout time.Duration `arg:"--timeout" help:"how long to wait for a barcode"`
}

type Args struct {
	Start    *struct{} `arg:"subcommand:start" help:"start scanning"`
	Stop     *struct{} `arg:"subcommand:stop" help:"stop scanning"`
	Cancel   *struct{} `arg:"subcommand:cancel" help:"cancel and release the scanner"`
	Flash    *FlashCmd `arg:"subcommand:flash" help:"control the torch"`
	Status   *struct{} `arg:"subcommand:status" help:"show the scanner state"`
	Result   *struct{} `arg:"subcommand:result" help:"show the last scan result"`
	Snapshot *struct{} `arg:"subcommand:snapshot" help:"save a still of the scanner input"`
	Scan     *ScanCmd  `arg:"subcommand:scan" help:"start scanning and wait for a barcode"`
}

func (Args) Version() string {
	return version
}

func main() {
	log.SetFlags(0)
	var args Args
	p := arg.MustParse(&args)
	if err := run(args); err != nil {
		if errors.Is(err, errNoCommand) {
			p.WriteHelp(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

var (
	errNoCommand = errors.New("no command given")
	errTimeout   = errors.New("timed out waiting for a barcode")
)

func run(args Args) error {
	switch {
	case args.Start != nil:
		return scannerclient.Start()
	case args.Stop != nil:
		return scannerclient.Stop()
	case args.Cancel != nil:
		return scannerclient.Cancel()
	case args.Flash != nil:
		return flash(args.Flash.State)
	case args.Status != nil:
		s, err := scannerclient.GetStatus()
		if err != nil {
			return err
		}
		fmt.Println(formatStatus(s))
		return nil
	case args.Result != nil:
		r, err := scannerclient.LastResult()
		if err != nil {
			return err
		}
		fmt.Println(formatResult(r))
		return nil
	case args.Snapshot != nil:
		return scannerclient.TakeSnapshot()
	case args.Scan != nil:
		r, err := scan(args.Scan.Timeout)
		if err != nil {
			return err
		}
		fmt.Println(formatResult(r))
		return nil
	}
	return errNoCommand
}

func flash(state string) error {
	var on bool
	var err error
	switch state {
	case "on":
		on, err = scannerclient.SetFlash(true)
	case "off":
		on, err = scannerclient.SetFlash(false)
	case "", "toggle":
		on, err = scannerclient.ToggleFlash()
	default:
		return fmt.Errorf("unknown flash state %q", state)
	}
	if err != nil {
		return err
	}
	fmt.Printf("torch: %v\n", on)
	return nil
}

func scan(timeout time.Duration) (*scannerclient.Result, error) {
	previous, err := scannerclient.LastResult()
	if err != nil {
		return nil, err
	}
	if err := scannerclient.Start(); err != nil {
		return nil, err
	}
	return waitForResult(previous.Session, timeout, scannerclient.LastResult)
}

// waitForResult polls until a result from a session other than previous
// arrives. A zero timeout waits forever.
func waitForResult(previous string, timeout time.Duration, last func() (*scannerclient.Result, error)) (*scannerclient.Result, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		r, err := last()
		if err != nil {
			return nil, err
		}
		if r.Status != "" && r.Session != previous {
			return r, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errTimeout
		}
		time.Sleep(pollInterval)
	}
}

func formatStatus(s *scannerclient.Status) string {
	out := "state: " + s.State
	if s.Session != "" {
		out += "\nsession: " + s.Session
	}
	if s.FlashAvailable {
		out += fmt.Sprintf("\ntorch: %v", s.Torch)
	} else {
		out += "\ntorch: unavailable"
	}
	return out
}

func formatResult(r *scannerclient.Result) string {
	switch r.Status {
	case "":
		return "no result yet"
	case "success":
		return fmt.Sprintf("%s: %s", r.Format, r.Text)
	case "error":
		return "error: " + r.Error
	}
	return r.Status
}
