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

// Package metrics exports Prometheus counters for the scanning pipeline.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "barcode_scanner"

var (
	framesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames delivered by the camera while a session was running",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped because the previous frame was still being decoded",
	})

	cropErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "crop_errors_total",
		Help:      "Frames skipped because their buffer could not be cropped",
	})

	decodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "attempts_total",
		Help:      "Decode attempts by number of symbols found (none, one, many)",
	}, []string{"symbols"})

	decodesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "throttled_total",
		Help:      "Frames not decoded because the decode rate limit was reached",
	})

	results = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "results_total",
		Help:      "Finished scan sessions by result status",
	}, []string{"status"})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Capture sessions started",
	})
)

func FrameDelivered() { framesDelivered.Inc() }

func FrameDropped() { framesDropped.Inc() }

func CropFailed() { cropErrors.Inc() }

func DecodeThrottled() { decodesThrottled.Inc() }

func SessionStarted() { sessionsStarted.Inc() }

// Decoded records one decode attempt that found n symbols.
func Decoded(n int) {
	switch {
	case n == 0:
		decodes.WithLabelValues("none").Inc()
	case n == 1:
		decodes.WithLabelValues("one").Inc()
	default:
		decodes.WithLabelValues("many").Inc()
	}
}

// Finished records a session result, labelled with its status name.
func Finished(status string) {
	results.WithLabelValues(status).Inc()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables
// the endpoint.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
