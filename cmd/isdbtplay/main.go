/*
DESCRIPTION
  isdbtplay is a demo command that demuxes and sorts an ISDB-T
  Transport Stream capture file, printing service/stream/event
  catalog changes and elementary-stream arrival as they occur.

LICENSE
  Copyright (C) 2026 the isdbt authors. All Rights Reserved.
*/

// Package main implements isdbtplay, a demo player driving the
// demux/sorter/player pipeline against a capture file.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/isdbt/demux"
	"github.com/ausocean/isdbt/player"
	"github.com/ausocean/isdbt/sorter"
	"github.com/ausocean/isdbt/ts"
)

// Logging configuration: log file rotation policy and verbosity for
// isdbtplay.
const (
	logPath      = "isdbtplay.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = false
)

func main() {
	path := flag.String("i", "", "path to a Transport Stream capture file")
	tail := flag.Bool("f", false, "tail the capture file as it grows, like tail -f")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on, e.g. :9090")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "isdbtplay: -i <capture file> is required")
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting isdbtplay")

	var metrics *player.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = player.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Error("metrics server exited", "error", http.ListenAndServe(*metricsAddr, mux).Error())
		}()
		log.Info("serving metrics", "addr", *metricsAddr)
	}

	loop := player.NewEventLoop(64)
	var p *player.Player
	shooter := player.NewShooter(nil, loop, log)
	srt := sorter.New(shooter, log)
	dx := demux.New(srt, log)

	src, err := openSource(*path, *tail)
	if err != nil {
		log.Fatal("could not open capture file", "error", err.Error())
	}

	p, err = player.New(src, dx, srt, player.WithLogger(log), player.WithMetrics(metrics))
	if err != nil {
		log.Fatal("could not construct player", "error", err.Error())
	}
	shooter.SetPlayer(p)

	go func() {
		if err := p.Run(); err != nil {
			log.Error("player run failed", "error", err.Error())
		}
		shooter.OnEndOfStream()
	}()

	drainEvents(log, loop, p)
}

// openSource returns a player.Source over path: a FileSource that
// tails the capture as it grows when tail is set, or a plain
// ts.Reader that reports end of stream once the file is exhausted.
func openSource(path string, tail bool) (player.Source, error) {
	if tail {
		return player.NewFileSource(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return ts.NewReader(f), nil
}

// drainEvents prints catalog/caption events on the main goroutine
// until the player signals end of stream, popping any queued samples
// as a stand-in for real renderer delivery.
func drainEvents(log logging.Logger, loop *player.EventLoop, p *player.Player) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-loop.Events():
			if !ok {
				return
			}
			logEvent(log, ev)
			if ev.Kind == player.EventEndOfStream {
				p.Close()
				return
			}
		case <-ticker.C:
			for {
				s, ok := p.PopVideoSample()
				if !ok {
					break
				}
				_ = s
			}
			for {
				s, ok := p.PopAudioSample()
				if !ok {
					break
				}
				_ = s
			}
		}
	}
}

func logEvent(log logging.Logger, ev player.Event) {
	switch ev.Kind {
	case player.EventServicesUpdated:
		log.Info("services updated")
	case player.EventStreamsUpdated:
		if ev.Service != nil {
			log.Info("streams updated", "service", ev.Service.ServiceName)
		}
	case player.EventEventUpdated:
		if ev.Service != nil {
			log.Info("event updated", "service", ev.Service.ServiceName, "present", ev.IsPresent)
		}
	case player.EventServiceChanged:
		if ev.Service != nil {
			log.Info("service changed", "service", ev.Service.ServiceName)
		}
	case player.EventStreamChanged:
		log.Info("stream changed", "mask", ev.Changed)
	case player.EventCaption:
		log.Info("caption received")
	case player.EventStreamError:
		log.Error("stream error", "error", ev.Err.Error())
	}
}
