// Command sprinklerd runs the irrigation scheduler described in
// spec.md: it loads config.json/hardware.json, drives the Scheduler
// and Executor on a 1s/10s/60s tick cadence, and serves the status
// and control-surface HTTP endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sweeney/sprinklerd/internal/config"
	"github.com/sweeney/sprinklerd/internal/engine"
	"github.com/sweeney/sprinklerd/internal/eventsink"
	"github.com/sweeney/sprinklerd/internal/status"
	"github.com/sweeney/sprinklerd/internal/web"
	"github.com/sweeney/sprinklerd/internal/zone"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	doc, cfgPath, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	hwDoc, hwPath, err := config.LoadHardware()
	if err != nil {
		return fmt.Errorf("load hardware config: %w", err)
	}
	log.Printf("loaded %s, %s", cfgPath, hwPath)

	rt, err := config.New(doc, hwDoc, nil)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	eng := engine.New(rt.EngineConfig(), nil)
	eng.SetOn(doc.On)
	eng.SetRainDelayEnabled(doc.RainDelay)

	rt.Sink.Record(eventsink.Data{Action: eventsink.ActionStartup})

	httpPort := fmt.Sprintf(":%d", doc.Webserver.Port)
	udpPort := httpPort
	if doc.UDP.Port != 0 {
		udpPort = fmt.Sprintf(":%d", doc.UDP.Port)
	}

	tracker := status.NewTracker(time.Now(), status.Config{HTTPPort: httpPort, UDPPort: udpPort})

	var zonesRef atomic.Pointer[zone.Index]
	zonesRef.Store(rt.Zones)

	srv := web.New(httpPort, tracker, eng, zonesRef.Load)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())
	log.Printf("http status server listening on %s", httpPort)

	rt.Hardware.ButtonInterrupt(func(bool) { eng.ButtonPress() })

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)

	return runLoop(eng, rt, tracker, &zonesRef, ticker.C, sigCh, reloadCh)
}

// runLoop drives the Engine's tick cadence from a single 1s ticker:
// TickSecond every tick, TickSchedule every 10th, TickRefresh every
// 60th, mirroring the teacher's single-ticker runLoop rather than
// three independent time.Tickers drifting against each other. SIGHUP
// triggers activateConfig (§5): reload config.json/hardware.json and
// re-seat the Engine's collaborators without disturbing its queue or
// in-flight run.
func runLoop(eng *engine.Engine, rt *config.Runtime, tracker *status.Tracker, zonesRef *atomic.Pointer[zone.Index], tick <-chan time.Time, sig, reload <-chan os.Signal) error {
	var n int
	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			switch s {
			case syscall.SIGINT:
				signalName = "SIGINT"
			case syscall.SIGTERM:
				signalName = "SIGTERM"
			}
			log.Printf("received %v (%s), shutting down", s, signalName)
			return nil

		case <-reload:
			log.Printf("received SIGHUP, reloading config")
			if err := reloadConfig(eng, rt, tracker, zonesRef); err != nil {
				log.Printf("config reload failed: %v", err)
			}

		case t := <-tick:
			n++
			eng.TickSecond(t)
			if n%10 == 0 {
				eng.TickSchedule(t)
			}
			if n%60 == 0 {
				eng.TickRefresh(t)
			}
		}
	}
}

func reloadConfig(eng *engine.Engine, rt *config.Runtime, tracker *status.Tracker, zonesRef *atomic.Pointer[zone.Index]) error {
	doc, _, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	hwDoc, _, err := config.LoadHardware()
	if err != nil {
		return fmt.Errorf("load hardware config: %w", err)
	}
	if err := rt.Reload(doc, hwDoc); err != nil {
		return err
	}
	eng.Reconfigure(rt.EngineConfig())
	zonesRef.Store(rt.Zones)

	httpPort := fmt.Sprintf(":%d", doc.Webserver.Port)
	udpPort := httpPort
	if doc.UDP.Port != 0 {
		udpPort = fmt.Sprintf(":%d", doc.UDP.Port)
	}
	tracker.SetConfig(status.Config{HTTPPort: httpPort, UDPPort: udpPort})
	return nil
}
