// Command sprinkler-reset de-energises every configured zone and
// exits. It is the §6 reset tool: the service manager invokes it
// unconditionally on stop and restart, independent of whatever state
// sprinklerd's own Engine was in, so it loads configuration and talks
// to the HardwareDriver directly rather than through a running daemon.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/sprinklerd/internal/config"
	"github.com/sweeney/sprinklerd/internal/eventsink"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	doc, _, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	hwDoc, _, err := config.LoadHardware()
	if err != nil {
		return fmt.Errorf("load hardware config: %w", err)
	}

	rt, err := config.New(doc, hwDoc, nil)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	for _, z := range rt.Zones.All() {
		rt.Hardware.SetZone(z.Index, false)
	}
	rt.Hardware.Apply()

	rt.Sink.Record(eventsink.Data{Action: eventsink.ActionCancel, Source: "sprinkler-reset"})

	log.Printf("de-energised %d zones at %s", rt.Zones.Len(), time.Now().UTC().Format(time.RFC3339))
	return nil
}
