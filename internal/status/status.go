// Package status renders a point-in-time view of the engine for the
// HTTP status endpoints (§6). internal/engine already owns its own
// mutex and Snapshot()/Mode() methods, so Tracker here only holds the
// daemon-wide facts the engine doesn't know about — start time and
// listener configuration — generalizing the teacher's
// status.Tracker (a second independent lock around daemon state) into
// a thin wrapper layered on top of the engine's existing lock.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sprinklerd/internal/engine"
	"github.com/sweeney/sprinklerd/internal/zone"
)

// Config contains daemon configuration for display.
type Config struct {
	HTTPPort string
	UDPPort  string
}

// ZoneView names one queue/current-run entry for display; RunItem
// only carries a zone index, so View resolves it against the
// zone.Index at snapshot time. Name is empty for the ZonePause
// sentinel.
type ZoneView struct {
	Zone    int
	Name    string
	Seconds int
	Parent  string
}

// Snapshot is a point-in-time view of daemon state, combining the
// engine's own Snapshot with the daemon facts a Tracker tracks. Value
// type — safe to use after the engine's lock is released.
type Snapshot struct {
	engine.Snapshot

	Queue       []ZoneView
	CurrentName string

	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds the daemon-wide facts the engine doesn't: when it
// started and what it's listening on.
type Tracker struct {
	mu    sync.RWMutex
	start time.Time
	cfg   Config
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{start: startTime, cfg: cfg}
}

// SetConfig updates the listener configuration shown in status
// output, for use after a config reload changes the webserver or udp
// port.
func (t *Tracker) SetConfig(cfg Config) {
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
}

// Snapshot takes the engine's own Snapshot and layers the daemon
// facts and zone-name resolution on top.
func (t *Tracker) Snapshot(eng *engine.Engine, zones *zone.Index) Snapshot {
	t.mu.RLock()
	start, cfg := t.start, t.cfg
	t.mu.RUnlock()

	es := eng.Snapshot()
	s := Snapshot{
		Snapshot:  es,
		StartTime: start,
		Now:       time.Now(),
		Config:    cfg,
	}
	s.Queue = make([]ZoneView, len(es.Queue))
	for i, item := range es.Queue {
		s.Queue[i] = ZoneView{Zone: item.Zone, Name: zoneName(zones, item.Zone), Seconds: item.Seconds, Parent: item.Parent}
	}
	if es.Running {
		s.CurrentName = zoneName(zones, es.CurrentZone)
	}
	return s
}

func zoneName(zones *zone.Index, i int) string {
	if i < 0 || zones == nil {
		return ""
	}
	z, ok := zones.ByIndex(i)
	if !ok {
		return ""
	}
	return z.Name
}
