// Package engine is the sprinkler core described in spec.md §4.5-4.7:
// the Scheduler decides when a Program is due, the Executor turns a
// due Program into a sequence of physical zone activations, and the
// manual controller lets a button or an API call bypass scheduling
// entirely. All three share one Engine value and its mutex — there is
// no module-scope singleton (§9's "Ambient mutable state per file"
// guidance), mirroring the teacher's single status.Tracker-per-process
// shape generalized to a richer state machine.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/sprinklerd/internal/adjust"
	"github.com/sweeney/sprinklerd/internal/calendar"
	"github.com/sweeney/sprinklerd/internal/eventsink"
	"github.com/sweeney/sprinklerd/internal/hardware"
	"github.com/sweeney/sprinklerd/internal/program"
	"github.com/sweeney/sprinklerd/internal/raindelay"
	"github.com/sweeney/sprinklerd/internal/wateringindex"
	"github.com/sweeney/sprinklerd/internal/weather"
	"github.com/sweeney/sprinklerd/internal/zone"
)

// Mode is the whole-core run mode of §4.7.
type Mode string

const (
	ModeOff      Mode = "off"
	ModeIdle     Mode = "idle"
	ModeRainHold Mode = "rainhold"
	ModeRunning  Mode = "running"
)

type phase int

const (
	phaseIdle phase = iota
	phaseRunning
	phaseSettling
)

// Snapshot is a point-in-time, value-typed copy of Engine state safe
// to hand to a caller without aliasing — same shape the teacher's
// status.Tracker returns from Snapshot().
type Snapshot struct {
	Mode         Mode
	On           bool
	RainHold     bool
	RainDeadline time.Time
	Queue        []RunItem
	Running      bool
	CurrentZone  int
	Remaining    int
	CurrentParent string
}

// Engine holds every collaborator the Scheduler, Executor and manual
// controller need, plus the queue/run state they mutate under one
// lock.
type Engine struct {
	mu sync.Mutex

	zones    *zone.Index
	adjustTb *adjust.Table
	seasons  *adjust.Seasons
	hw       hardware.Driver
	sink     *eventsink.Sink
	rain     *raindelay.State
	weatherA *weather.Adjuster
	wiA      *wateringindex.Adjuster
	cal      *calendar.Importer

	loc *time.Location

	on        bool
	rainDelay bool

	programs []program.Program // user-authored (§3); mutated in place for anchoring

	lastScheduleCheck string // "HH:MM"; gates §4.5's once-per-minute rule

	queue           []RunItem
	ph              phase
	cur             RunItem
	remaining       int
	settleRemaining int
	runStart        time.Time

	button buttonState

	now func() time.Time
}

// Config bundles the collaborators New needs; constructed once at
// startup and again on every config reload (§5: "Config reload
// re-initialises refreshers and the HardwareDriver; it does not touch
// the current queue nor the in-flight run").
type Config struct {
	Zones    *zone.Index
	AdjustTb *adjust.Table
	Seasons  *adjust.Seasons
	Hardware hardware.Driver
	Sink     *eventsink.Sink
	Rain     *raindelay.State
	Weather  *weather.Adjuster
	WI       *wateringindex.Adjuster
	Calendar *calendar.Importer
	Location *time.Location
	Programs []program.Program
}

// New constructs an Engine from cfg. now defaults to time.Now.
func New(cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		zones:    cfg.Zones,
		adjustTb: cfg.AdjustTb,
		seasons:  cfg.Seasons,
		hw:       cfg.Hardware,
		sink:     cfg.Sink,
		rain:     cfg.Rain,
		weatherA: cfg.Weather,
		wiA:      cfg.WI,
		cal:      cfg.Calendar,
		loc:      cfg.Location,
		programs: cfg.Programs,
		now:      now,
	}
}

// Reconfigure swaps in new collaborators without disturbing the
// in-flight run or queue (§5).
func (e *Engine) Reconfigure(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zones = cfg.Zones
	e.adjustTb = cfg.AdjustTb
	e.seasons = cfg.Seasons
	e.hw = cfg.Hardware
	e.sink = cfg.Sink
	e.rain = cfg.Rain
	e.weatherA = cfg.Weather
	e.wiA = cfg.WI
	e.cal = cfg.Calendar
	e.loc = cfg.Location
	e.programs = cfg.Programs
}

// SetOn toggles the top-level on/off flag (§4.7), emitting the ON/OFF
// event §4.2's EventRecord.action enum names for it.
func (e *Engine) SetOn(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if on == e.on {
		return
	}
	e.on = on
	action := eventsink.ActionOff
	if on {
		action = eventsink.ActionOn
	}
	e.emitLocked(e.now(), eventsink.Data{Action: action})
}

// SetRainDelayEnabled toggles whether the Scheduler honours rain
// detection at all (§6 `raindelay` flag).
func (e *Engine) SetRainDelayEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rainDelay = enabled
}

// ExtendRainDelay arms the rain-delay deadline directly, for the
// control-surface "extend raindelay" operation (§6).
func (e *Engine) ExtendRainDelay() {
	e.rain.Arm(e.now())
}

// ClearRainDelay disables the rain-delay deadline.
func (e *Engine) ClearRainDelay() {
	e.rain.Clear()
}

// Mode reports the whole-core run mode of §4.7.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	on, rainDelay, ph := e.on, e.rainDelay, e.ph
	e.mu.Unlock()

	if !on {
		return ModeOff
	}
	if ph != phaseIdle {
		return ModeRunning
	}
	if rainDelay && e.rain.Active(e.now()) {
		return ModeRainHold
	}
	return ModeIdle
}

// Snapshot returns a copy of the Engine's current state for status
// reporting.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Mode:         e.modeLocked(),
		On:           e.on,
		RainHold:     e.rainDelay && e.rain.Active(e.now()),
		RainDeadline: e.rain.Deadline(),
		Queue:        append([]RunItem(nil), e.queue...),
		Running:      e.ph != phaseIdle,
		CurrentParent: e.cur.Parent,
	}
	if e.ph == phaseRunning {
		s.CurrentZone = e.cur.Zone
		s.Remaining = e.remaining
	}
	return s
}

func (e *Engine) modeLocked() Mode {
	if !e.on {
		return ModeOff
	}
	if e.ph != phaseIdle {
		return ModeRunning
	}
	if e.rainDelay && e.rain.Active(e.now()) {
		return ModeRainHold
	}
	return ModeIdle
}

func (e *Engine) logf(format string, args ...any) {
	log.Printf("engine: "+format, args...)
}

func updateEvent(source string) eventsink.Data {
	return eventsink.Data{Action: eventsink.ActionUpdate, Source: source}
}
