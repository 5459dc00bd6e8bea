package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/sprinklerd/internal/engine"
	"github.com/sweeney/sprinklerd/internal/hardware"
	"github.com/sweeney/sprinklerd/internal/program"
	"github.com/sweeney/sprinklerd/internal/raindelay"
	"github.com/sweeney/sprinklerd/internal/zone"
)

func testZones(t *testing.T) *zone.Index {
	idx, err := zone.NewIndex([]zone.Zone{{Name: "front"}, {Name: "back"}})
	if err != nil {
		t.Fatalf("zone.NewIndex: %v", err)
	}
	return idx
}

func newTestEngine(t *testing.T, now time.Time) *engine.Engine {
	zones := testZones(t)
	cfg := engine.Config{
		Zones:    zones,
		Programs: []program.Program{},
		Rain:     raindelay.New(),
		Hardware: hardware.NewNull(),
	}
	return engine.New(cfg, func() time.Time { return now })
}

func TestTrackerSnapshotCarriesEngineState(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(15 * time.Minute)
	zones := testZones(t)
	eng := newTestEngine(t, now)
	eng.SetOn(true)

	tr := NewTracker(start, Config{HTTPPort: ":8080"})
	snap := tr.Snapshot(eng, zones)

	if snap.Mode != engine.ModeIdle {
		t.Errorf("Mode = %v, want idle", snap.Mode)
	}
	if !snap.On {
		t.Error("expected On=true")
	}
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", snap.StartTime, start)
	}
	if snap.Config.HTTPPort != ":8080" {
		t.Errorf("Config.HTTPPort = %q, want :8080", snap.Config.HTTPPort)
	}
}

func TestTrackerSnapshotResolvesZoneNames(t *testing.T) {
	start := time.Now()
	zones := testZones(t)
	eng := newTestEngine(t, start)
	eng.SetOn(true)
	eng.ZoneOnManual(0, 60)

	tr := NewTracker(start, Config{})
	snap := tr.Snapshot(eng, zones)

	if !snap.Running {
		t.Fatal("expected Running=true after ZoneOnManual")
	}
	if snap.CurrentName != "front" {
		t.Errorf("CurrentName = %q, want front", snap.CurrentName)
	}
}

func TestTrackerSnapshotCurrentNameAfterReplace(t *testing.T) {
	start := time.Now()
	zones := testZones(t)
	eng := newTestEngine(t, start)
	eng.SetOn(true)
	eng.ZoneOnManual(0, 60)
	eng.ZoneOnManual(1, 30) // cancels and restarts with zone 1 only

	tr := NewTracker(start, Config{})
	snap := tr.Snapshot(eng, zones)
	if snap.CurrentName != "back" {
		t.Errorf("CurrentName = %q, want back", snap.CurrentName)
	}
}

func TestSetConfig(t *testing.T) {
	tr := NewTracker(time.Now(), Config{HTTPPort: ":8080"})
	tr.SetConfig(Config{HTTPPort: ":9090", UDPPort: ":9091"})

	eng := newTestEngine(t, time.Now())
	snap := tr.Snapshot(eng, testZones(t))
	if snap.Config.HTTPPort != ":9090" || snap.Config.UDPPort != ":9091" {
		t.Errorf("Config after SetConfig = %+v", snap.Config)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime = %v, want 15m", snap.Uptime())
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Snapshot: engine.Snapshot{
			Mode: engine.ModeIdle,
			On:   true,
		},
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{HTTPPort: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Mode != "idle" {
		t.Errorf("Mode = %q, want idle", parsed.Status.Mode)
	}
	if !parsed.Status.On {
		t.Error("expected On=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds = %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
}

func TestFormatJSONWithRunningZoneAndQueue(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Snapshot: engine.Snapshot{
			Mode:          engine.ModeRunning,
			On:            true,
			Running:       true,
			CurrentZone:   0,
			Remaining:     45,
			CurrentParent: "Morning",
		},
		CurrentName: "front",
		Queue: []ZoneView{
			{Zone: engine.ZonePause, Seconds: 10},
			{Zone: 1, Name: "back", Seconds: 300, Parent: "Morning"},
		},
		StartTime: start,
		Now:       start,
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Current == nil || parsed.Status.Current.Name != "front" || parsed.Status.Current.Remaining != 45 {
		t.Fatalf("Current = %+v", parsed.Status.Current)
	}
	if len(parsed.Status.Queue) != 2 || parsed.Status.Queue[1].Name != "back" {
		t.Fatalf("Queue = %+v", parsed.Status.Queue)
	}
	if parsed.Status.Queue[0].Zone != engine.ZonePause {
		t.Errorf("Queue[0].Zone = %d, want pause sentinel", parsed.Status.Queue[0].Zone)
	}
}

func TestFormatJSONRainDeadlineOmittedWhenZero(t *testing.T) {
	snap := Snapshot{StartTime: time.Now(), Now: time.Now()}
	data := FormatJSON(snap)

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["rain_deadline"]; exists {
		t.Error("rain_deadline should be omitted when zero")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Snapshot:  engine.Snapshot{Mode: engine.ModeOff},
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event = %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason = %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: time.Now(), Now: time.Now()}
	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event = %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	start := time.Now()
	zones := testZones(t)
	eng := newTestEngine(t, start)
	eng.SetOn(true)
	tr := NewTracker(start, Config{HTTPPort: ":8080"})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetConfig(Config{HTTPPort: ":8080"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot(eng, zones)
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
