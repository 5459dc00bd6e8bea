package engine

import (
	"testing"
	"time"

	"github.com/sweeney/sprinklerd/internal/adjust"
	"github.com/sweeney/sprinklerd/internal/calendar"
	"github.com/sweeney/sprinklerd/internal/eventsink"
	"github.com/sweeney/sprinklerd/internal/hardware"
	"github.com/sweeney/sprinklerd/internal/program"
	"github.com/sweeney/sprinklerd/internal/raindelay"
	"github.com/sweeney/sprinklerd/internal/zone"
)

func newTestEngine(t *testing.T, zones []zone.Zone, programs []program.Program, clock *time.Time) (*Engine, *hardware.Fake, *eventsink.Sink) {
	t.Helper()
	idx, err := zone.NewIndex(zones)
	if err != nil {
		t.Fatal(err)
	}
	fake := hardware.NewFake()
	sink, err := eventsink.New(eventsink.Config{}, func() time.Time { return *clock })
	if err != nil {
		t.Fatal(err)
	}
	loc := time.UTC
	e := New(Config{
		Zones:    idx,
		AdjustTb: adjust.NewTable(nil),
		Seasons:  adjust.NewSeasons(nil),
		Hardware: fake,
		Sink:     sink,
		Rain:     raindelay.New(),
		Location: loc,
		Programs: programs,
	}, func() time.Time { return *clock })
	e.SetOn(true)
	return e, fake, sink
}

func mustFind(t *testing.T, sink *eventsink.Sink, f eventsink.Filter) []eventsink.Record {
	t.Helper()
	recs, err := sink.Find(f)
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

// Scenario 1: weekly program fires on the right day (§8.1).
func TestWeeklyProgramFiresOnRightDay(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC) // Tuesday
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster}}
	var days [7]bool
	days[2] = true // Tuesday
	progs := []program.Program{{
		Name: "W", Active: true, Start: "06:00", Repeat: program.RepeatWeekly, Days: days,
		Zones: []program.ZoneRun{{Zone: 0, Seconds: 60}},
	}}
	e, fake, sink := newTestEngine(t, zones, progs, &clock)

	e.TickSchedule(clock)

	if !fake.IsOn(0) {
		t.Fatal("expected zone 0 energised")
	}

	for i := 0; i < 60; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}

	if fake.IsOn(0) {
		t.Fatal("expected zone 0 off after 60s")
	}

	starts := mustFind(t, sink, eventsink.Filter{Action: eventsink.ActionStart})
	ends := mustFind(t, sink, eventsink.Filter{Action: eventsink.ActionEnd})
	if len(starts) != 2 { // program START + zone START
		t.Errorf("got %d START events, want 2", len(starts))
	}
	if len(ends) != 2 { // zone END + program END
		t.Errorf("got %d END events, want 2", len(ends))
	}
}

// Scenario 2: daily interval skipping (§8.2).
func TestDailyIntervalSkipping(t *testing.T) {
	clock := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster}, {Name: "z1", Master: zone.NoMaster}}
	progs := []program.Program{{
		Name: "D", Active: true, Start: "07:00", Repeat: program.RepeatDaily, Interval: 2, Date: "20240101",
		Zones: []program.ZoneRun{{Zone: 1, Seconds: 30}},
	}}
	e, fake, _ := newTestEngine(t, zones, progs, &clock)

	e.TickSchedule(clock)
	if fake.IsOn(1) {
		t.Fatal("expected no fire on 2024-01-02 (delta=1, interval=2)")
	}

	// The once-per-minute gate keys on HH:MM only, so a tick at a later
	// minute runs in between, as the 10s heartbeat would.
	clock = time.Date(2024, 1, 2, 7, 1, 0, 0, time.UTC)
	e.TickSchedule(clock)

	clock = time.Date(2024, 1, 3, 7, 0, 0, 0, time.UTC)
	e.TickSchedule(clock)
	if !fake.IsOn(1) {
		t.Fatal("expected fire on 2024-01-03 (delta=2, interval=2)")
	}
}

// Scenario 3: pulse splitting with pause (§8.3). Round-robin emission
// gives one pulse-sized chunk per round, with a group pause after
// every round that leaves the zone still needing more time; the tail
// (15s here) is not <15s so it is kept, not dropped.
func TestPulseSplittingWithPause(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster, Pulse: 20, Pause: 10}}
	progs := []program.Program{{
		Name: "P", Active: true, Start: "06:00", Repeat: program.RepeatNone,
		Zones: []program.ZoneRun{{Zone: 0, Seconds: 55}},
	}}
	e, _, _ := newTestEngine(t, zones, progs, &clock)

	e.mu.Lock()
	p := e.programs[0]
	e.programOnLocked(&p, clock)
	queue := append([]RunItem(nil), e.queue...)
	cur := e.cur
	e.mu.Unlock()

	all := append([]RunItem{cur}, queue...)
	want := []RunItem{
		{Zone: 0, Seconds: 20}, {Zone: ZonePause, Seconds: 10},
		{Zone: 0, Seconds: 20}, {Zone: ZonePause, Seconds: 10},
		{Zone: 0, Seconds: 15},
	}
	if len(all) != len(want) {
		t.Fatalf("got %d items %+v, want %d %+v", len(all), all, len(want), want)
	}
	for i := range want {
		if all[i].Zone != want[i].Zone || all[i].Seconds != want[i].Seconds {
			t.Errorf("item %d = %+v, want %+v", i, all[i], want[i])
		}
	}

	total := 0
	for _, it := range all {
		if it.Zone == 0 {
			total += it.Seconds
		}
	}
	if total != 55 {
		t.Errorf("total zone-0 seconds = %d, want 55 (tail 15 is not <15 so it survives)", total)
	}
}

// Tail shorter than 15s and shorter than pulse is dropped (§4.6,
// §9's "Tail-drop threshold is exactly <15s").
func TestPulseTailDropped(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster, Pulse: 20}}
	progs := []program.Program{{
		Name: "P", Active: true, Start: "06:00", Repeat: program.RepeatNone,
		Zones: []program.ZoneRun{{Zone: 0, Seconds: 45}},
	}}
	e, _, _ := newTestEngine(t, zones, progs, &clock)

	e.mu.Lock()
	p := e.programs[0]
	e.programOnLocked(&p, clock)
	queue := append([]RunItem(nil), e.queue...)
	cur := e.cur
	e.mu.Unlock()

	all := append([]RunItem{cur}, queue...)
	total := 0
	for _, it := range all {
		if it.Zone == 0 {
			total += it.Seconds
		}
	}
	if total != 40 {
		t.Errorf("got total zone-0 seconds %d, want 40 (45 truncated: 20+20, 5s tail dropped)", total)
	}
}

// Scenario 4: rain delay does not abort an in-flight run (§8.4).
func TestRainDelayDoesNotAbortRunningProgram(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster}}
	progs := []program.Program{{
		Name: "R", Active: true, Start: "06:00", Repeat: program.RepeatNone,
		Zones: []program.ZoneRun{{Zone: 0, Seconds: 120}},
	}}
	e, fake, _ := newTestEngine(t, zones, progs, &clock)
	e.SetRainDelayEnabled(true)

	e.TickSchedule(clock)
	if !fake.IsOn(0) {
		t.Fatal("expected zone 0 running")
	}

	for i := 0; i < 30; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}
	fake.RainSamples = []bool{true}
	e.TickSchedule(clock) // minute unchanged (still 06:00) -> gated, no rain check yet
	for i := 0; i < 30; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}
	e.TickSchedule(clock) // now 06:01, 60s run so far -> rain arm happens

	if !fake.IsOn(0) {
		t.Fatal("expected in-flight run to continue through a newly armed rain hold")
	}

	for i := 0; i < 60; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}
	if fake.IsOn(0) {
		t.Fatal("expected run to complete normally at 120s")
	}

	// Let the post-run settle phase elapse before the next schedule tick.
	for i := 0; i < 60; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}
	e.TickSchedule(clock)
	if e.Mode() != ModeRainHold {
		t.Errorf("expected RainHold after rain detection, got %v", e.Mode())
	}
}

// Scenario 5: manual override cancels the active program without an
// END-program event for it (§8.5).
func TestManualOverrideCancelsActiveProgram(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster}, {Name: "z1", Master: zone.NoMaster}, {Name: "z2", Master: zone.NoMaster}}
	progs := []program.Program{{
		Name: "A", Active: true, Start: "06:00", Repeat: program.RepeatNone,
		Zones: []program.ZoneRun{{Zone: 0, Seconds: 100}},
	}}
	e, fake, sink := newTestEngine(t, zones, progs, &clock)

	e.TickSchedule(clock)
	if !fake.IsOn(0) {
		t.Fatal("expected zone 0 running")
	}

	for i := 0; i < 10; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}
	e.ZoneOnManual(2, 10)

	if fake.IsOn(0) {
		t.Error("expected zone 0 cancelled")
	}
	if !fake.IsOn(2) {
		t.Error("expected zone 2 running manually")
	}

	cancels := mustFind(t, sink, eventsink.Filter{Action: eventsink.ActionCancel})
	if len(cancels) != 1 {
		t.Fatalf("got %d CANCEL events, want 1", len(cancels))
	}
	if cancels[0].Runtime == nil || *cancels[0].Runtime != 10 {
		t.Errorf("CANCEL runtime = %v, want 10", cancels[0].Runtime)
	}

	progEnds := mustFind(t, sink, eventsink.Filter{Action: eventsink.ActionEnd, Program: "A"})
	if len(progEnds) != 0 {
		t.Errorf("expected no END event for program A, got %d", len(progEnds))
	}

	for i := 0; i < 10; i++ {
		clock = clock.Add(time.Second)
		e.TickSecond(clock)
	}
	if fake.IsOn(2) {
		t.Error("expected manual run to complete after 10s")
	}
}

func TestKillQueueIdempotent(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "z0", Master: zone.NoMaster}}
	e, _, _ := newTestEngine(t, zones, nil, &clock)

	e.AllOff()
	e.AllOff()
}

func TestMasterOrdering(t *testing.T) {
	clock := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	zones := []zone.Zone{{Name: "branch", Master: 1}, {Name: "master", Master: zone.NoMaster}}
	progs := []program.Program{{
		Name: "M", Active: true, Start: "06:00", Repeat: program.RepeatNone,
		Zones: []program.ZoneRun{{Zone: 0, Seconds: 10}},
	}}
	e, fake, _ := newTestEngine(t, zones, progs, &clock)

	e.TickSchedule(clock)

	// The launch drains the queue first, and that all-off sweep is an
	// earlier Apply() call; the energise pair is the last two calls.
	n := len(fake.AppliedLog)
	if n < 2 {
		t.Fatalf("expected at least 2 Apply() calls (zone then master), got %d", n)
	}
	first := fake.AppliedLog[n-2]
	if !first[0] {
		t.Error("expected the branch zone energised in the first Apply() call")
	}
	if first[1] {
		t.Error("expected the master NOT yet energised in the first Apply() call")
	}
	second := fake.AppliedLog[n-1]
	if !second[1] {
		t.Error("expected the master energised in the second Apply() call")
	}
}

// TestCalendarDailyIntervalRespectsAnchor exercises a calendar-imported
// RRULE:FREQ=DAILY;INTERVAL=2 program across three days of
// TickSchedule calls against a real *calendar.Importer, guarding
// against the anchor Date being silently discarded every tick (§4.4's
// DAILY -> {repeat:daily, interval} mapping, §9's anchor-mutation
// write-through requirement).
func TestCalendarDailyIntervalRespectsAnchor(t *testing.T) {
	const ics = `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:e1
SUMMARY:Every Other Day
DESCRIPTION:front=1
DTSTART:20260601T060000
RRULE:FREQ=DAILY;INTERVAL=2
END:VEVENT
END:VCALENDAR
`
	idx, err := zone.NewIndex([]zone.Zone{{Name: "front", Master: zone.NoMaster}})
	if err != nil {
		t.Fatal(err)
	}
	frontIdx, ok := idx.NameIndex("front")
	if !ok {
		t.Fatal("zone front not found")
	}

	clock := time.Date(2026, 5, 31, 23, 55, 0, 0, time.UTC)
	im := calendar.New("", time.UTC, idx, func(string) (string, error) { return ics, nil }, func() time.Time { return clock })
	im.Configure([]calendar.SourceConfig{{Name: "cal1", Format: calendar.FormatICal, Source: "file:cal.ics"}})
	im.Refresh()
	if progs := im.Programs(); len(progs) != 1 {
		t.Fatalf("got %d calendar programs, want 1", len(progs))
	}

	fake := hardware.NewFake()
	sink, err := eventsink.New(eventsink.Config{}, func() time.Time { return clock })
	if err != nil {
		t.Fatal(err)
	}
	e := New(Config{
		Zones: idx, AdjustTb: adjust.NewTable(nil), Seasons: adjust.NewSeasons(nil),
		Hardware: fake, Sink: sink, Rain: raindelay.New(), Location: time.UTC, Calendar: im,
	}, func() time.Time { return clock })
	e.SetOn(true)

	// forceSchedule jumps the clock straight to each simulated day's due
	// time and resets the once-per-minute debounce so the call always
	// re-evaluates, rather than looping through each day's intervening
	// 1,440 minutes just to land on the same "HH:MM" a second time.
	forceSchedule := func(at time.Time) {
		clock = at
		e.mu.Lock()
		e.lastScheduleCheck = ""
		e.mu.Unlock()
		e.TickSchedule(clock)
	}
	drainSeconds := func(n int) {
		for i := 0; i < n; i++ {
			clock = clock.Add(time.Second)
			e.TickSecond(clock)
		}
	}

	forceSchedule(time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC))
	if !fake.IsOn(frontIdx) {
		t.Fatal("expected the anchor day (delta=0) to fire")
	}
	drainSeconds(60) // let the 60s run finish before checking the next day

	forceSchedule(time.Date(2026, 6, 2, 6, 0, 0, 0, time.UTC))
	if fake.IsOn(frontIdx) {
		t.Fatal("expected delta=1 (interval=2) to be skipped")
	}

	forceSchedule(time.Date(2026, 6, 3, 6, 0, 0, 0, time.UTC))
	if !fake.IsOn(frontIdx) {
		t.Fatal("expected delta=2 (interval=2) to fire again")
	}
}
