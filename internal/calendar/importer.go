package calendar

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/sprinklerd/internal/program"
)

// FormatICal is the supported calendar document format; only "ical" is
// implemented (§4.4).
const FormatICal = "ical"

// SourceConfig is one entry of the `calendars[]` configuration block
// (§6).
type SourceConfig struct {
	Name     string
	Format   string
	Source   string // file:, http:// or https:// URL
	Season   string
	Disabled bool
}

// Status is the per-calendar health reported by Status().
type Status struct {
	Name    string
	OK      bool
	Updated time.Time
}

// Fetcher retrieves the raw iCalendar text for a source URL/path.
// Swapped out in tests.
type Fetcher func(source string) (string, error)

type calendarState struct {
	cfg      SourceConfig
	disabled bool
	ok       bool
	updated  time.Time
	programs map[string]program.Program // by Program.Name
}

// Importer is the CalendarImporter of §4.4.
type Importer struct {
	mu sync.Mutex

	location   string
	defaultLoc *time.Location
	zones      ZoneResolver

	calendars []*calendarState

	fetch Fetcher
	sem   chan struct{} // capacity 1: at most one outstanding fetch

	lastRefreshedHour int // year/day-of-year/hour key of the last refresh; -1 means never
	now               func() time.Time
}

// New creates an Importer. fetch may be nil to use the default
// file:/http(s): fetcher.
func New(location string, defaultLoc *time.Location, zones ZoneResolver, fetch Fetcher, now func() time.Time) *Importer {
	if fetch == nil {
		fetch = defaultFetch
	}
	if now == nil {
		now = time.Now
	}
	return &Importer{
		location:          location,
		defaultLoc:        defaultLoc,
		zones:             zones,
		fetch:             fetch,
		sem:               make(chan struct{}, 1),
		lastRefreshedHour: -1,
		now:               now,
	}
}

// Configure rebuilds the calendar list from cfg. Only iCalendar format
// with file:/http://https:// sources is supported; anything else is
// marked disabled (§4.4). Calendars absent from cfg are dropped along
// with their cached programs.
func (im *Importer) Configure(cfg []SourceConfig) {
	im.mu.Lock()
	defer im.mu.Unlock()

	existing := make(map[string]*calendarState, len(im.calendars))
	for _, c := range im.calendars {
		existing[c.cfg.Name] = c
	}

	next := make([]*calendarState, 0, len(cfg))
	for _, sc := range cfg {
		disabled := sc.Disabled || !supported(sc)
		if st, ok := existing[sc.Name]; ok {
			st.cfg = sc
			st.disabled = disabled
			next = append(next, st)
			continue
		}
		next = append(next, &calendarState{
			cfg:      sc,
			disabled: disabled,
			programs: map[string]program.Program{},
		})
	}
	im.calendars = next
}

func supported(sc SourceConfig) bool {
	if sc.Format != FormatICal {
		return false
	}
	return strings.HasPrefix(sc.Source, "file:") ||
		strings.HasPrefix(sc.Source, "http://") ||
		strings.HasPrefix(sc.Source, "https://")
}

// Refresh is throttled to at most once per wall-clock hour, and only
// once minute >= 55 within that hour (§4.4). Calendars are loaded
// sequentially — the semaphore of capacity 1 ensures at most one
// outstanding request across the whole set, so a response can always
// be associated unambiguously with its request.
func (im *Importer) Refresh() {
	now := im.now()

	im.mu.Lock()
	hourKey := now.Year()*8784 + now.YearDay()*24 + now.Hour()
	due := now.Minute() >= 55 && hourKey != im.lastRefreshedHour
	if !due {
		im.mu.Unlock()
		return
	}
	im.lastRefreshedHour = hourKey
	calendars := append([]*calendarState(nil), im.calendars...)
	im.mu.Unlock()

	for _, st := range calendars {
		if st.disabled {
			continue
		}
		im.loadOne(st)
	}
}

func (im *Importer) loadOne(st *calendarState) {
	im.sem <- struct{}{}
	defer func() { <-im.sem }()

	attemptID := uuid.NewString()

	text, err := im.fetch(st.cfg.Source)
	if err != nil {
		im.mu.Lock()
		st.ok = false
		im.mu.Unlock()
		logFetchFailure(st.cfg.Name, attemptID, err)
		return
	}

	progs, perr := im.parseCalendar(st.cfg, text)
	if perr != nil {
		im.mu.Lock()
		st.ok = false
		im.mu.Unlock()
		logFetchFailure(st.cfg.Name, attemptID, perr)
		return
	}

	im.mu.Lock()
	st.ok = true
	st.updated = im.now()
	merged := make(map[string]program.Program, len(progs))
	for _, p := range progs {
		merged[p.Name] = p
	}
	st.programs = merged
	im.mu.Unlock()
}

func logFetchFailure(calendarName, attemptID string, err error) {
	fmt.Printf("calendar: fetch %s (attempt %s) failed: %v\n", calendarName, attemptID, err)
}

// Status returns per-calendar health.
func (im *Importer) Status() []Status {
	im.mu.Lock()
	defer im.mu.Unlock()
	out := make([]Status, 0, len(im.calendars))
	for _, st := range im.calendars {
		out = append(out, Status{Name: st.cfg.Name, OK: st.ok, Updated: st.updated})
	}
	return out
}

// Programs returns only currently active programs across all
// calendars, deduplicated by name (first calendar in configuration
// order wins a name collision).
func (im *Importer) Programs() []program.Program {
	im.mu.Lock()
	defer im.mu.Unlock()
	seen := map[string]bool{}
	var out []program.Program
	for _, st := range im.calendars {
		for _, p := range st.programs {
			if !p.Active || seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	return out
}

// Anchor persists a Scheduler-mutated calendar-sourced Program back
// into the Importer's cache. Programs() hands out value copies, so
// scheduleOneProgram's in-place Date anchoring and one-shot
// deactivation (§4.5) would otherwise be discarded at the end of every
// TickSchedule call; the Scheduler calls Anchor after evaluating each
// calendar program to make that mutation durable across ticks.
func (im *Importer) Anchor(p program.Program) {
	im.mu.Lock()
	defer im.mu.Unlock()
	for _, st := range im.calendars {
		if _, ok := st.programs[p.Name]; ok {
			st.programs[p.Name] = p
			return
		}
	}
}

// defaultFetch is the built-in Fetcher for file:/http(s): sources.
func defaultFetch(source string) (string, error) {
	switch {
	case strings.HasPrefix(source, "file:"):
		path := strings.TrimPrefix(source, "file://")
		path = strings.TrimPrefix(path, "file:")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("calendar: file not found: %s", path)
			}
			return "", fmt.Errorf("calendar: read file: %w", err)
		}
		return string(data), nil

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		resp, err := http.Get(source)
		if err != nil {
			return "", fmt.Errorf("calendar: fetch: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("calendar: fetch %s: status %d", source, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("calendar: read response: %w", err)
		}
		return string(body), nil

	default:
		return "", fmt.Errorf("calendar: unsupported source %q", source)
	}
}
