package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/sprinklerd/internal/eventsink"
)

// SetWeatherEnabled toggles the WeatherAdjuster from the control
// surface (§6).
func (e *Engine) SetWeatherEnabled(enabled bool) {
	if e.weatherA != nil {
		e.weatherA.SetEnabled(enabled)
	}
}

// SetWateringIndexEnabled toggles the WateringIndexAdjuster from the
// control surface (§6).
func (e *Engine) SetWateringIndexEnabled(enabled bool) {
	if e.wiA != nil {
		e.wiA.SetEnabled(enabled)
	}
}

// TriggerRefresh runs one refresh cycle now, outside the normal 60s
// heartbeat, for the control surface's "trigger refresh" operation
// (§6). Each refresher still applies its own schedule and throttling,
// so the cycle fetches only from refreshers that are due.
func (e *Engine) TriggerRefresh() {
	e.TickRefresh(e.now())
}

// AllOff implements the control surface's "all-off" operation: cancel
// the queue and de-energise every zone.
func (e *Engine) AllOff() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.killQueueLocked(e.now())
}

// StartProgram starts a program by the id scheme of §6: "C<idx>" for
// a calendar-imported program, "L<idx>" for a local (user) program,
// or a bare integer (treated as a local index). Returns an error for
// an unknown id, per §7's "API misuse" policy: no state change.
func (e *Engine) StartProgram(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()

	switch {
	case strings.HasPrefix(id, "C"):
		idx, err := strconv.Atoi(id[1:])
		if err != nil {
			return fmt.Errorf("engine: invalid calendar program id %q", id)
		}
		if e.cal == nil {
			return fmt.Errorf("engine: no calendars configured")
		}
		progs := e.cal.Programs()
		if idx < 0 || idx >= len(progs) {
			return fmt.Errorf("engine: calendar program index %d out of range", idx)
		}
		p := progs[idx]
		e.programOnLocked(&p, now)
		return nil

	case strings.HasPrefix(id, "L"):
		idx, err := strconv.Atoi(id[1:])
		if err != nil {
			return fmt.Errorf("engine: invalid local program id %q", id)
		}
		return e.startLocalLocked(idx, now)

	default:
		idx, err := strconv.Atoi(id)
		if err != nil {
			return fmt.Errorf("engine: unrecognized program id %q", id)
		}
		return e.startLocalLocked(idx, now)
	}
}

func (e *Engine) startLocalLocked(idx int, now time.Time) error {
	if idx < 0 || idx >= len(e.programs) {
		return fmt.Errorf("engine: local program index %d out of range", idx)
	}
	e.programOnLocked(&e.programs[idx], now)
	return nil
}

// History returns recorded events matching f, for the control
// surface's "history queries" operation.
func (e *Engine) History(f eventsink.Filter) ([]eventsink.Record, error) {
	if e.sink == nil {
		return nil, nil
	}
	return e.sink.Find(f)
}
