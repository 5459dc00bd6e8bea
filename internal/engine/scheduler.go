package engine

import (
	"time"

	"github.com/sweeney/sprinklerd/internal/program"
)

// TickSchedule is the Scheduler's 10s heartbeat (§4.5). It gates on
// `lastScheduleCheck` so a wall-clock minute is evaluated at most
// once, handles rain-delay arming, and then evaluates the user
// program list followed by the calendar-imported program list.
func (e *Engine) TickSchedule(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.on {
		return
	}

	minuteKey := now.Format("15:04")
	if minuteKey == e.lastScheduleCheck {
		return
	}
	e.lastScheduleCheck = minuteKey

	if e.rainDelay {
		if e.hw.RainSensor() || (e.weatherA != nil && e.weatherA.RainSensor()) {
			e.rain.Arm(now)
		}
		if e.rain.Active(now) {
			return
		}
	}

	for i := range e.programs {
		e.evaluateProgramLocked(&e.programs[i], now)
	}

	if e.cal != nil {
		calPrograms := e.cal.Programs()
		for i := range calPrograms {
			e.evaluateProgramLocked(&calPrograms[i], now)
			e.cal.Anchor(calPrograms[i])
		}
	}
}

// evaluateProgramLocked implements the per-program loop body of §4.5:
// season gate, then exceptions (any firing one wins and the base
// program is skipped for this tick), then the program itself.
func (e *Engine) evaluateProgramLocked(p *program.Program, now time.Time) {
	if !p.Active {
		return
	}
	if p.Season != "" {
		active, found := e.seasons.Active(p.Season, now)
		if found && !active {
			return
		}
	}

	for i := range p.Exceptions {
		exc := &p.Exceptions[i]
		if scheduleOneProgram(exc, now, e.loc) {
			e.programOnLocked(exc, now)
			return
		}
	}

	if scheduleOneProgram(p, now, e.loc) {
		e.programOnLocked(p, now)
	}
}

// scheduleOneProgram implements §4.5's scheduleOneProgram exactly,
// including the in-place Date-anchoring and one-shot
// deactivation it specifies; mutation is confined to this single
// named function rather than scattered ambient state (§9).
func scheduleOneProgram(p *program.Program, now time.Time, loc *time.Location) bool {
	if now.Format("15:04") != p.Start {
		return false
	}
	if !p.Until.IsZero() && p.Until.Before(now) {
		return false
	}
	for _, exd := range p.Exclusions {
		if absDuration(now.Sub(exd)) < 60*time.Second {
			return false
		}
	}

	var delta int
	if p.Date == "" {
		p.Date = now.Format("20060102")
		delta = 0
	} else {
		anchor, err := time.ParseInLocation("20060102 15:04", p.Date+" "+p.Start, loc)
		if err != nil {
			return false
		}
		delta = int(now.Sub(anchor).Hours() / 24)
		if delta < 0 {
			return false
		}
	}

	switch p.Repeat {
	case program.RepeatWeekly:
		return p.Days[int(now.Weekday())]
	case program.RepeatDaily:
		interval := p.Interval
		if interval <= 0 {
			interval = 1
		}
		return delta%interval == 0
	case program.RepeatNone:
		p.Active = false
		return delta == 0
	default:
		return false
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// TickSecond drives the Executor's in-flight run and inter-item
// settle delay (§5's "Executor timers": the 1s remaining tick).
func (e *Engine) TickSecond(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ph != phaseIdle {
		e.tickSecondLocked(now)
	}
	e.tickButtonLocked(now)
}

// TickRefresh is the 60s refresh heartbeat (§5): each refresher
// self-throttles, so this is safe to call every tick. An UPDATE event
// is emitted whenever a refresh both ran and produced newer data than
// was already cached.
func (e *Engine) TickRefresh(now time.Time) {
	e.mu.Lock()
	weatherA, wiA, cal := e.weatherA, e.wiA, e.cal
	e.mu.Unlock()

	if cal != nil {
		cal.Refresh()
	}

	if weatherA != nil {
		if _, updated, err := weatherA.Refresh(now); err != nil {
			e.logf("weather refresh failed: %v", err)
		} else if updated {
			e.mu.Lock()
			e.emitLocked(now, updateEvent("WEATHER"))
			e.mu.Unlock()
		}
	}

	if wiA != nil {
		if _, updated, err := wiA.Refresh(now); err != nil {
			e.logf("watering index refresh failed: %v", err)
		} else if updated {
			e.mu.Lock()
			e.emitLocked(now, updateEvent(wiA.Source()))
			e.mu.Unlock()
		}
	}
}
