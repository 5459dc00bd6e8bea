package calendar

import (
	"strings"
	"time"

	"github.com/sweeney/sprinklerd/internal/program"
)

// parseCalendar turns raw iCalendar text into the calendar's active
// Program set (§4.4). Each group of raw events sharing a UID becomes
// one recurring (or one-shot) Program; events carrying
// RECURRENCE-ID become that Program's Exceptions, and EXDATE values
// become its Exclusions.
func (im *Importer) parseCalendar(cfg SourceConfig, text string) ([]program.Program, error) {
	events, calendarTZID := parseICS(text)
	now := im.now()

	type group struct {
		main      *rawEvent
		overrides []rawEvent
	}
	groups := map[string]*group{}
	var order []string

	for i := range events {
		ev := events[i]
		if ev.uid == "" {
			continue
		}
		g, ok := groups[ev.uid]
		if !ok {
			g = &group{}
			groups[ev.uid] = g
			order = append(order, ev.uid)
		}
		if ev.hasRecurrence {
			g.overrides = append(g.overrides, ev)
		} else {
			e := ev
			g.main = &e
		}
	}

	var out []program.Program
	for _, uid := range order {
		g := groups[uid]
		if g.main == nil {
			continue // orphan override with no base event
		}
		p, ok, err := im.synthesizeOne(cfg, *g.main, calendarTZID, now)
		if err != nil || !ok {
			continue
		}

		latest := map[string]rawEvent{}
		var recOrder []string
		for _, ov := range g.overrides {
			prev, seen := latest[ov.recurrenceID]
			if !seen {
				recOrder = append(recOrder, ov.recurrenceID)
			} else if ov.sequence < prev.sequence {
				continue
			}
			latest[ov.recurrenceID] = ov
		}
		for _, rid := range recOrder {
			exc, ok, err := im.synthesizeOverride(cfg, latest[rid], calendarTZID)
			if err != nil || !ok {
				continue
			}
			p.Exceptions = append(p.Exceptions, exc)
		}

		out = append(out, p)
	}

	return out, nil
}

func (im *Importer) synthesizeOne(cfg SourceConfig, ev rawEvent, calendarTZID string, now time.Time) (program.Program, bool, error) {
	if ev.dtstartIsDate {
		return program.Program{}, false, nil
	}
	if !im.locationMatches(ev.location) {
		return program.Program{}, false, nil
	}

	start, err := resolveTime(ev.dtstart, ev.dtstartTZ, calendarTZID, im.defaultLoc)
	if err != nil {
		return program.Program{}, false, nil
	}

	zones, opts, err := parseDescription(ev.description, im.zones)
	if err != nil {
		return program.Program{}, false, nil
	}

	p := program.Program{
		Name:     ev.summary + "@" + cfg.Name,
		Active:   true,
		Start:    start.Format("15:04"),
		Season:   cfg.Season,
		Options:  opts,
		Zones:    zones,
		Calendar: cfg.Name,
	}

	if ev.rrule == "" {
		if start.Before(now.Add(-60 * time.Second)) {
			return program.Program{}, false, nil
		}
		p.Repeat = program.RepeatNone
		p.Date = start.Format("20060102")
		return p, true, nil
	}

	rr, err := parseRRULE(ev.rrule)
	if err != nil {
		return program.Program{}, false, nil
	}
	p.Repeat = rr.repeat
	p.Interval = rr.interval
	p.Days = rr.days
	p.Date = start.Format("20060102")

	if hasUntil, untilVal := parseUntilField(ev.rrule); hasUntil {
		until, err := resolveTime(untilVal, "", calendarTZID, im.defaultLoc)
		if err == nil {
			p.Until = until
			if until.Before(now) {
				return program.Program{}, false, nil
			}
		}
	}

	for _, exd := range ev.exdates {
		exd = strings.TrimSpace(exd)
		if exd == "" {
			continue
		}
		t, err := resolveTime(exd, ev.exdateTZ, calendarTZID, im.defaultLoc)
		if err != nil {
			continue
		}
		p.Exclusions = append(p.Exclusions, t)
	}

	return p, true, nil
}

// synthesizeOverride builds the one-shot replacement Program carried
// by a RECURRENCE-ID event (§4.4: "a later SEQUENCE replaces an
// earlier one for the same RECURRENCE-ID").
func (im *Importer) synthesizeOverride(cfg SourceConfig, ev rawEvent, calendarTZID string) (program.Program, bool, error) {
	if ev.dtstartIsDate {
		return program.Program{}, false, nil
	}
	if !im.locationMatches(ev.location) {
		return program.Program{}, false, nil
	}

	start, err := resolveTime(ev.dtstart, ev.dtstartTZ, calendarTZID, im.defaultLoc)
	if err != nil {
		return program.Program{}, false, nil
	}

	zones, opts, err := parseDescription(ev.description, im.zones)
	if err != nil {
		return program.Program{}, false, nil
	}

	p := program.Program{
		Name:     ev.summary + "@" + cfg.Name,
		Active:   true,
		Start:    start.Format("15:04"),
		Repeat:   program.RepeatNone,
		Date:     start.Format("20060102"),
		Season:   cfg.Season,
		Options:  opts,
		Zones:    zones,
		Calendar: cfg.Name,
	}
	return p, true, nil
}

func (im *Importer) locationMatches(eventLocation string) bool {
	if eventLocation == "" || im.location == "" {
		return true
	}
	return strings.EqualFold(eventLocation, im.location)
}
