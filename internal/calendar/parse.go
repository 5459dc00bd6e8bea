package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unfold reverses RFC 5545 §3.1 line folding: a CRLF (or bare LF)
// immediately followed by a single space or tab is a continuation,
// not a line break.
func unfold(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")

	var lines []string
	for _, l := range raw {
		if len(lines) > 0 && len(l) > 0 && (l[0] == ' ' || l[0] == '\t') {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// property is one unfolded "NAME;PARAM=VALUE;...:VALUE" line.
type property struct {
	name   string
	params map[string]string
	value  string
}

func parseProperty(line string) (property, bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return property{}, false
	}
	head := line[:colon]
	value := line[colon+1:]

	parts := strings.Split(head, ";")
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	params := map[string]string{}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 {
			params[strings.ToUpper(kv[0])] = kv[1]
		}
	}
	return property{name: name, params: params, value: value}, true
}

// rawEvent holds one VEVENT's properties before timezone resolution.
type rawEvent struct {
	uid           string
	recurrenceID  string
	recurrenceTZ  string
	hasRecurrence bool
	summary       string
	description   string
	location      string
	dtstart       string
	dtstartTZ     string
	dtstartIsDate bool
	rrule         string
	sequence      int
	exdates       []string
	exdateTZ      string
}

// parseICS extracts VTIMEZONE TZIDs and VEVENT blocks from raw
// iCalendar text. Returns the raw events and the calendar-level
// (first-seen) VTIMEZONE TZID, used as a fallback when an event gives
// no explicit zone of its own (§4.4 "else the calendar's enclosing
// VTIMEZONE/TZID").
func parseICS(text string) (events []rawEvent, calendarTZID string) {
	lines := unfold(text)

	var inEvent, inTimezone bool
	var cur rawEvent

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case "BEGIN:VEVENT":
			inEvent = true
			cur = rawEvent{}
			continue
		case "END:VEVENT":
			inEvent = false
			events = append(events, cur)
			continue
		case "BEGIN:VTIMEZONE":
			inTimezone = true
			continue
		case "END:VTIMEZONE":
			inTimezone = false
			continue
		}

		prop, ok := parseProperty(trimmed)
		if !ok {
			continue
		}

		if inTimezone {
			if prop.name == "TZID" && calendarTZID == "" {
				calendarTZID = prop.value
			}
			continue
		}

		if !inEvent {
			continue
		}

		switch prop.name {
		case "UID":
			cur.uid = prop.value
		case "RECURRENCE-ID":
			cur.hasRecurrence = true
			cur.recurrenceID = prop.value
			cur.recurrenceTZ = prop.params["TZID"]
		case "SUMMARY":
			cur.summary = prop.value
		case "DESCRIPTION":
			cur.description = unescapeText(prop.value)
		case "LOCATION":
			cur.location = unescapeText(prop.value)
		case "DTSTART":
			cur.dtstart = prop.value
			cur.dtstartTZ = prop.params["TZID"]
			cur.dtstartIsDate = prop.params["VALUE"] == "DATE"
		case "RRULE":
			cur.rrule = prop.value
		case "SEQUENCE":
			if n, err := strconv.Atoi(prop.value); err == nil {
				cur.sequence = n
			}
		case "EXDATE":
			cur.exdateTZ = prop.params["TZID"]
			cur.exdates = append(cur.exdates, strings.Split(prop.value, ",")...)
		}
	}

	return events, calendarTZID
}

func unescapeText(s string) string {
	r := strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n", `\\`, `\`)
	return r.Replace(s)
}

// resolveTime parses an iCalendar DATE-TIME value, applying the
// zone-resolution priority of §4.4: trailing Z is UTC; else an
// explicit TZID param; else the calendar's enclosing VTIMEZONE; else
// defaultLoc. The result is converted to defaultLoc (§4.4: "Convert
// all stored times to local").
func resolveTime(value, tzidParam, calendarTZID string, defaultLoc *time.Location) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		if err != nil {
			return time.Time{}, fmt.Errorf("calendar: bad UTC datetime %q: %w", value, err)
		}
		return t.In(defaultLoc), nil
	}

	locName := tzidParam
	if locName == "" {
		locName = calendarTZID
	}

	var loc *time.Location
	if locName != "" {
		l, err := time.LoadLocation(locName)
		if err != nil {
			loc = defaultLoc
		} else {
			loc = l
		}
	} else {
		loc = defaultLoc
	}

	t, err := time.ParseInLocation("20060102T150405", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: bad local datetime %q: %w", value, err)
	}
	return t.In(defaultLoc), nil
}
