package calendar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/sprinklerd/internal/program"
)

// rruleResult is the subset of RRULE semantics spec.md §4.4 requires.
type rruleResult struct {
	repeat   program.Repeat
	interval int
	days     [7]bool
}

var byDayIndex = map[string]int{
	"SU": 0, "MO": 1, "TU": 2, "WE": 3, "TH": 4, "FR": 5, "SA": 6,
}

// parseRRULE parses an RFC 5545 RRULE value. DAILY maps to
// {repeat:daily, interval: RRULE.interval or 1}. WEEKLY maps to
// {repeat:weekly, days: from BYDAY}. Any other FREQ is rejected — the
// whole event is dropped (§4.4: "Other frequencies -> reject event").
func parseRRULE(rrule string) (rruleResult, error) {
	fields := map[string]string{}
	for _, part := range strings.Split(rrule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		fields[strings.ToUpper(kv[0])] = kv[1]
	}

	freq := strings.ToUpper(fields["FREQ"])
	switch freq {
	case "DAILY":
		interval := 1
		if v, ok := fields["INTERVAL"]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return rruleResult{}, fmt.Errorf("calendar: bad RRULE INTERVAL %q: %w", v, err)
			}
			interval = n
		}
		return rruleResult{repeat: program.RepeatDaily, interval: interval}, nil

	case "WEEKLY":
		var days [7]bool
		byday := fields["BYDAY"]
		if byday == "" {
			return rruleResult{}, fmt.Errorf("calendar: WEEKLY RRULE missing BYDAY")
		}
		for _, d := range strings.Split(byday, ",") {
			d = strings.TrimSpace(strings.ToUpper(d))
			idx, ok := byDayIndex[d]
			if !ok {
				return rruleResult{}, fmt.Errorf("calendar: unrecognized BYDAY value %q", d)
			}
			days[idx] = true
		}
		return rruleResult{repeat: program.RepeatWeekly, days: days}, nil

	default:
		return rruleResult{}, fmt.Errorf("calendar: unsupported RRULE FREQ %q", freq)
	}
}

// parseUntilField reports whether an RRULE carries an UNTIL part and
// returns its raw value text (DATE or DATE-TIME form) unparsed.
func parseUntilField(rrule string) (hasUntil bool, value string) {
	for _, part := range strings.Split(rrule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "UNTIL") {
			return true, kv[1]
		}
	}
	return false, ""
}
