// Package program defines the Program type shared by user-authored
// configuration and the calendar importer (spec.md §3): a named
// watering plan with a repeat rule, an ordered zone/seconds list, and
// — for imported programs — exceptions and exclusions.
package program

import "time"

// Repeat is a program's recurrence kind.
type Repeat string

const (
	RepeatNone   Repeat = "none"
	RepeatDaily  Repeat = "daily"
	RepeatWeekly Repeat = "weekly"
)

// ZoneRun is one entry of a program's ordered zone list: which zone,
// for how many configured (un-adjusted) seconds.
type ZoneRun struct {
	Zone    int
	Seconds int
}

// Options carries program-level launch flags.
type Options struct {
	// Append, if true, means launching this program must not clear
	// the current run queue (§3, §4.6).
	Append bool
}

// Program is a named, schedulable watering plan. The zero value's
// Days is all-false and Until is zero (no upper bound).
type Program struct {
	// Name is unique across the merged user+calendar program list. For
	// imported programs this is "summary@calendar".
	Name string

	Active bool

	// Start is the local time-of-day this program is due, "HH:MM".
	Start string

	Repeat Repeat

	// Interval is the daily-repeat stride in days; 1 means every day.
	Interval int

	// Days is the weekly-repeat bit vector, Sun=index 0.
	Days [7]bool

	// Date anchors daily-interval and one-shot programs,
	// "YYYYMMDD". Empty means "not yet anchored"; the Scheduler sets
	// it to today on first evaluation (§4.5 step 4).
	Date string

	// Until, if set, is the upper bound after which this program
	// never fires again.
	Until time.Time

	// Season, if set, names a Season that must be active for this
	// program to be considered due.
	Season string

	Options Options

	Zones []ZoneRun

	// Exceptions are imported-only: replacement Programs (each
	// Repeat=none) that each carry their own date+time, produced from
	// an iCalendar RECURRENCE-ID update.
	Exceptions []Program

	// Exclusions are imported-only: occurrence moments this recurring
	// program must skip, matched within +/-1 minute (§3, §4.5 step 3).
	Exclusions []time.Time

	// Calendar names the owning calendar for imported programs; empty
	// for user-authored programs.
	Calendar string
}

// Clone returns a deep copy sufficient for safe mutation by the
// Scheduler's anchor operations without aliasing the caller's
// slices.
func (p Program) Clone() Program {
	out := p
	if p.Zones != nil {
		out.Zones = append([]ZoneRun(nil), p.Zones...)
	}
	if p.Exceptions != nil {
		out.Exceptions = make([]Program, len(p.Exceptions))
		for i, e := range p.Exceptions {
			out.Exceptions[i] = e.Clone()
		}
	}
	if p.Exclusions != nil {
		out.Exclusions = append([]time.Time(nil), p.Exclusions...)
	}
	return out
}
