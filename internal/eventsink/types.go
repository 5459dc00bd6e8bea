// Package eventsink provides the append-only event log described in
// spec.md §4.2: every START/END/CANCEL/etc event the engine emits is
// recorded here with a total (timestamp, sequence) order, queryable by
// filter, optionally retained for a bounded number of days and fanned
// out to syslog and/or MQTT.
package eventsink

import "time"

// Action is the kind of event recorded.
type Action string

const (
	ActionStartup Action = "STARTUP"
	ActionOn      Action = "ON"
	ActionOff     Action = "OFF"
	ActionStart   Action = "START"
	ActionEnd     Action = "END"
	ActionCancel  Action = "CANCEL"
	ActionSkip    Action = "SKIP"
	ActionUpdate  Action = "UPDATE"
	ActionIdle    Action = "IDLE"
)

// Record is a single immutable event. Optional fields are left at
// their zero value when not applicable to Action.
type Record struct {
	Timestamp time.Time
	Sequence  int
	Action    Action

	Zone    *int
	Program string // empty means "no program"
	Parent  string // outgoing parent program for a same-tick transition

	Seconds     *int
	Runtime     *int
	Adjustment  *int
	Source      string
	Temperature *float64
	Humidity    *float64
	Rain        *float64
	Ratio       *int
}

// Filter selects a subset of records for Find. A zero-value field
// means "don't filter on this dimension".
type Filter struct {
	Since   time.Time
	Until   time.Time
	Zone    *int
	Program string
	Action  Action
	Limit   int // 0 means unbounded
}
