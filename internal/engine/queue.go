package engine

// ZonePause is the RunItem.Zone sentinel for a group-level pulse
// pause: a queue item that consumes time but energises nothing
// (§4.6 pulsed emission).
const ZonePause = -1

// RunItem is one entry of the Executor's run queue: a single physical
// zone activation (or a pause) for a bounded number of seconds,
// tagged with the program that produced it so END events can be
// grouped (§4.6).
type RunItem struct {
	Zone         int
	Seconds      int
	Parent       string // program name; empty for a manual run
	AdjustSource string
	Ratio        int
}
