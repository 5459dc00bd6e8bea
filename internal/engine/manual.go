package engine

import "time"

// manualDuration is the fixed run length a button press starts, per
// §4.6.
const manualDuration = 900

// buttonSettle is the debounce delay between the last press and the
// walk-through actually starting a zone, per §4.6.
const buttonSettle = 2

// buttonState tracks the button walk-through: each press advances an
// index; after buttonSettle seconds of no further presses, the zone
// at that index starts. Wrapping past the last zone arms no start for
// that cycle.
type buttonState struct {
	pending  bool
	index    int
	settleAt int // seconds remaining until the settled index fires
}

// ZoneOnManual implements §4.6's zoneOnManual: cancel whatever is
// running or queued, then run zone i for the given duration alone.
func (e *Engine) ZoneOnManual(i, seconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.killQueueLocked(now)
	e.queue = append(e.queue, RunItem{Zone: i, Seconds: seconds})
	e.processQueueLocked(now)
}

// ButtonPress registers one physical button press against the
// walk-through index. Call TickSecond afterwards on the usual 1s
// cadence to let the settle timer expire and start the zone.
func (e *Engine) ButtonPress() {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.zones.Len()
	if n == 0 {
		return
	}
	if !e.button.pending {
		e.button.index = 0
	} else {
		e.button.index++
	}
	e.button.pending = true
	e.button.settleAt = buttonSettle

	if e.button.index >= n {
		e.button.pending = false
		e.button.index = 0
	}
}

// tickButtonLocked advances the button settle countdown; called every
// second alongside TickSecond. Must be called with e.mu held.
func (e *Engine) tickButtonLocked(now time.Time) {
	if !e.button.pending {
		return
	}
	e.button.settleAt--
	if e.button.settleAt > 0 {
		return
	}
	idx := e.button.index
	e.button.pending = false
	e.killQueueLocked(now)
	e.queue = append(e.queue, RunItem{Zone: idx, Seconds: manualDuration})
	e.processQueueLocked(now)
}
