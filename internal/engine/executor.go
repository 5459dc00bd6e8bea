package engine

import (
	"time"

	"github.com/sweeney/sprinklerd/internal/eventsink"
	"github.com/sweeney/sprinklerd/internal/program"
	"github.com/sweeney/sprinklerd/internal/weather"
	"github.com/sweeney/sprinklerd/internal/zone"
)

// zonePlan is the per-zone adjustment record of §4.6's Expansion step,
// before pulsed emission splits it into queue items.
type zonePlan struct {
	zone         int
	raw          int
	adjusted     int
	pulse        int
	pause        int
	adjustSource string
	ratio        int
}

// programOnLocked expands p into the run queue (§4.6 Expansion +
// Pulsed emission). Must be called with e.mu held. Unless
// p.Options.Append, the current queue and in-flight run are cancelled
// first.
func (e *Engine) programOnLocked(p *program.Program, now time.Time) {
	if !p.Options.Append {
		e.killQueueLocked(now)
	}

	var plans []zonePlan
	for _, zr := range p.Zones {
		zcfg, ok := e.zones.ByIndex(zr.Zone)
		if !ok {
			e.emitLocked(now, eventsink.Data{
				Action: eventsink.ActionSkip,
				Zone:   eventsink.IntPtr(zr.Zone),
				Program: p.Name,
			})
			continue
		}
		if zcfg.Manual {
			e.emitLocked(now, eventsink.Data{
				Action:  eventsink.ActionSkip,
				Zone:    eventsink.IntPtr(zr.Zone),
				Program: p.Name,
			})
			continue
		}

		adjusted, source, ratio := e.adjustSecondsLocked(zcfg, zr.Seconds, now)

		pulse := zcfg.Pulse
		if pulse <= 0 {
			pulse = adjusted
		}
		plans = append(plans, zonePlan{
			zone: zr.Zone, raw: zr.Seconds, adjusted: adjusted,
			pulse: pulse, pause: zcfg.Pause, adjustSource: source, ratio: ratio,
		})
	}

	items, startSource, startAdjustment := pulsedEmission(plans)
	for i := range items {
		items[i].Parent = p.Name
	}
	e.queue = append(e.queue, items...)

	startData := eventsink.Data{Action: eventsink.ActionStart, Program: p.Name}
	if startSource != "" {
		startData.Source = startSource
		startData.Adjustment = eventsink.IntPtr(startAdjustment)
	}
	e.emitLocked(now, startData)

	e.processQueueLocked(now)
}

// adjustSecondsLocked resolves the §4.6 adjustment-source priority
// chain for one zone.
func (e *Engine) adjustSecondsLocked(zcfg zone.Zone, raw int, now time.Time) (adjusted int, source string, ratio int) {
	name := zcfg.Adjust
	if name == "" {
		name = "default"
	}
	if pct, src, ok := e.adjustTb.Ratio(name, now); ok {
		adjusted = adjustHalfRound(raw, pct)
		source = src
	} else if e.wiA != nil && e.wiA.Enabled() {
		adjusted = e.wiA.Adjust(raw)
		source = e.wiA.Source()
	} else if e.weatherA != nil && e.weatherA.Enabled() {
		adjusted = e.weatherA.Adjust(raw)
		source = weather.Source
	} else {
		adjusted = raw
		source = ""
	}

	if raw == 0 {
		ratio = 100
	} else {
		ratio = adjusted * 100 / raw
	}
	return adjusted, source, ratio
}

func adjustHalfRound(raw, pct int) int {
	return ((raw * pct) + 50) / 100
}

// pulsedEmission implements §4.6's round-robin pulse splitting: every
// zone still needing time emits one chunk of min(adjusted, pulse) per
// round; a tail shorter than 15s that is also shorter than the
// configured pulse is dropped rather than queued as its own tiny
// item; a single group-level PAUSE item (the max configured pause
// across zones with time remaining after this round) closes each
// round that has a following round.
func pulsedEmission(plans []zonePlan) (items []RunItem, firstSource string, firstAdjustment int) {
	for i := range plans {
		if firstSource == "" && plans[i].adjustSource != "" {
			firstSource = plans[i].adjustSource
			firstAdjustment = plans[i].ratio
		}
	}

	for anyActive(plans) {
		maxPause := 0
		for i := range plans {
			p := &plans[i]
			if p.adjusted <= 0 {
				continue
			}
			seconds := p.adjusted
			if p.pulse < seconds {
				seconds = p.pulse
			}
			items = append(items, RunItem{
				Zone: p.zone, Seconds: seconds, AdjustSource: p.adjustSource, Ratio: p.ratio,
			})
			p.adjusted -= seconds
			if p.adjusted > 0 && p.adjusted < 15 && p.adjusted < p.pulse {
				p.adjusted = 0
			}
			if p.adjusted > 0 && p.pause > maxPause {
				maxPause = p.pause
			}
		}
		if maxPause >= 1 {
			items = append(items, RunItem{Zone: ZonePause, Seconds: maxPause})
		}
	}
	return items, firstSource, firstAdjustment
}

func anyActive(plans []zonePlan) bool {
	for i := range plans {
		if plans[i].adjusted > 0 {
			return true
		}
	}
	return false
}

// processQueueLocked pops and starts the head of the queue if the
// Executor is currently idle. Must be called with e.mu held.
func (e *Engine) processQueueLocked(now time.Time) {
	for e.ph == phaseIdle && len(e.queue) > 0 {
		item := e.queue[0]
		e.queue = e.queue[1:]

		if item.Seconds <= 0 {
			continue
		}

		if item.Zone == ZonePause {
			e.cur = item
			e.remaining = item.Seconds
			e.ph = phaseRunning
			return
		}

		zcfg, ok := e.zones.ByIndex(item.Zone)
		if !ok {
			e.logf("dropping run item for out-of-range zone %d", item.Zone)
			continue
		}

		e.emitLocked(now, eventsink.Data{
			Action: eventsink.ActionStart, Zone: eventsink.IntPtr(item.Zone),
			Parent: item.Parent, Seconds: eventsink.IntPtr(item.Seconds),
			Source: item.AdjustSource, Ratio: eventsink.IntPtr(item.Ratio),
		})

		e.hw.SetZone(item.Zone, true)
		e.hw.Apply()
		if zcfg.Master >= 0 {
			e.hw.SetZone(zcfg.Master, true)
			e.hw.Apply()
		}

		e.cur = item
		e.remaining = item.Seconds
		e.runStart = now
		e.ph = phaseRunning
		return
	}
}

// tickSecondLocked drives the in-flight run item and the inter-item
// settle delay by one second. This is the explicit state machine
// §9's "Timer-based cooperative control flow" note calls for, in
// place of nested timer callbacks: (RunItem, remaining, phase) is
// all the state a 1s tick needs to advance.
func (e *Engine) tickSecondLocked(now time.Time) {
	switch e.ph {
	case phaseRunning:
		e.remaining--
		if e.remaining > 0 {
			return
		}
		e.finishCurrentLocked(now)
	case phaseSettling:
		e.settleRemaining--
		if e.settleRemaining > 0 {
			return
		}
		e.ph = phaseIdle
		e.processQueueLocked(now)
	default:
		return
	}
	if e.ph == phaseIdle && len(e.queue) == 0 {
		e.emitLocked(now, eventsink.Data{Action: eventsink.ActionIdle})
	}
}

func (e *Engine) finishCurrentLocked(now time.Time) {
	item := e.cur
	if item.Zone == ZonePause {
		e.ph = phaseIdle
		e.cur = RunItem{}
		e.processQueueLocked(now)
		return
	}

	zcfg, ok := e.zones.ByIndex(item.Zone)
	if ok && zcfg.Master >= 0 {
		e.hw.SetZone(zcfg.Master, false)
		e.hw.Apply()
	}
	e.hw.SetZone(item.Zone, false)
	e.hw.Apply()

	e.emitLocked(now, eventsink.Data{
		Action: eventsink.ActionEnd, Zone: eventsink.IntPtr(item.Zone), Parent: item.Parent,
	})

	nextParent := ""
	if len(e.queue) > 0 {
		nextParent = e.queue[0].Parent
	}
	if item.Parent != "" && nextParent != item.Parent {
		e.emitLocked(now, eventsink.Data{Action: eventsink.ActionEnd, Program: item.Parent})
	}

	e.cur = RunItem{}
	e.ph = phaseSettling
	e.settleRemaining = 2
}

// killQueueLocked cancels any in-flight run and clears the queue
// (§4.6). Idempotent: calling it with nothing running or queued is a
// no-op beyond the all-off sweep.
func (e *Engine) killQueueLocked(now time.Time) {
	if e.ph == phaseRunning && e.cur.Zone != ZonePause {
		item := e.cur
		runtime := item.Seconds - e.remaining
		e.emitLocked(now, eventsink.Data{
			Action: eventsink.ActionCancel, Zone: eventsink.IntPtr(item.Zone),
			Parent: item.Parent, Runtime: eventsink.IntPtr(runtime),
		})
	}

	e.queue = nil
	e.cur = RunItem{}
	e.ph = phaseIdle
	e.settleRemaining = 0

	for _, z := range e.zones.All() {
		e.hw.SetZone(z.Index, false)
	}
	e.hw.Apply()
}

func (e *Engine) emitLocked(now time.Time, d eventsink.Data) {
	if e.sink == nil {
		return
	}
	e.sink.Record(d)
}
