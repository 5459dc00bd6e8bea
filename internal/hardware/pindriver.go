//go:build linux

package hardware

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// defaultRetryInterval matches the boot-race retry cadence described
// in spec.md §7 (HardwareInit: "retry silently at 200ms intervals
// until success").
const defaultRetryInterval = 200 * time.Millisecond

// PinDriver energises one output pin per zone directly, generalizing
// gpio/real.go's two-fixed-input-pin chip/line management to an
// arbitrary zone count plus the rain-sensor and button inputs.
type PinDriver struct {
	mu sync.Mutex

	chip *gpiocdev.Chip

	zoneLines map[int]*gpiocdev.Line
	zonePins  map[int]int
	pending   map[int]bool

	rainPin   int
	buttonPin int
	rainLine  *gpiocdev.Line
	buttonLine *gpiocdev.Line

	rainCb   InterruptCallback
	buttonCb InterruptCallback

	retryInterval time.Duration
	stopRetry     chan struct{}
}

// NewPinDriver creates an unconfigured PinDriver; Configure opens the
// GPIO chip. Line requests for
// zones that are not yet available (boot race) are retried in the
// background; SetZone calls made before a line is ready are buffered
// in `pending` and flushed once the line opens.
func NewPinDriver() *PinDriver {
	return &PinDriver{
		zoneLines:     make(map[int]*gpiocdev.Line),
		zonePins:      make(map[int]int),
		pending:       make(map[int]bool),
		retryInterval: defaultRetryInterval,
	}
}

func (p *PinDriver) Info() Info {
	return Info{ID: "pindriver", Title: "Per-Pin Relay Board"}
}

func (p *PinDriver) Configure(hw Config, zones []ZoneConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopRetry != nil {
		close(p.stopRetry)
		p.stopRetry = nil
	}

	chipName := hw.Chip
	if chipName == "" {
		chipName = "gpiochip0"
	}
	if p.chip != nil {
		p.chip.Close()
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return fmt.Errorf("open gpio chip: %w", err)
	}
	p.chip = chip

	if hw.RetryMillis > 0 {
		p.retryInterval = time.Duration(hw.RetryMillis) * time.Millisecond
	}

	p.zonePins = make(map[int]int, len(zones))
	for _, z := range zones {
		pin := zonePin(hw, z)
		if pin < 0 {
			continue
		}
		p.zonePins[z.Index] = pin
	}

	p.requestZoneLines()
	p.requestInputs(hw)

	if !p.allZoneLinesReady() {
		p.stopRetry = make(chan struct{})
		go p.retryLoop()
	}

	return nil
}

func zonePin(hw Config, z ZoneConfig) int {
	if z.Index >= 0 && z.Index < len(hw.ZonePins) {
		return hw.ZonePins[z.Index]
	}
	return -1
}

func (p *PinDriver) requestZoneLines() {
	for idx, pin := range p.zonePins {
		if _, ok := p.zoneLines[idx]; ok {
			continue
		}
		line, err := p.chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			log.Printf("hardware: zone %d pin %d not yet available: %v", idx, pin, err)
			continue
		}
		p.zoneLines[idx] = line
		if v, ok := p.pending[idx]; ok {
			p.writeLine(line, v)
		}
	}
}

func (p *PinDriver) requestInputs(hw Config) {
	edge := gpiocdev.WithFallingEdge
	if hw.ActiveEdge == EdgeRising {
		edge = gpiocdev.WithRisingEdge
	}

	if p.rainLine == nil && hw.RainPin != 0 {
		line, err := p.chip.RequestLine(hw.RainPin, gpiocdev.AsInput,
			edge, gpiocdev.WithEventHandler(p.handleRainEvent))
		if err != nil {
			log.Printf("hardware: rain sensor pin %d not yet available: %v", hw.RainPin, err)
		} else {
			p.rainLine = line
			p.rainPin = hw.RainPin
		}
	}
	if p.buttonLine == nil && hw.ButtonPin != 0 {
		line, err := p.chip.RequestLine(hw.ButtonPin, gpiocdev.AsInput,
			edge, gpiocdev.WithEventHandler(p.handleButtonEvent))
		if err != nil {
			log.Printf("hardware: button pin %d not yet available: %v", hw.ButtonPin, err)
		} else {
			p.buttonLine = line
			p.buttonPin = hw.ButtonPin
		}
	}
}

func (p *PinDriver) handleRainEvent(evt gpiocdev.LineEvent) {
	p.mu.Lock()
	cb := p.rainCb
	p.mu.Unlock()
	if cb != nil {
		cb(true)
	}
}

func (p *PinDriver) handleButtonEvent(evt gpiocdev.LineEvent) {
	p.mu.Lock()
	cb := p.buttonCb
	p.mu.Unlock()
	if cb != nil {
		cb(true)
	}
}

func (p *PinDriver) allZoneLinesReady() bool {
	return len(p.zoneLines) == len(p.zonePins)
}

func (p *PinDriver) retryLoop() {
	ticker := time.NewTicker(p.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopRetry:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.requestZoneLines()
			ready := p.allZoneLinesReady()
			p.mu.Unlock()
			if ready {
				return
			}
		}
	}
}

func (p *PinDriver) writeLine(line *gpiocdev.Line, on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		log.Printf("hardware: set line failed: %v", err)
	}
}

// SetZone stages (and, since this driver has no bank-commit step,
// immediately writes) the zone's output. Writes to a zone whose line
// is not yet ready are buffered and flushed once it opens.
func (p *PinDriver) SetZone(i int, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[i] = on
	if line, ok := p.zoneLines[i]; ok {
		p.writeLine(line, on)
	}
}

// Apply is a no-op for the per-pin driver: each SetZone call already
// committed directly to its line.
func (p *PinDriver) Apply() {}

func (p *PinDriver) RainSensor() bool {
	p.mu.Lock()
	line := p.rainLine
	p.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	if err != nil {
		return false
	}
	return v != 0
}

func (p *PinDriver) Button() bool {
	p.mu.Lock()
	line := p.buttonLine
	p.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	if err != nil {
		return false
	}
	return v != 0
}

func (p *PinDriver) RainInterrupt(cb InterruptCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rainCb = cb
}

func (p *PinDriver) ButtonInterrupt(cb InterruptCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buttonCb = cb
}

// Close releases all GPIO resources, matching gpio/real.go's shutdown
// ordering (lines before chip).
func (p *PinDriver) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopRetry != nil {
		close(p.stopRetry)
		p.stopRetry = nil
	}

	var firstErr error
	for _, line := range p.zoneLines {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.rainLine != nil {
		if err := p.rainLine.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.buttonLine != nil {
		if err := p.buttonLine.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
