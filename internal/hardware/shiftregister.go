//go:build linux

package hardware

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// ShiftRegisterConfig describes the three control lines of a
// 74HC595-style shift-register bank: data, clock, and latch. The
// bit-level protocol itself (clock the bank out MSB-first, then
// pulse latch) is the external collaborator's concern per spec.md
// §1; this type is the minimal contract the driver needs to drive it.
type ShiftRegisterConfig struct {
	DataPin  int
	ClockPin int
	LatchPin int
	Bits     int // total output bits in the chained bank
}

// ShiftRegister drives a chain of shift-register outputs, buffering
// SetZone calls and transferring the whole bank on Apply — the one
// backend for which Apply is not a no-op, per §4.1 ("must be used for
// shift-register drivers that transfer the full bank atomically").
type ShiftRegister struct {
	mu sync.Mutex

	chip               *gpiocdev.Chip
	dataLine, clockLine, latchLine *gpiocdev.Line
	rainLine, buttonLine           *gpiocdev.Line

	cfg ShiftRegisterConfig

	bank    []bool // committed state, index-aligned with zone index
	pending []bool // staged state awaiting Apply

	rainCb   InterruptCallback
	buttonCb InterruptCallback

	ready     bool
	retryStop chan struct{}
}

// NewShiftRegister creates a ShiftRegister driver.
func NewShiftRegister() *ShiftRegister {
	return &ShiftRegister{}
}

func (s *ShiftRegister) Info() Info {
	return Info{ID: "shiftregister", Title: "Shift-Register Bank"}
}

func (s *ShiftRegister) Configure(hw Config, zones []ZoneConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryStop != nil {
		close(s.retryStop)
		s.retryStop = nil
	}

	bits := len(zones)
	s.bank = make([]bool, bits)
	s.pending = make([]bool, bits)
	s.cfg = hw.ShiftRegister

	chipName := hw.Chip
	if chipName == "" {
		chipName = "gpiochip0"
	}
	if s.chip != nil {
		s.chip.Close()
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return fmt.Errorf("open gpio chip: %w", err)
	}
	s.chip = chip

	s.requestControlLines(hw)
	s.requestInputs(hw)

	if !s.ready {
		s.retryStop = make(chan struct{})
		go s.retryLoop(hw)
	}

	return nil
}

func (s *ShiftRegister) requestControlLines(hw Config) bool {
	if s.dataLine != nil {
		return true
	}
	data, err1 := s.chip.RequestLine(s.cfg.DataPin, gpiocdev.AsOutput(0))
	clock, err2 := s.chip.RequestLine(s.cfg.ClockPin, gpiocdev.AsOutput(0))
	latch, err3 := s.chip.RequestLine(s.cfg.LatchPin, gpiocdev.AsOutput(0))
	if err1 != nil || err2 != nil || err3 != nil {
		log.Printf("hardware: shift-register control lines not yet available")
		return false
	}
	s.dataLine, s.clockLine, s.latchLine = data, clock, latch
	s.ready = true
	return true
}

func (s *ShiftRegister) requestInputs(hw Config) {
	edge := gpiocdev.WithFallingEdge
	if hw.ActiveEdge == EdgeRising {
		edge = gpiocdev.WithRisingEdge
	}
	if s.rainLine == nil && hw.RainPin != 0 {
		if line, err := s.chip.RequestLine(hw.RainPin, gpiocdev.AsInput,
			edge, gpiocdev.WithEventHandler(s.handleRain)); err == nil {
			s.rainLine = line
		}
	}
	if s.buttonLine == nil && hw.ButtonPin != 0 {
		if line, err := s.chip.RequestLine(hw.ButtonPin, gpiocdev.AsInput,
			edge, gpiocdev.WithEventHandler(s.handleButton)); err == nil {
			s.buttonLine = line
		}
	}
}

func (s *ShiftRegister) handleRain(evt gpiocdev.LineEvent) {
	s.mu.Lock()
	cb := s.rainCb
	s.mu.Unlock()
	if cb != nil {
		cb(true)
	}
}

func (s *ShiftRegister) handleButton(evt gpiocdev.LineEvent) {
	s.mu.Lock()
	cb := s.buttonCb
	s.mu.Unlock()
	if cb != nil {
		cb(true)
	}
}

func (s *ShiftRegister) retryLoop(hw Config) {
	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.retryStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			ok := s.requestControlLines(hw)
			if ok {
				s.flushLocked()
			}
			s.mu.Unlock()
			if ok {
				return
			}
		}
	}
}

// SetZone stages a zone's output; the physical bank is not touched
// until Apply.
func (s *ShiftRegister) SetZone(i int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pending) {
		return
	}
	s.pending[i] = on
}

// Apply clocks the full staged bank out to the physical shift
// register, MSB-first, then pulses latch once.
func (s *ShiftRegister) Apply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *ShiftRegister) flushLocked() {
	copy(s.bank, s.pending)
	if !s.ready {
		return
	}
	for i := len(s.bank) - 1; i >= 0; i-- {
		v := 0
		if s.bank[i] {
			v = 1
		}
		s.dataLine.SetValue(v)
		s.clockLine.SetValue(1)
		s.clockLine.SetValue(0)
	}
	s.latchLine.SetValue(1)
	s.latchLine.SetValue(0)
}

func (s *ShiftRegister) RainSensor() bool {
	s.mu.Lock()
	line := s.rainLine
	s.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	return err == nil && v != 0
}

func (s *ShiftRegister) Button() bool {
	s.mu.Lock()
	line := s.buttonLine
	s.mu.Unlock()
	if line == nil {
		return false
	}
	v, err := line.Value()
	return err == nil && v != 0
}

func (s *ShiftRegister) RainInterrupt(cb InterruptCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rainCb = cb
}

func (s *ShiftRegister) ButtonInterrupt(cb InterruptCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttonCb = cb
}

// Close releases all GPIO resources.
func (s *ShiftRegister) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retryStop != nil {
		close(s.retryStop)
		s.retryStop = nil
	}
	var firstErr error
	for _, l := range []*gpiocdev.Line{s.dataLine, s.clockLine, s.latchLine, s.rainLine, s.buttonLine} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
