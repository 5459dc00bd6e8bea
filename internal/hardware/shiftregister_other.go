//go:build !linux

package hardware

import "errors"

// ShiftRegister is not available on non-Linux platforms.
type ShiftRegister struct{}

// NewShiftRegister returns a stub ShiftRegister; Configure always fails.
func NewShiftRegister() *ShiftRegister {
	return &ShiftRegister{}
}

func (s *ShiftRegister) Info() Info {
	return Info{ID: "shiftregister", Title: "shift-register bank driver"}
}

func (s *ShiftRegister) Configure(hw Config, zones []ZoneConfig) error {
	return errors.New("hardware: shiftregister not supported on this platform (requires Linux)")
}

func (s *ShiftRegister) SetZone(i int, on bool)               {}
func (s *ShiftRegister) Apply()                               {}
func (s *ShiftRegister) RainSensor() bool                     { return false }
func (s *ShiftRegister) Button() bool                         { return false }
func (s *ShiftRegister) RainInterrupt(cb InterruptCallback)   {}
func (s *ShiftRegister) ButtonInterrupt(cb InterruptCallback) {}
func (s *ShiftRegister) Close() error                         { return nil }
