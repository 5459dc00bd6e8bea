//go:build !linux

package hardware

import "errors"

// PinDriver is not available on non-Linux platforms.
type PinDriver struct{}

// NewPinDriver returns a stub PinDriver; Configure always fails.
func NewPinDriver() *PinDriver {
	return &PinDriver{}
}

func (p *PinDriver) Info() Info {
	return Info{ID: "pindriver", Title: "per-pin relay driver"}
}

func (p *PinDriver) Configure(hw Config, zones []ZoneConfig) error {
	return errors.New("hardware: pindriver not supported on this platform (requires Linux)")
}

func (p *PinDriver) SetZone(i int, on bool)               {}
func (p *PinDriver) Apply()                               {}
func (p *PinDriver) RainSensor() bool                     { return false }
func (p *PinDriver) Button() bool                         { return false }
func (p *PinDriver) RainInterrupt(cb InterruptCallback)   {}
func (p *PinDriver) ButtonInterrupt(cb InterruptCallback) {}
func (p *PinDriver) Close() error                         { return nil }
