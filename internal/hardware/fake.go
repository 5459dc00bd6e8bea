package hardware

import "sync"

// Fake is a test double that records staged/applied zone state and
// returns scripted sensor readings, generalizing gpio.FakeReader's
// scripted-samples shape to N zone outputs plus two inputs.
type Fake struct {
	mu sync.Mutex

	info Info

	pending map[int]bool
	applied map[int]bool

	// RainSamples and ButtonSamples are scripted readings consumed one
	// per call to RainSensor/Button; the last sample repeats once
	// exhausted, matching gpio.FakeReader's Read() behaviour.
	RainSamples   []bool
	rainIndex     int
	ButtonSamples []bool
	buttonIndex   int

	rainCb   InterruptCallback
	buttonCb InterruptCallback

	// AppliedLog records each Apply() call's full bank snapshot, for
	// tests asserting energisation order.
	AppliedLog []map[int]bool
}

// NewFake creates a Fake driver with no zones energised.
func NewFake() *Fake {
	return &Fake{
		info:    Info{ID: "fake", Title: "Fake Driver"},
		pending: make(map[int]bool),
		applied: make(map[int]bool),
	}
}

func (f *Fake) Info() Info { return f.info }

func (f *Fake) Configure(hw Config, zones []ZoneConfig) error {
	return nil
}

func (f *Fake) SetZone(i int, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[i] = on
}

func (f *Fake) Apply() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.pending {
		f.applied[i] = v
	}
	snap := make(map[int]bool, len(f.applied))
	for i, v := range f.applied {
		snap[i] = v
	}
	f.AppliedLog = append(f.AppliedLog, snap)
}

// IsOn reports the last applied state of zone i (not the pending,
// unapplied state).
func (f *Fake) IsOn(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied[i]
}

func (f *Fake) RainSensor() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return nextSample(f.RainSamples, &f.rainIndex)
}

func (f *Fake) Button() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return nextSample(f.ButtonSamples, &f.buttonIndex)
}

func nextSample(samples []bool, index *int) bool {
	if len(samples) == 0 {
		return false
	}
	v := samples[*index]
	if *index < len(samples)-1 {
		*index++
	}
	return v
}

func (f *Fake) RainInterrupt(cb InterruptCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rainCb = cb
}

func (f *Fake) ButtonInterrupt(cb InterruptCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttonCb = cb
}

// FireRain invokes the registered rain callback, simulating a hardware
// edge, for use in tests.
func (f *Fake) FireRain(output bool) {
	f.mu.Lock()
	cb := f.rainCb
	f.mu.Unlock()
	if cb != nil {
		cb(output)
	}
}

// FireButton invokes the registered button callback, simulating a
// hardware edge, for use in tests.
func (f *Fake) FireButton(output bool) {
	f.mu.Lock()
	cb := f.buttonCb
	f.mu.Unlock()
	if cb != nil {
		cb(output)
	}
}
