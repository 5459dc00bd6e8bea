package hardware

import "sync"

// Null is the driver used when configuration sets production=false:
// it accepts every write silently and reports no sensor activity,
// generalizing gpio/stub.go's "not supported on this platform" shape
// but never erroring, per §4.1's "never raise to the caller" and §6's
// "if false, hardware is simulated".
type Null struct {
	mu      sync.Mutex
	applied map[int]bool
}

// NewNull creates a Null driver.
func NewNull() *Null {
	return &Null{applied: make(map[int]bool)}
}

func (n *Null) Info() Info {
	return Info{ID: "null", Title: "Simulated (no hardware)"}
}

func (n *Null) Configure(hw Config, zones []ZoneConfig) error { return nil }

func (n *Null) SetZone(i int, on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.applied[i] = on
}

func (n *Null) Apply() {}

func (n *Null) RainSensor() bool { return false }

func (n *Null) Button() bool { return false }

func (n *Null) RainInterrupt(cb InterruptCallback)   {}
func (n *Null) ButtonInterrupt(cb InterruptCallback) {}
