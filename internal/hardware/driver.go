// Package hardware provides zone output control with hardware
// abstraction. The real backends drive a shift-register bank or a
// per-pin relay board over Linux GPIO; the null backend simulates
// hardware for production=false configurations; the fake backend is a
// scripted test double.
package hardware

// Edge is the interrupt edge a driver watches for on an input.
type Edge string

const (
	EdgeFalling Edge = "falling"
	EdgeRising  Edge = "rising"
)

// Info describes a driver's identity and zone capacity to callers
// that need to validate a configuration against it.
type Info struct {
	ID       string
	Title    string
	ZonesAdd int // number of zones this driver can add beyond its base set
	ZonesPin string
	ZonesMax int // 0 means unbounded
}

// InterruptCallback receives the logical output state on an edge.
type InterruptCallback func(output bool)

// Config is the hardware-side configuration (hardware.json, §6
// persistence): physical pin assignments independent of the
// zone-by-zone user configuration.
type Config struct {
	Chip        string // Linux gpiochip device name, e.g. "gpiochip0"
	RainPin     int
	ButtonPin   int
	ActiveEdge  Edge
	ZonePins    []int // index-aligned with the configured zone list; pin driver only
	RetryMillis int   // boot-race retry interval; 0 defaults to 200ms; pin driver only (shift register always uses 200ms)

	// ShiftRegister carries the control-line assignment for the
	// shift-register backend; zero value for the pin-driver backend.
	ShiftRegister ShiftRegisterConfig
}

// ZoneConfig is the minimal per-zone shape a Driver needs from user
// configuration: pin identifier and active level. Defined here rather
// than imported from internal/zone to keep this package free of a
// dependency on the scheduling domain.
type ZoneConfig struct {
	Index   int
	Pin     string
	ActiveHigh bool
}

// Driver is the capability contract the Scheduler and Executor use to
// energise zones and read sensor/button inputs. Every operation that
// writes to physical pins is best-effort: SetZone and Apply never
// return an error to the caller (§4.1 failure semantics). A driver
// that cannot yet reach its pins stores the intended value and
// retries in the background, applying it once ready.
type Driver interface {
	Info() Info

	// Configure (re-)initializes the driver from hardware and
	// per-zone configuration. Safe to call again on config reload.
	Configure(hw Config, zones []ZoneConfig) error

	// SetZone stages zone i to the given on/off state. The change is
	// not guaranteed visible on the physical bank until Apply is
	// called.
	SetZone(i int, on bool)

	// Apply commits all pending SetZone calls to the physical bank.
	// For per-pin drivers this may be a no-op; shift-register drivers
	// must use it to transfer the whole bank atomically.
	Apply()

	// RainSensor reports the current physical rain-sensor reading.
	// Drivers that cannot observe this input return false constantly.
	RainSensor() bool

	// Button reports the current physical button reading.
	Button() bool

	// RainInterrupt registers cb to fire on the configured active edge
	// of the rain sensor input.
	RainInterrupt(cb InterruptCallback)

	// ButtonInterrupt registers cb to fire on the configured active
	// edge of the button input.
	ButtonInterrupt(cb InterruptCallback)
}
