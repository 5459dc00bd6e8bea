// Package config loads the single JSON configuration document of
// spec.md §6 and the separate hardware.json document, and builds the
// domain collaborators (zone.Index, adjust.Table/Seasons, the
// HardwareDriver, EventSink, calendar.Importer, WeatherAdjuster,
// WateringIndexAdjuster and the program list) that engine.Config
// needs, following the teacher's hand-rolled encoding/json idiom
// (internal/mqtt/mqtt.go, internal/status/json.go) rather than a
// schema library — none appears anywhere in the retrieved pack.
package config

// Document is the decoded shape of config.json (§6).
type Document struct {
	On         bool   `json:"on"`
	Production bool   `json:"production"`
	RainDelay  bool   `json:"raindelay"`
	Timezone   string `json:"timezone"`
	Location   string `json:"location"`
	Zipcode    string `json:"zipcode"`

	Zones     []ZoneDoc      `json:"zones"`
	Programs  []ProgramDoc   `json:"programs"`
	Calendars []CalendarDoc  `json:"calendars"`
	Seasons   []VectorDoc    `json:"seasons"`
	Adjust    []VectorDoc    `json:"adjust"`

	Weather       WeatherDoc       `json:"weather"`
	WateringIndex WateringIndexDoc `json:"wateringindex"`
	Event         EventDoc         `json:"event"`
	Webserver     WebserverDoc     `json:"webserver"`
	UDP           UDPDoc           `json:"udp"`
}

// ZoneDoc is one `zones[]` entry. Master is a zone index, matching
// §3's "optional master zone-index"; nil means no master.
type ZoneDoc struct {
	Name    string `json:"name"`
	Pin     string `json:"pin,omitempty"`
	On      string `json:"on,omitempty"`
	Adjust  string `json:"adjust,omitempty"`
	Pulse   int    `json:"pulse,omitempty"`
	Pause   int    `json:"pause,omitempty"`
	Master  *int   `json:"master,omitempty"`
	Manual  bool   `json:"manual,omitempty"`
}

// ZoneRunDoc is one `programs[*].zones[]` entry (§3).
type ZoneRunDoc struct {
	Zone    int `json:"zone"`
	Seconds int `json:"seconds"`
}

// OptionsDoc is `programs[*].options`.
type OptionsDoc struct {
	Append bool `json:"append,omitempty"`
}

// ProgramDoc is one `programs[]` entry (§3). User-authored programs
// never carry Exceptions/Exclusions — those are calendar-only, so
// this document shape omits them.
type ProgramDoc struct {
	Name     string       `json:"name"`
	Active   bool         `json:"active"`
	Start    string       `json:"start"`
	Repeat   string       `json:"repeat"`
	Interval int          `json:"interval,omitempty"`
	Days     [7]bool      `json:"days,omitempty"`
	Date     string       `json:"date,omitempty"`
	Until    string       `json:"until,omitempty"` // RFC3339; empty means unset
	Season   string       `json:"season,omitempty"`
	Options  OptionsDoc   `json:"options,omitempty"`
	Zones    []ZoneRunDoc `json:"zones"`
}

// CalendarDoc is one `calendars[]` entry (§6).
type CalendarDoc struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	Source   string `json:"source"`
	Season   string `json:"season,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// VectorDoc is one `seasons[]` or `adjust[]` entry: a name plus either
// a 12-entry monthly vector or a <=53-entry weekly vector. Seasons use
// Monthly/Weekly as 0/1 ints (bool semantics); Adjust uses them as
// percent integers — the same wire shape serves both per §6.
type VectorDoc struct {
	Name    string `json:"name"`
	Monthly []int  `json:"monthly,omitempty"`
	Weekly  []int  `json:"weekly,omitempty"`
}

// WeatherAdjustDoc is `weather.adjust` (§6).
type WeatherAdjustDoc struct {
	Enable      bool `json:"enable"`
	Min         int  `json:"min"`
	Max         int  `json:"max"`
	Temperature int  `json:"temperature"`
	Humidity    int  `json:"humidity"`
	Sensitivity int  `json:"sensitivity"`
}

// WeatherDoc is the `weather` block (§6).
type WeatherDoc struct {
	Enable      bool             `json:"enable"`
	Key         string           `json:"key"`
	Station     string           `json:"station,omitempty"`
	RainTrigger float64          `json:"raintrigger"`
	Refresh     []string         `json:"refresh"`
	Adjust      WeatherAdjustDoc `json:"adjust"`
}

// WateringIndexAdjustDoc is `wateringindex.adjust` (§6).
type WateringIndexAdjustDoc struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// WateringIndexDoc is the `wateringindex` block (§6).
type WateringIndexDoc struct {
	Enable   bool                    `json:"enable"`
	Provider string                  `json:"provider"`
	Refresh  []string                `json:"refresh"`
	Adjust   WateringIndexAdjustDoc  `json:"adjust"`
}

// EventDoc is the `event` block (§6). MQTTBroker is an ambient
// extension beyond the distilled §6 fields: it enables the optional
// MQTT fan-out (SPEC_FULL.md DOMAIN STACK), empty disables it.
type EventDoc struct {
	Syslog     bool   `json:"syslog"`
	Cleanup    int    `json:"cleanup"` // days
	MQTTBroker string `json:"mqttbroker,omitempty"`
}

// WebserverDoc is the `webserver` block (§6).
type WebserverDoc struct {
	Port int `json:"port"`
}

// UDPDoc is the `udp` block (§6); Port of 0 means "defaults to
// webserver.port", per spec.
type UDPDoc struct {
	Port int `json:"port,omitempty"`
}

// HardwareDocument is the decoded shape of hardware.json: physical
// wiring, independent of the zone-by-zone user configuration (§6
// persistence note). Backend selects which Driver implementation
// Configure wires up.
type HardwareDocument struct {
	Backend     string             `json:"backend"` // "pindriver" or "shiftregister"
	Chip        string             `json:"chip"`
	RainPin     int                `json:"rainpin"`
	ButtonPin   int                `json:"buttonpin"`
	ActiveEdge  string             `json:"activeedge"` // "rising" or "falling"
	ZonePins    []int              `json:"zonepins,omitempty"`
	RetryMillis int                `json:"retrymillis,omitempty"`
	ShiftRegister ShiftRegisterDoc `json:"shiftregister,omitempty"`
}

// ShiftRegisterDoc is `hardware.json`'s `shiftregister` block.
type ShiftRegisterDoc struct {
	DataPin  int `json:"datapin"`
	ClockPin int `json:"clockpin"`
	LatchPin int `json:"latchpin"`
	Bits     int `json:"bits"`
}
