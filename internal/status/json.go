package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Mode          string      `json:"mode"`
	On            bool        `json:"on"`
	RainHold      bool        `json:"rain_hold"`
	RainDeadline  string      `json:"rain_deadline,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Current       *ZoneJSON   `json:"current,omitempty"`
	Queue         []ZoneJSON  `json:"queue"`
	Config        ConfigJSON  `json:"config"`
}

// ZoneJSON is the JSON representation of one current/queued run item.
type ZoneJSON struct {
	Zone      int    `json:"zone"`
	Name      string `json:"name,omitempty"`
	Seconds   int    `json:"seconds"`
	Remaining int    `json:"remaining,omitempty"`
	Parent    string `json:"parent,omitempty"`
}

// ConfigJSON is the JSON representation of daemon listener config.
type ConfigJSON struct {
	HTTPPort string `json:"http_port"`
	UDPPort  string `json:"udp_port,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Mode:          string(snap.Mode),
		On:            snap.On,
		RainHold:      snap.RainHold,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config:        ConfigJSON{HTTPPort: snap.Config.HTTPPort, UDPPort: snap.Config.UDPPort},
	}
	if !snap.RainDeadline.IsZero() {
		inner.RainDeadline = snap.RainDeadline.UTC().Format(time.RFC3339)
	}
	if snap.Running {
		inner.Current = &ZoneJSON{
			Zone:      snap.CurrentZone,
			Name:      snap.CurrentName,
			Remaining: snap.Remaining,
			Parent:    snap.CurrentParent,
		}
	}
	inner.Queue = make([]ZoneJSON, len(snap.Queue))
	for i, q := range snap.Queue {
		inner.Queue[i] = ZoneJSON{Zone: q.Zone, Name: q.Name, Seconds: q.Seconds, Parent: q.Parent}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT or log system
// event (STARTUP, SHUTDOWN, ...).
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
