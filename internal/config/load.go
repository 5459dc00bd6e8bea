package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Search path for config.json and hardware.json, per §6's
// "Persistence" note: current directory first, then the system path.
// The event database file falls back the same way (see eventsink.Config.DBPath
// wiring in build.go).
var (
	ConfigSearchPath   = []string{"./config.json", "/var/lib/sprinkler/config.json"}
	HardwareSearchPath = []string{"./hardware.json", "/var/lib/sprinkler/hardware.json"}
	EventDBSearchPath  = []string{"./events.db", "/var/lib/sprinkler/events.db"}
)

// resolvePath returns the first path in candidates that exists, or
// the last candidate if none do (so callers get a sensible default
// location to create on first run).
func resolvePath(candidates []string) string {
	for _, p := range candidates[:len(candidates)-1] {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[len(candidates)-1]
}

// Load reads and decodes config.json from the search path. A missing
// file is not an error: it returns the zero Document so a first boot
// can run with an empty configuration until one is written.
func Load() (Document, string, error) {
	path := resolvePath(ConfigSearchPath)
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, path, nil
		}
		return doc, path, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, path, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return doc, path, nil
}

// LoadHardware reads and decodes hardware.json from its search path.
func LoadHardware() (HardwareDocument, string, error) {
	path := resolvePath(HardwareSearchPath)
	var doc HardwareDocument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, path, nil
		}
		return doc, path, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, path, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return doc, path, nil
}

// EventDBPath resolves the event database file location, following
// the same current-directory-then-system-path fallback as config.json
// (§6).
func EventDBPath() string {
	return resolvePath(EventDBSearchPath)
}
