package config

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/sprinklerd/internal/adjust"
	"github.com/sweeney/sprinklerd/internal/calendar"
	"github.com/sweeney/sprinklerd/internal/engine"
	"github.com/sweeney/sprinklerd/internal/eventsink"
	"github.com/sweeney/sprinklerd/internal/hardware"
	"github.com/sweeney/sprinklerd/internal/program"
	"github.com/sweeney/sprinklerd/internal/raindelay"
	"github.com/sweeney/sprinklerd/internal/wateringindex"
	"github.com/sweeney/sprinklerd/internal/weather"
	"github.com/sweeney/sprinklerd/internal/zone"
)

// Runtime holds every collaborator built from configuration, across
// the lifetime of the daemon. Reload rebuilds the pure-data
// collaborators (zones, adjustment tables, programs) fresh each time,
// but re-Configures the refreshers (Hardware, Weather, WateringIndex,
// Calendar) in place so their cached data and self-throttling slots
// survive a reload, per spec.md §5: "Config reload re-initialises
// refreshers and the HardwareDriver; it does not touch the current
// queue nor the in-flight run."
type Runtime struct {
	Zones    *zone.Index
	AdjustTb *adjust.Table
	Seasons  *adjust.Seasons
	Hardware hardware.Driver
	Sink     *eventsink.Sink
	Rain     *raindelay.State
	Weather  *weather.Adjuster
	WI       *wateringindex.Adjuster
	Calendar *calendar.Importer
	Location *time.Location
	Programs []program.Program

	now func() time.Time
}

// New builds a fresh Runtime from a decoded config.json and
// hardware.json document pair. now defaults to time.Now.
func New(doc Document, hwDoc HardwareDocument, now func() time.Time) (*Runtime, error) {
	if now == nil {
		now = time.Now
	}
	rt := &Runtime{
		Rain: raindelay.New(),
		now:  now,
	}
	rt.Weather = weather.New(nil, now)
	rt.WI = wateringindex.New(nil, now)

	if err := rt.Reload(doc, hwDoc); err != nil {
		return nil, err
	}
	return rt, nil
}

// Reload rebuilds the pure-data collaborators and re-Configures the
// refreshers and HardwareDriver from a newly-loaded document pair.
func (rt *Runtime) Reload(doc Document, hwDoc HardwareDocument) error {
	loc, err := resolveLocation(doc.Timezone)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	rt.Location = loc

	zones := buildZones(doc.Zones)
	idx, err := zone.NewIndex(zones)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	rt.Zones = idx

	rt.AdjustTb = adjust.NewTable(buildProfiles(doc.Adjust))
	rt.Seasons = adjust.NewSeasons(buildSeasons(doc.Seasons))
	rt.Programs = buildPrograms(doc.Programs)

	if rt.Hardware == nil {
		rt.Hardware = selectDriver(doc.Production, hwDoc.Backend)
	}
	hwCfg, zoneCfgs := buildHardwareConfig(hwDoc, zones)
	if err := rt.Hardware.Configure(hwCfg, zoneCfgs); err != nil {
		// HardwareInit policy (§7): retry silently, don't fail reload.
		// The driver itself owns the retry loop once Configure returns.
		log.Printf("config: hardware configure: %v", err)
	}

	if rt.Sink == nil {
		sinkCfg := eventsink.Config{
			DBPath:      EventDBPath(),
			CleanupDays: doc.Event.Cleanup,
			Syslog:      doc.Event.Syslog,
			MQTTBroker:  doc.Event.MQTTBroker,
		}
		sink, err := eventsink.New(sinkCfg, rt.now)
		if err != nil {
			// Persistence policy (§7): log, continue with an
			// in-memory sink rather than failing the whole reload.
			log.Printf("config: event sink %s unavailable, falling back to in-memory: %v", sinkCfg.DBPath, err)
			sinkCfg.DBPath = ""
			sink, err = eventsink.New(sinkCfg, rt.now)
			if err != nil {
				return fmt.Errorf("config: event sink: %w", err)
			}
		}
		rt.Sink = sink
	}

	weatherCfg := buildWeatherConfig(doc.Weather)
	weatherCfg.Zipcode = doc.Zipcode
	rt.Weather.Configure(weatherCfg)
	rt.WI.Configure(buildWateringIndexConfig(doc.WateringIndex))

	if rt.Calendar == nil {
		rt.Calendar = calendar.New(doc.Location, loc, idx, nil, rt.now)
	}
	rt.Calendar.Configure(buildCalendars(doc.Calendars))

	return nil
}

// EngineConfig assembles an engine.Config for New/Reconfigure from the
// current Runtime state.
func (rt *Runtime) EngineConfig() engine.Config {
	return engine.Config{
		Zones:    rt.Zones,
		AdjustTb: rt.AdjustTb,
		Seasons:  rt.Seasons,
		Hardware: rt.Hardware,
		Sink:     rt.Sink,
		Rain:     rt.Rain,
		Weather:  rt.Weather,
		WI:       rt.WI,
		Calendar: rt.Calendar,
		Location: rt.Location,
		Programs: rt.Programs,
	}
}

func resolveLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return loc, nil
}

func selectDriver(production bool, backend string) hardware.Driver {
	if !production {
		return hardware.NewNull()
	}
	switch backend {
	case "shiftregister":
		return hardware.NewShiftRegister()
	default:
		return hardware.NewPinDriver()
	}
}

func buildHardwareConfig(hwDoc HardwareDocument, zones []zone.Zone) (hardware.Config, []hardware.ZoneConfig) {
	edge := hardware.EdgeFalling
	if hwDoc.ActiveEdge == "rising" {
		edge = hardware.EdgeRising
	}
	cfg := hardware.Config{
		Chip:        hwDoc.Chip,
		RainPin:     hwDoc.RainPin,
		ButtonPin:   hwDoc.ButtonPin,
		ActiveEdge:  edge,
		ZonePins:    hwDoc.ZonePins,
		RetryMillis: hwDoc.RetryMillis,
		ShiftRegister: hardware.ShiftRegisterConfig{
			DataPin:  hwDoc.ShiftRegister.DataPin,
			ClockPin: hwDoc.ShiftRegister.ClockPin,
			LatchPin: hwDoc.ShiftRegister.LatchPin,
			Bits:     hwDoc.ShiftRegister.Bits,
		},
	}

	zoneCfgs := make([]hardware.ZoneConfig, len(zones))
	for i, z := range zones {
		zoneCfgs[i] = hardware.ZoneConfig{
			Index:      i,
			Pin:        z.Pin,
			ActiveHigh: z.On != zone.LevelLow,
		}
	}
	return cfg, zoneCfgs
}

func buildZones(docs []ZoneDoc) []zone.Zone {
	zones := make([]zone.Zone, len(docs))
	for i, d := range docs {
		master := zone.NoMaster
		if d.Master != nil {
			master = *d.Master
		}
		zones[i] = zone.Zone{
			Name:   d.Name,
			Pin:    d.Pin,
			On:     zone.Level(d.On),
			Master: master,
			Manual: d.Manual,
			Pulse:  d.Pulse,
			Pause:  d.Pause,
			Adjust: d.Adjust,
		}
	}
	return zones
}

func buildProfiles(docs []VectorDoc) []adjust.Profile {
	profiles := make([]adjust.Profile, len(docs))
	for i, d := range docs {
		profiles[i] = adjust.Profile{Name: d.Name, Monthly: d.Monthly, Weekly: d.Weekly}
	}
	return profiles
}

func buildSeasons(docs []VectorDoc) []adjust.Season {
	seasons := make([]adjust.Season, len(docs))
	for i, d := range docs {
		seasons[i] = adjust.Season{
			Name:    d.Name,
			Monthly: intsToBools(d.Monthly),
			Weekly:  intsToBools(d.Weekly),
		}
	}
	return seasons
}

func intsToBools(in []int) []bool {
	if in == nil {
		return nil
	}
	out := make([]bool, len(in))
	for i, v := range in {
		out[i] = v != 0
	}
	return out
}

func buildPrograms(docs []ProgramDoc) []program.Program {
	programs := make([]program.Program, len(docs))
	for i, d := range docs {
		p := program.Program{
			Name:     d.Name,
			Active:   d.Active,
			Start:    d.Start,
			Repeat:   program.Repeat(d.Repeat),
			Interval: d.Interval,
			Days:     d.Days,
			Date:     d.Date,
			Season:   d.Season,
			Options:  program.Options{Append: d.Options.Append},
		}
		if d.Until != "" {
			if t, err := time.Parse(time.RFC3339, d.Until); err == nil {
				p.Until = t
			}
		}
		p.Zones = make([]program.ZoneRun, len(d.Zones))
		for j, z := range d.Zones {
			p.Zones[j] = program.ZoneRun{Zone: z.Zone, Seconds: z.Seconds}
		}
		programs[i] = p
	}
	return programs
}

func buildCalendars(docs []CalendarDoc) []calendar.SourceConfig {
	out := make([]calendar.SourceConfig, len(docs))
	for i, d := range docs {
		out[i] = calendar.SourceConfig{
			Name:     d.Name,
			Format:   d.Format,
			Source:   d.Source,
			Season:   d.Season,
			Disabled: d.Disabled,
		}
	}
	return out
}

func buildWeatherConfig(d WeatherDoc) weather.Config {
	return weather.Config{
		Enable:      d.Enable,
		Key:         d.Key,
		Station:     d.Station,
		RainTrigger: d.RainTrigger,
		Refresh:     d.Refresh,
		Adjust: weather.AdjustConfig{
			Enable:      d.Adjust.Enable,
			Min:         d.Adjust.Min,
			Max:         d.Adjust.Max,
			Temperature: d.Adjust.Temperature,
			Humidity:    d.Adjust.Humidity,
			Sensitivity: d.Adjust.Sensitivity,
		},
	}
}

func buildWateringIndexConfig(d WateringIndexDoc) wateringindex.Config {
	return wateringindex.Config{
		Enable:   d.Enable,
		Provider: wateringindex.Provider(d.Provider),
		Refresh:  d.Refresh,
		Adjust: wateringindex.AdjustConfig{
			Min: d.Adjust.Min,
			Max: d.Adjust.Max,
		},
	}
}
