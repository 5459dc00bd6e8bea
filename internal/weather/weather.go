// Package weather implements the WeatherAdjuster described in
// spec.md §4.3: a polled external temperature/humidity/rainfall
// source that scales per-zone run durations and can itself report a
// rain-sensor-equivalent reading.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sweeney/sprinklerd/internal/adjust"
)

// Source is the adjustment-source tag recorded on run items that used
// this adjuster (§4.6 priority list, option 3).
const Source = "WEATHER"

// AdjustConfig is the `weather.adjust` block of §6.
type AdjustConfig struct {
	Enable      bool
	Min         int
	Max         int
	Temperature int // temp_base, degrees F
	Humidity    int // humidity_base, percent
	Sensitivity int // percent
}

// Config is the `weather` block of §6.
type Config struct {
	Enable      bool
	Key         string
	Station     string
	RainTrigger float64 // inches
	Refresh     []string // "HH" or "HH:MM" strings
	Adjust      AdjustConfig
	Zipcode     string
}

// slot is one armed-polling entry derived from a Refresh string.
type slot struct {
	hour   int
	minute int
	armed  bool
}

// payload is the last successfully fetched weather sample.
type payload struct {
	TemperatureF float64
	HumidityPct  float64
	RainInches   float64
}

// Fetcher performs the actual network call; swapped out in tests.
// Grounded on the only HTTP-client precedent in the retrieved pack
// (openwms-go-garden/controller.go's sendData/readVirtualInputs), both
// bare net/http + encoding/json, generalized here behind an interface
// so Adjuster can be tested without a network.
type Fetcher func(cfg Config) (temperatureF, humidityPct, rainInches float64, err error)

// Adjuster is the WeatherAdjuster. All mutable state is guarded by mu.
type Adjuster struct {
	mu sync.Mutex

	cfg   Config
	slots []slot

	have      bool
	last      payload
	lastFetch time.Time

	fetch Fetcher
	now   func() time.Time
}

// New creates an Adjuster. fetch may be nil to use the default HTTP
// fetcher against the configured provider endpoint.
func New(fetch Fetcher, now func() time.Time) *Adjuster {
	if now == nil {
		now = time.Now
	}
	if fetch == nil {
		fetch = httpFetch
	}
	return &Adjuster{fetch: fetch, now: now}
}

// Configure rebuilds the refresh schedule from cfg. If data is already
// cached, the next refresh() call is deferred 10 minutes out to avoid
// a stampede across every adjuster reconfigured at once (§4.3).
func (a *Adjuster) Configure(cfg Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.slots = parseSlots(cfg.Refresh)
	if a.have {
		a.lastFetch = a.now().Add(-6*time.Hour + 10*time.Minute)
	}
}

func parseSlots(refresh []string) []slot {
	slots := make([]slot, 0, len(refresh))
	for _, r := range refresh {
		h, m, ok := parseHHMM(r)
		if !ok {
			continue
		}
		slots = append(slots, slot{hour: h, minute: m, armed: true})
	}
	return slots
}

func parseHHMM(s string) (hour, minute int, ok bool) {
	var hs, ms string
	for i, c := range s {
		if c == ':' {
			hs, ms = s[:i], s[i+1:]
			break
		}
	}
	if hs == "" {
		hs = s
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	if ms == "" {
		return h, 0, true
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Enabled reports whether weather adjustment is configured on.
func (a *Adjuster) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Enable && a.cfg.Adjust.Enable
}

// SetEnabled flips the weather adjuster on or off from the control
// surface (§6), independent of a full Configure reload.
func (a *Adjuster) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Enable = enabled
}

// Refresh is the heartbeat call: it fetches only when a configured
// slot is due, or — with no slots configured — when at least 6 hours
// have elapsed since the last fetch. Returns true if a fetch attempt
// was made (regardless of success), so the caller can log/emit an
// UPDATE event only when it actually ran.
func (a *Adjuster) Refresh(now time.Time) (fetched bool, updated bool, err error) {
	a.mu.Lock()
	due := a.dueLocked(now)
	a.mu.Unlock()
	if !due {
		return false, false, nil
	}

	t, h, r, ferr := a.fetch(a.cfgSnapshot())

	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastFetch = now
	if ferr != nil {
		return true, false, ferr
	}
	a.have = true
	a.last = payload{TemperatureF: t, HumidityPct: h, RainInches: r}
	return true, true, nil
}

func (a *Adjuster) cfgSnapshot() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// dueLocked must be called with mu held.
func (a *Adjuster) dueLocked(now time.Time) bool {
	if len(a.slots) == 0 {
		return now.Sub(a.lastFetch) >= 6*time.Hour
	}
	fired := false
	for i := range a.slots {
		s := &a.slots[i]
		if now.Hour() == s.hour {
			if s.armed && now.Minute() >= s.minute {
				s.armed = false
				fired = true
			}
		} else {
			s.armed = true
		}
	}
	return fired
}

// Updated returns the timestamp of the last fetch attempt, whether or
// not it succeeded; Configure with cached data moves it back to defer
// the next refresh.
func (a *Adjuster) Updated() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastFetch
}

// adjustmentLocked computes the raw percentage per §4.3's documented
// formula. Must be called with mu held.
func (a *Adjuster) adjustmentLocked() int {
	if !a.have {
		return 100
	}
	c := a.cfg.Adjust
	raw := float64(c.Humidity) - a.last.HumidityPct +
		4*(a.last.TemperatureF-float64(c.Temperature)) -
		200*a.last.RainInches
	scaled := raw * float64(c.Sensitivity) / 100
	adj := 100 + scaled
	if adj < 0 {
		adj = 0
	}
	return int(adj + 0.5)
}

// Adjustment returns the raw (unclamped) percentage adjustment.
func (a *Adjuster) Adjustment() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adjustmentLocked()
}

// Adjust returns clamp(min*s/100, raw*s/100, max*s/100) with
// half-rounded integer arithmetic, per §4.3, sharing its rounding and
// clamping rule with internal/adjust and internal/wateringindex.
func (a *Adjuster) Adjust(seconds int) int {
	a.mu.Lock()
	raw := a.adjustmentLocked()
	min, max := a.cfg.Adjust.Min, a.cfg.Adjust.Max
	a.mu.Unlock()

	return adjust.Clamp(seconds, min, max, adjust.AdjustSeconds(seconds, raw))
}

// RainSensor reports true iff the configured raintrigger threshold has
// been reached by the current day's accumulated rainfall.
func (a *Adjuster) RainSensor() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.have {
		return false
	}
	return a.cfg.RainTrigger <= a.last.RainInches
}

// httpFetch is the default Fetcher, a plain net/http + encoding/json
// call against the configured weather provider, following
// openwms-go-garden's sendData/readVirtualInputs shape (no HTTP
// client library appears anywhere in the retrieved pack).
func httpFetch(cfg Config) (temperatureF, humidityPct, rainInches float64, err error) {
	if !cfg.Enable {
		return 0, 0, 0, fmt.Errorf("weather: fetch called while disabled")
	}

	q := url.Values{}
	q.Set("key", cfg.Key)
	if cfg.Station != "" {
		q.Set("station", cfg.Station)
	}
	if cfg.Zipcode != "" {
		q.Set("zip", cfg.Zipcode)
	}
	u := "https://api.weather.example/v1/current?" + q.Encode()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("weather: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("weather: read response: %w", err)
	}

	var out struct {
		TemperatureF float64 `json:"temperature_f"`
		HumidityPct  float64 `json:"humidity_pct"`
		RainInches   float64 `json:"rain_inches"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, 0, 0, fmt.Errorf("weather: parse response: %w", err)
	}
	return out.TemperatureF, out.HumidityPct, out.RainInches, nil
}
