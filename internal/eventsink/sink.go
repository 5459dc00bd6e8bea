package eventsink

import (
	"log"
	"sync"
	"time"
)

// Config controls EventSink construction: persistence location,
// retention, and optional fan-outs (§4.2, §6 `event` block).
type Config struct {
	// DBPath is the sqlite file path. Empty means use an in-memory
	// store (tests, or a deployment with no persistence requirement).
	DBPath string

	// CleanupDays is the retention window; <= 0 disables trimming.
	CleanupDays int

	Syslog bool

	// MQTTBroker, if non-empty, enables the optional MQTT fan-out.
	MQTTBroker string
}

// Sink is the thread-safe EventSink described in §4.2: it assigns a
// monotone (timestamp, sequence) pair to every record, persists it,
// and optionally fans it out to syslog and/or MQTT. All of Sink's
// mutable state (lastTimestamp/lastSequence) is guarded by one mutex,
// mirroring the teacher's status.Tracker RWMutex-around-a-value-type
// shape but write-heavy rather than read-heavy.
type Sink struct {
	mu            sync.Mutex
	store         store
	cleanupDays   int
	lastTimestamp time.Time
	lastSequence  int

	syslog *syslogFanout
	mqtt   *mqttFanout

	now func() time.Time
}

// New constructs a Sink from cfg. now defaults to time.Now; tests may
// override it for deterministic sequencing.
func New(cfg Config, now func() time.Time) (*Sink, error) {
	if now == nil {
		now = time.Now
	}
	var st store
	var err error
	if cfg.DBPath == "" {
		st = newMemStore()
	} else {
		st, err = newSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
	}

	s := &Sink{
		store:       st,
		cleanupDays: cfg.CleanupDays,
		now:         now,
	}

	if cfg.Syslog {
		sf, err := newSyslogFanout()
		if err != nil {
			log.Printf("eventsink: syslog fan-out disabled: %v", err)
		} else {
			s.syslog = sf
		}
	}
	if cfg.MQTTBroker != "" {
		mf, err := newMQTTFanout(cfg.MQTTBroker)
		if err != nil {
			log.Printf("eventsink: mqtt fan-out disabled: %v", err)
		} else {
			s.mqtt = mf
		}
	}

	return s, nil
}

// Data is the caller-supplied content of a new record; Record adds
// the timestamp and sequence.
type Data struct {
	Action      Action
	Zone        *int
	Program     string
	Parent      string
	Seconds     *int
	Runtime     *int
	Adjustment  *int
	Source      string
	Temperature *float64
	Humidity    *float64
	Rain        *float64
	Ratio       *int
}

// Record appends data as a new immutable EventRecord. Sequence is 1 if
// the wall-clock timestamp strictly advanced since the last record,
// else the previous sequence plus one — this is what gives the sink
// its total (timestamp, sequence) order even when many events land in
// the same wall-clock second. If cleanup is configured and this
// record started a fresh second (sequence == 1), records older than
// cleanup days are purged. Persistence errors are logged and Record
// still returns the record; with the sqlite backend a record whose
// insert failed is not kept anywhere, so Find does not return it.
func (s *Sink) Record(d Data) Record {
	s.mu.Lock()
	ts := s.now()
	if ts.After(s.lastTimestamp) {
		s.lastSequence = 1
	} else {
		s.lastSequence++
		ts = s.lastTimestamp
	}
	s.lastTimestamp = ts
	seq := s.lastSequence
	s.mu.Unlock()

	rec := Record{
		Timestamp: ts, Sequence: seq, Action: d.Action,
		Zone: d.Zone, Program: d.Program, Parent: d.Parent,
		Seconds: d.Seconds, Runtime: d.Runtime, Adjustment: d.Adjustment,
		Source: d.Source, Temperature: d.Temperature, Humidity: d.Humidity,
		Rain: d.Rain, Ratio: d.Ratio,
	}

	if err := s.store.append(rec); err != nil {
		log.Printf("eventsink: persist failed: %v", err)
	}

	if seq == 1 && s.cleanupDays > 0 {
		cutoff := ts.Add(-time.Duration(s.cleanupDays) * 24 * time.Hour)
		if err := s.store.trimBefore(cutoff); err != nil {
			log.Printf("eventsink: retention trim failed: %v", err)
		}
	}

	if s.syslog != nil {
		s.syslog.emit(rec)
	}
	if s.mqtt != nil {
		if err := s.mqtt.emit(rec); err != nil {
			log.Printf("eventsink: mqtt fan-out failed: %v", err)
		}
	}

	return rec
}

// Find returns records matching f, sorted by (timestamp desc,
// sequence desc).
func (s *Sink) Find(f Filter) ([]Record, error) {
	return s.store.find(f)
}

// Close releases the sink's persistence and fan-out resources.
func (s *Sink) Close() error {
	var firstErr error
	if s.syslog != nil {
		if err := s.syslog.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.mqtt != nil {
		if err := s.mqtt.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.store.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// IntPtr is a small helper for building Data fields from literals,
// used throughout the engine where a Record carries an optional
// numeric field.
func IntPtr(v int) *int { return &v }

// Float64Ptr mirrors IntPtr for optional float fields.
func Float64Ptr(v float64) *float64 { return &v }
