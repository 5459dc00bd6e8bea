package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sweeney/sprinklerd/internal/eventsink"
)

// HistoryRecordJSON is the wire shape of one history query result
// row, flattening eventsink.Record's optional pointer fields to
// zero-value-omitted JSON.
type HistoryRecordJSON struct {
	Timestamp   string   `json:"timestamp"`
	Sequence    int      `json:"sequence"`
	Action      string   `json:"action"`
	Zone        *int     `json:"zone,omitempty"`
	Program     string   `json:"program,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Seconds     *int     `json:"seconds,omitempty"`
	Runtime     *int     `json:"runtime,omitempty"`
	Adjustment  *int     `json:"adjustment,omitempty"`
	Source      string   `json:"source,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Rain        *float64 `json:"rain,omitempty"`
	Ratio       *int     `json:"ratio,omitempty"`
}

func formatHistory(records []eventsink.Record) []byte {
	out := make([]HistoryRecordJSON, len(records))
	for i, r := range records {
		out[i] = HistoryRecordJSON{
			Timestamp:   r.Timestamp.UTC().Format(time.RFC3339),
			Sequence:    r.Sequence,
			Action:      string(r.Action),
			Zone:        r.Zone,
			Program:     r.Program,
			Parent:      r.Parent,
			Seconds:     r.Seconds,
			Runtime:     r.Runtime,
			Adjustment:  r.Adjustment,
			Source:      r.Source,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Rain:        r.Rain,
			Ratio:       r.Ratio,
		}
	}
	data, _ := json.MarshalIndent(struct {
		History []HistoryRecordJSON `json:"history"`
	}{out}, "", "  ")
	return data
}

// onRequest, enabledRequest, zoneOnRequest and startProgramRequest
// are the decoded bodies of the corresponding control-surface POST
// endpoints (§6).
type onRequest struct {
	On bool `json:"on"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type zoneOnRequest struct {
	Zone    int `json:"zone"`
	Seconds int `json:"seconds"`
}

type startProgramRequest struct {
	ID string `json:"id"`
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{err.Error()})
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		OK bool `json:"ok"`
	}{true})
}
