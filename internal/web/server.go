// Package web exposes the HTTP/JSON control surface §6 calls for:
// a read-only status page (HTML + JSON) plus the POST operations the
// core must support (toggle on, raindelay enable/disable/extend,
// weather/watering-index enable, trigger refresh, start a program by
// id, manual zone-on, all-off) and a history query endpoint. Adapted
// from the teacher's read-only web.Server (which only ever rendered
// status) into a read/write control surface, since the sprinkler
// core — unlike the boiler sensor — is meant to be driven remotely.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/sprinklerd/internal/engine"
	"github.com/sweeney/sprinklerd/internal/eventsink"
	"github.com/sweeney/sprinklerd/internal/status"
	"github.com/sweeney/sprinklerd/internal/zone"
)

// Server serves the status page and control-surface endpoints over
// HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	engine     *engine.Engine
	zones      func() *zone.Index
}

// New creates a Server that reads state from tracker/eng and resolves
// zone names through zones() at request time (a func, not a value, so
// a config reload that rebuilds the zone.Index is picked up without
// restarting the server).
func New(addr string, tracker *status.Tracker, eng *engine.Engine, zones func() *zone.Index) *Server {
	s := &Server{tracker: tracker, engine: eng, zones: zones}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)

	mux.HandleFunc("/api/on", s.handleOn)
	mux.HandleFunc("/api/raindelay", s.handleRainDelay)
	mux.HandleFunc("/api/raindelay/extend", s.handleRainDelayExtend)
	mux.HandleFunc("/api/weather", s.handleWeather)
	mux.HandleFunc("/api/wateringindex", s.handleWateringIndex)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/program/start", s.handleStartProgram)
	mux.HandleFunc("/api/zone/on", s.handleZoneOn)
	mux.HandleFunc("/api/alloff", s.handleAllOff)
	mux.HandleFunc("/api/history", s.handleHistory)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) snapshot() status.Snapshot {
	return s.tracker.Snapshot(s.engine, s.zones())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.snapshot()))
}

func (s *Server) handleOn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req onRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.engine.SetOn(req.On)
	writeOK(w)
}

func (s *Server) handleRainDelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req enabledRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.engine.SetRainDelayEnabled(req.Enabled)
	if !req.Enabled {
		s.engine.ClearRainDelay()
	}
	writeOK(w)
}

func (s *Server) handleRainDelayExtend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.engine.ExtendRainDelay()
	writeOK(w)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req enabledRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.engine.SetWeatherEnabled(req.Enabled)
	writeOK(w)
}

func (s *Server) handleWateringIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req enabledRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.engine.SetWateringIndexEnabled(req.Enabled)
	writeOK(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.engine.TriggerRefresh()
	writeOK(w)
}

func (s *Server) handleStartProgram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req startProgramRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.StartProgram(req.ID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleZoneOn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req zoneOnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	zones := s.zones()
	if _, ok := zones.ByIndex(req.Zone); !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("web: zone index %d out of range", req.Zone))
		return
	}
	s.engine.ZoneOnManual(req.Zone, req.Seconds)
	writeOK(w)
}

func (s *Server) handleAllOff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.engine.AllOff()
	writeOK(w)
}

// handleHistory implements the control surface's "history queries"
// operation: GET params map straight onto eventsink.Filter.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	var f eventsink.Filter
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.Until = t
	}
	if v := q.Get("zone"); v != "" {
		z, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.Zone = &z
	}
	f.Program = q.Get("program")
	if v := q.Get("action"); v != "" {
		f.Action = eventsink.Action(v)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.Limit = n
	}

	records, err := s.engine.History(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatHistory(records))
}
