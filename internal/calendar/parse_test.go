package calendar

import (
	"testing"
	"time"
)

func TestUnfold(t *testing.T) {
	text := "BEGIN:VEVENT\r\nSUMMARY:Front\r\n  Yard\r\nEND:VEVENT\r\n"
	lines := unfold(text)
	want := []string{"BEGIN:VEVENT", "SUMMARY:Front Yard", "END:VEVENT", ""}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestParseProperty(t *testing.T) {
	p, ok := parseProperty("DTSTART;TZID=America/Denver:20260601T060000")
	if !ok {
		t.Fatal("expected ok")
	}
	if p.name != "DTSTART" {
		t.Errorf("name = %q", p.name)
	}
	if p.params["TZID"] != "America/Denver" {
		t.Errorf("TZID param = %q", p.params["TZID"])
	}
	if p.value != "20260601T060000" {
		t.Errorf("value = %q", p.value)
	}
}

func TestParsePropertyNoColon(t *testing.T) {
	if _, ok := parseProperty("not-a-property"); ok {
		t.Error("expected ok=false for a line without a colon")
	}
}

func TestParseICSBasicEvent(t *testing.T) {
	text := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:event-1\r\n" +
		"SUMMARY:Front Lawn\r\n" +
		"DESCRIPTION:front=10\r\n" +
		"DTSTART:20260601T060000\r\n" +
		"RRULE:FREQ=DAILY\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	events, tzid := parseICS(text)
	if tzid != "" {
		t.Errorf("expected no calendar TZID, got %q", tzid)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.uid != "event-1" || ev.summary != "Front Lawn" || ev.rrule != "FREQ=DAILY" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestParseICSVTimezoneFallback(t *testing.T) {
	text := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VTIMEZONE\r\n" +
		"TZID:America/Denver\r\n" +
		"END:VTIMEZONE\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:e\r\n" +
		"DTSTART:20260601T060000\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	_, tzid := parseICS(text)
	if tzid != "America/Denver" {
		t.Errorf("got calendar TZID %q, want America/Denver", tzid)
	}
}

func TestUnescapeText(t *testing.T) {
	got := unescapeText(`front\, back\; notes\nline2`)
	want := "front, back; notes\nline2"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestResolveTimeUTC(t *testing.T) {
	loc, _ := time.LoadLocation("America/Denver")
	got, err := resolveTime("20260601T120000Z", "", "", loc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Location() != loc {
		t.Errorf("expected conversion into defaultLoc")
	}
	if got.UTC().Hour() != 12 {
		t.Errorf("got hour %d, want 12 UTC", got.UTC().Hour())
	}
}

func TestResolveTimeExplicitTZID(t *testing.T) {
	denver, _ := time.LoadLocation("America/Denver")
	got, err := resolveTime("20260601T060000", "America/Denver", "", denver)
	if err != nil {
		t.Fatal(err)
	}
	if got.Hour() != 6 {
		t.Errorf("got hour %d, want 6", got.Hour())
	}
}

func TestResolveTimeFallsBackToDefault(t *testing.T) {
	denver, _ := time.LoadLocation("America/Denver")
	got, err := resolveTime("20260601T060000", "", "", denver)
	if err != nil {
		t.Fatal(err)
	}
	if got.Location() != denver {
		t.Error("expected default location to be used")
	}
}

func TestResolveTimeBadValue(t *testing.T) {
	if _, err := resolveTime("not-a-date", "", "", time.UTC); err == nil {
		t.Error("expected error for malformed datetime")
	}
}
