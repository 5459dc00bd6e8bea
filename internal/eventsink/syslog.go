package eventsink

import (
	"fmt"
	"log"
	"log/syslog"
)

// syslogFanout emits one line per record in the §4.2 line format:
// "<action> [zone N] [program P] [(program P')]".
type syslogFanout struct {
	writer *syslog.Writer
}

func newSyslogFanout() (*syslogFanout, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "sprinklerd")
	if err != nil {
		return nil, fmt.Errorf("eventsink: syslog dial: %w", err)
	}
	return &syslogFanout{writer: w}, nil
}

func (s *syslogFanout) emit(r Record) {
	line := formatLine(r)
	if err := s.writer.Info(line); err != nil {
		log.Printf("eventsink: syslog write failed: %v", err)
	}
}

func formatLine(r Record) string {
	line := string(r.Action)
	if r.Zone != nil {
		line += fmt.Sprintf(" [zone %d]", *r.Zone)
	}
	if r.Program != "" {
		line += fmt.Sprintf(" [program %s]", r.Program)
	}
	if r.Parent != "" && r.Parent != r.Program {
		line += fmt.Sprintf(" [(program %s)]", r.Parent)
	}
	return line
}

func (s *syslogFanout) close() error {
	return s.writer.Close()
}
