package calendar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/sprinklerd/internal/program"
)

// ZoneResolver looks up a configured zone's stable index by display
// name, for the DESCRIPTION DSL (§4.4).
type ZoneResolver interface {
	NameIndex(name string) (int, bool)
}

// parseDescription parses the space/comma-separated DESCRIPTION DSL:
// a `name[=|:]value` token (value in minutes) adds a zone run; the
// bare token `append` sets Options.Append. An unknown zone name
// rejects the whole event.
func parseDescription(desc string, zones ZoneResolver) ([]program.ZoneRun, program.Options, error) {
	var runs []program.ZoneRun
	var opts program.Options

	for _, tok := range splitTokens(desc) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.EqualFold(tok, "append") {
			opts.Append = true
			continue
		}

		name, value, ok := splitNameValue(tok)
		if !ok {
			return nil, program.Options{}, fmt.Errorf("calendar: unrecognized description token %q", tok)
		}
		idx, found := zones.NameIndex(name)
		if !found {
			return nil, program.Options{}, fmt.Errorf("calendar: unknown zone name %q", name)
		}
		minutes, err := strconv.Atoi(value)
		if err != nil {
			return nil, program.Options{}, fmt.Errorf("calendar: bad duration for zone %q: %w", name, err)
		}
		runs = append(runs, program.ZoneRun{Zone: idx, Seconds: minutes * 60})
	}

	return runs, opts, nil
}

// splitTokens splits on commas or whitespace, treating either as a
// token separator per §4.4 ("space- or comma-separated tokens").
func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// splitNameValue splits a "name=value" or "name:value" token.
func splitNameValue(tok string) (name, value string, ok bool) {
	if i := strings.IndexAny(tok, "=:"); i >= 0 {
		return strings.TrimSpace(tok[:i]), strings.TrimSpace(tok[i+1:]), true
	}
	return "", "", false
}
