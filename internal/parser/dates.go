package parser

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts covers the formats seen across bank exports. Day-first
// layouts come before month-first since most supported banks print
// dd/mm/yyyy.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02/01/06",
	"02-01-06",
	"02 Jan 2006",
	"02-Jan-2006",
	"02 Jan 06",
	"02-Jan-06",
	"Jan 2, 2006",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
}

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Some exports append a time of day after the date.
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		head := s[:idx]
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, head); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
