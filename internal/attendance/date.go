package attendance

import (
	"errors"
	"strings"
	"time"
)

// parseDate accepts plain day strings and full timestamps, reducing both
// to a day. The day boundary is local midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return startOfDay(t.Local()), nil
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// startOfDay truncates to local midnight.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
