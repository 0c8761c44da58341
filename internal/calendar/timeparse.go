package calendar

import (
	"errors"
	"strings"
	"time"
)

// Layouts accepted for tool arguments, tried in order. Inputs without an
// offset are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

var errTimestampFormat = errors.New("expected ISO-8601 (YYYY-MM-DD or YYYY-MM-DDThh:mm:ss with optional offset)")

// ParseTimestamp parses an ISO-8601 timestamp or date for the named field.
func ParseTimestamp(field, value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, invalidInput(field, value, errors.New("must not be empty"))
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidInput(field, value, errTimestampFormat)
}

func parseRange(startField, start, endField, end string) (time.Time, time.Time, error) {
	from, err := ParseTimestamp(startField, start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseTimestamp(endField, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, invalidInput(endField, end, errors.New("must not be before "+startField))
	}
	return from, to, nil
}
