package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// IDsEqual compares two database ids, ignoring surrounding whitespace and leading zeros.
func IDsEqual(a, b string) bool {
	a = strings.TrimLeft(strings.TrimSpace(a), "0")
	b = strings.TrimLeft(strings.TrimSpace(b), "0")
	return a == b
}

// FormatDateFullCompact formats t in the named time zone as "2006-01-02 15:04:05-07".
// An unknown or empty zone falls back to UTC.
func FormatDateFullCompact(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04:05-07")
}
