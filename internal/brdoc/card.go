package brdoc

import (
	"strconv"
	"strings"
	"time"
)

// ValidCardExpiry reports whether the MM/YY expiry is well formed and not
// in the past relative to the supplied reference time. The current month
// is still valid.
func ValidCardExpiry(raw string, now time.Time) bool {
	month, year, ok := parseExpiry(raw)
	if !ok {
		return false
	}
	if year > now.Year() {
		return true
	}
	if year < now.Year() {
		return false
	}
	return month >= int(now.Month())
}

func parseExpiry(raw string) (month, year int, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return m, 2000 + y, true
}
