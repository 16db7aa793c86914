package tasmota

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const secondsPerDay = 24 * 60 * 60

// ParseUptime converts a Tasmota uptime string such as "1T00:00:10" into
// the number of seconds it represents.
func ParseUptime(uptime string) (int64, error) {
	days, clock, found := strings.Cut(uptime, "T")
	if !found {
		return 0, fmt.Errorf("%w: %q has no day separator", ErrMalformedUptime, uptime)
	}

	d, err := strconv.ParseInt(days, 10, 64)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: invalid day count %q", ErrMalformedUptime, days)
	}

	clockSeconds, err := parseClock(clock)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time of day %q: %w", ErrMalformedUptime, clock, err)
	}

	if d > (math.MaxInt64-clockSeconds)/secondsPerDay {
		return 0, fmt.Errorf("%w: %q overflows", ErrMalformedUptime, uptime)
	}

	return d*secondsPerDay + clockSeconds, nil
}

// parseClock reads a strict H:M:S time of day. Each part has one or two
// digits; hours are 0-23, minutes and seconds 0-59.
func parseClock(clock string) (int64, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("want 3 parts, got %d", len(parts))
	}

	limits := [3]int{23, 59, 59}
	var values [3]int
	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 || strings.Trim(part, "0123456789") != "" {
			return 0, fmt.Errorf("invalid number %q", part)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, err
		}
		if n > limits[i] {
			return 0, fmt.Errorf("%d out of range 0-%d", n, limits[i])
		}
		values[i] = n
	}

	return int64(values[0]*3600 + values[1]*60 + values[2]), nil
}
