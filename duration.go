package studyhall

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(
	`(?i)^\s*(\d+)\s*(s|secs?|seconds?|m|mins?|minutes?|h|hrs?|hours?|d|days?)\s*$`,
)

// ParseDuration parses free-text durations like "30s", "5 min", or
// "2 hours" into a time.Duration. Callers impose their own minimums.
func ParseDuration(text string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}

	value, err := strconv.Atoi(match[1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}

	// every accepted unit token is unambiguous by its first letter
	var unit time.Duration
	switch strings.ToLower(match[2])[0] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	}
	return time.Duration(value) * unit, nil
}

// FormatDuration renders a duration as compact "1d 2h 30m 15s" text,
// dropping zero components.
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	seconds %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}
