package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Timestamp layouts seen across the simulation stack: the mobility controller
// and srsRAN process logs write local wall-clock with microseconds, capture
// dumps write RFC3339.
var textLayouts = []string{
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTimestamp parses a source timestamp in any supported textual layout,
// or as fractional epoch seconds (the capture toolchain's format).
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return EpochSeconds(secs), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", value)
}

// EpochSeconds converts fractional Unix seconds to a UTC time.
func EpochSeconds(secs float64) time.Time {
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC()
}

// DurationBetween returns end-start, swapping operands if reversed.
func DurationBetween(start, end time.Time) time.Duration {
	if end.Before(start) {
		start, end = end, start
	}
	return end.Sub(start)
}
