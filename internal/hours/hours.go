// Package hours models a business's weekly operating schedule as parsed from
// the raw JSON value stored on the business record.
package hours

import (
	"fmt"
	"strings"
	"time"
)

// Schedule maps a lowercase weekday name to its open ranges for that day.
// An empty slice means the business is closed that day.
type Schedule map[string][]string

// Range is a parsed "HH:MM-HH:MM" entry expressed as minutes since midnight.
type Range struct {
	OpenMinute  int
	CloseMinute int
}

// Parse converts the raw operating-hours value into a Schedule. It returns nil
// when the value is absent or not an object; range strings are not validated
// here, malformed entries surface when a day is walked.
func Parse(raw any) Schedule {
	if raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case Schedule:
		return v
	case map[string][]string:
		return Schedule(v)
	case map[string]any:
		schedule := make(Schedule, len(v))
		for day, entry := range v {
			ranges, ok := entry.([]any)
			if !ok {
				schedule[strings.ToLower(day)] = nil
				continue
			}
			parsed := make([]string, 0, len(ranges))
			for _, r := range ranges {
				if s, ok := r.(string); ok {
					parsed = append(parsed, s)
				}
			}
			schedule[strings.ToLower(day)] = parsed
		}
		return schedule
	default:
		return nil
	}
}

// Default returns the fallback schedule used when a business has no
// operating hours configured: Mon-Fri 09:00-18:00, Sat 09:00-14:00, Sun closed.
func Default() Schedule {
	return Schedule{
		"monday":    {"09:00-18:00"},
		"tuesday":   {"09:00-18:00"},
		"wednesday": {"09:00-18:00"},
		"thursday":  {"09:00-18:00"},
		"friday":    {"09:00-18:00"},
		"saturday":  {"09:00-14:00"},
		"sunday":    {},
	}
}

// ForDay returns the raw range strings for the given date's weekday.
func (s Schedule) ForDay(day time.Time) []string {
	if s == nil {
		return nil
	}
	return s[strings.ToLower(day.Weekday().String())]
}

// ParseRange parses a "HH:MM-HH:MM" string into minute offsets.
func ParseRange(raw string) (Range, error) {
	open, close, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return Range{}, fmt.Errorf("hours: malformed range %q", raw)
	}

	openMin, err := parseClock(open)
	if err != nil {
		return Range{}, fmt.Errorf("hours: malformed open time in %q: %w", raw, err)
	}
	closeMin, err := parseClock(close)
	if err != nil {
		return Range{}, fmt.Errorf("hours: malformed close time in %q: %w", raw, err)
	}

	return Range{OpenMinute: openMin, CloseMinute: closeMin}, nil
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
