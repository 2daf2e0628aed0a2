package availability

import (
	"fmt"
	"time"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/calendar"
)

// slotIDLayout encodes a slot's start instant as "YYYY-MM-DD-HHMM". Slots are
// never persisted; this compact id is what survives the round trip through a
// customer's numeric reply.
const slotIDLayout = "2006-01-02-1504"

// Slot is a derived, ephemeral candidate appointment window.
type Slot struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // "2026-02-10"
	Day         string    `json:"day"`  // "Monday"
	Time        string    `json:"time"` // "10:00 AM"
	StartsAt    time.Time `json:"starts_at"`
	DurationMin int       `json:"duration_min"`
}

// EncodeSlotID renders the compact slot identifier for a start instant.
func EncodeSlotID(start time.Time) string {
	return start.Format(slotIDLayout)
}

// DecodeSlotID reconstructs a start instant from a compact slot identifier in
// the given location.
func DecodeSlotID(id string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(slotIDLayout, id, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: slot id %q: %w", id, apperr.ErrInvalidInput)
	}
	return start, nil
}

// newSlot builds the display representation for an accepted candidate.
func newSlot(start time.Time, durationMin int) Slot {
	return Slot{
		ID:          EncodeSlotID(start),
		Date:        start.Format("2006-01-02"),
		Day:         start.Weekday().String(),
		Time:        start.Format("3:04 PM"),
		StartsAt:    start,
		DurationMin: durationMin,
	}
}

// OverlapsBusy reports whether the candidate window [start, end) conflicts
// with the busy interval. The three conditions are checked independently and
// are deliberately permissive at exact boundaries; they are not equivalent to
// a symmetric interval-intersection test and must stay this way for
// compatibility with existing calendars.
func OverlapsBusy(start, end time.Time, busy calendar.BusyInterval) bool {
	startInside := start.After(busy.Start) && start.Before(busy.End)
	endInside := end.After(busy.Start) && end.Before(busy.End)
	contains := start.Before(busy.Start) && end.After(busy.End)
	return startInside || endInside || contains
}
