// Package availability derives bookable time windows by reconciling a
// business's operating hours against external calendar busy blocks.
package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/calendar"
	"github.com/simplebiz/concierge/internal/hours"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/pkg/logging"
)

const (
	// slotStepMinutes is the fixed walk increment between candidate start
	// times. It is independent of service duration: successive offered slots
	// may overlap when the duration exceeds 30 minutes, which maximizes the
	// availability a customer sees.
	slotStepMinutes = 30

	// defaultWindowDays bounds the search when the caller omits a date range.
	defaultWindowDays = 14

	// maxSlots caps a generated list; conversational surfaces truncate
	// further to 5 for display.
	maxSlots = 20

	// defaultDurationMin applies when the caller does not pass a service
	// duration.
	defaultDurationMin = 60
)

// BusinessSource loads the business whose schedule is being computed.
type BusinessSource interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

// BusySource lists external-calendar busy intervals for a window.
type BusySource interface {
	BusyIntervals(ctx context.Context, calendarID string, credentialsJSON []byte, start, end time.Time) ([]calendar.BusyInterval, error)
}

// Preferences narrows candidates to a time of day.
type Preferences struct {
	Morning   bool `json:"morning,omitempty"`
	Afternoon bool `json:"afternoon,omitempty"`
}

// SlotRequest describes one availability query.
type SlotRequest struct {
	BusinessID  uuid.UUID
	DurationMin int
	Start       time.Time // zero = now
	End         time.Time // zero = Start + 14 days
	Preferences Preferences
}

// SlotResult is an ordered, capped list of bookable slots. Degraded is set
// when the external calendar could not be consulted and generation proceeded
// as if no busy intervals existed.
type SlotResult struct {
	Slots    []Slot `json:"slots"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Service generates slots. It is stateless; identical inputs at an identical
// clock reading produce an identical ordered list.
type Service struct {
	businesses BusinessSource
	busy       BusySource
	logger     *logging.Logger
	metrics    *metrics.ConciergeMetrics
	now        func() time.Time
}

// NewService constructs a slot generator.
func NewService(businesses BusinessSource, busy BusySource, logger *logging.Logger, m *metrics.ConciergeMetrics) *Service {
	if businesses == nil {
		panic("availability: business source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		businesses: businesses,
		busy:       busy,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// WithClock overrides the generator's clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetAvailableSlots computes the bookable windows for the request.
func (s *Service) GetAvailableSlots(ctx context.Context, req SlotRequest) (SlotResult, error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveSlotGeneration(time.Since(started).Seconds())
	}()

	biz, err := s.businesses.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return SlotResult{}, err
	}

	loc := s.location(biz.Timezone)
	now := s.now().In(loc)

	windowStart := req.Start
	if windowStart.IsZero() {
		windowStart = now
	}
	windowStart = windowStart.In(loc)
	windowEnd := req.End
	if windowEnd.IsZero() {
		windowEnd = windowStart.AddDate(0, 0, defaultWindowDays)
	}
	windowEnd = windowEnd.In(loc)

	duration := req.DurationMin
	if duration <= 0 {
		duration = defaultDurationMin
	}

	schedule := hours.Parse(biz.OperatingHours)
	if schedule == nil {
		schedule = hours.Default()
	}

	busy, degraded := s.busyIntervals(ctx, biz, windowStart, windowEnd)

	result := SlotResult{Degraded: degraded}
	day := time.Date(windowStart.Year(), windowStart.Month(), windowStart.Day(), 0, 0, 0, 0, loc)

	for day.Before(windowEnd) && len(result.Slots) < maxSlots {
		dayRanges := schedule.ForDay(day)
		if len(dayRanges) == 0 {
			day = day.AddDate(0, 0, 1)
			continue
		}

		for _, raw := range dayRanges {
			r, err := hours.ParseRange(raw)
			if err != nil {
				s.logger.Warn("availability: skipping malformed range",
					"business_id", biz.ID, "range", raw, "error", err)
				continue
			}

			open := day.Add(time.Duration(r.OpenMinute) * time.Minute)
			close := day.Add(time.Duration(r.CloseMinute) * time.Minute)

			for candidate := open; !candidate.Add(time.Duration(duration) * time.Minute).After(close); candidate = candidate.Add(slotStepMinutes * time.Minute) {
				if len(result.Slots) >= maxSlots {
					break
				}
				candidateEnd := candidate.Add(time.Duration(duration) * time.Minute)

				if candidate.Before(now) {
					continue
				}
				if !s.matchesPreferences(candidate, req.Preferences) {
					continue
				}
				if conflicts(candidate, candidateEnd, busy) {
					continue
				}

				result.Slots = append(result.Slots, newSlot(candidate, duration))
			}
		}

		day = day.AddDate(0, 0, 1)
	}

	return result, nil
}

// busyIntervals fetches external busy blocks, swallowing lookup failures so
// that generation degrades instead of blocking on a flaky integration.
func (s *Service) busyIntervals(ctx context.Context, biz *business.Business, start, end time.Time) ([]calendar.BusyInterval, bool) {
	if s.busy == nil || biz.GoogleCalendarID == "" {
		return nil, false
	}

	intervals, err := s.busy.BusyIntervals(ctx, biz.GoogleCalendarID, biz.GoogleCredentials, start, end)
	if err != nil {
		s.logger.Warn("availability: calendar lookup failed, generating without busy intervals",
			"business_id", biz.ID,
			"calendar_id", biz.GoogleCalendarID,
			"error", err,
		)
		s.metrics.ObserveCalendarDegraded()
		return nil, true
	}
	return intervals, false
}

func (s *Service) matchesPreferences(start time.Time, prefs Preferences) bool {
	hour := start.Hour()
	return (!prefs.Morning || hour < 12) && (!prefs.Afternoon || hour >= 12)
}

func (s *Service) location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("availability: unknown timezone, using UTC", "timezone", tz)
		return time.UTC
	}
	return loc
}

// conflicts applies the three-way overlap test against every busy interval.
func conflicts(start, end time.Time, busy []calendar.BusyInterval) bool {
	for _, b := range busy {
		if OverlapsBusy(start, end, b) {
			return true
		}
	}
	return false
}
