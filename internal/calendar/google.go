// Package calendar reads busy blocks from a business's external calendar.
// Lookup failures are the caller's problem to degrade on; this package only
// reports them.
package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/simplebiz/concierge/pkg/logging"
)

// BusyInterval is an externally sourced [start, end) span during which the
// business is unavailable. The ID is opaque and owned by the calendar provider.
type BusyInterval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// GoogleClient fetches busy intervals from Google Calendar using per-business
// stored credentials. Token refresh is handled by the Google client libraries.
type GoogleClient struct {
	logger *logging.Logger
}

// NewGoogleClient creates a Google Calendar-backed busy-interval source.
func NewGoogleClient(logger *logging.Logger) *GoogleClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleClient{logger: logger}
}

// BusyIntervals lists confirmed events in [start, end) for the calendar.
func (c *GoogleClient) BusyIntervals(ctx context.Context, calendarID string, credentialsJSON []byte, start, end time.Time) ([]BusyInterval, error) {
	if calendarID == "" || len(credentialsJSON) == 0 {
		return nil, nil
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gcal.CalendarReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}

	events, err := svc.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	intervals := make([]BusyInterval, 0, len(events.Items))
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			continue
		}
		eventStart, ok := eventTime(item.Start)
		if !ok {
			continue
		}
		eventEnd, ok := eventTime(item.End)
		if !ok {
			continue
		}
		intervals = append(intervals, BusyInterval{
			ID:    item.Id,
			Start: eventStart,
			End:   eventEnd,
		})
	}

	c.logger.Debug("calendar: fetched busy intervals",
		"calendar_id", calendarID,
		"count", len(intervals),
	)
	return intervals, nil
}

// eventTime resolves a calendar timestamp, accepting both timed and all-day
// event boundaries.
func eventTime(edt *gcal.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
