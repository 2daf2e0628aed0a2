package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/calendar"
)

// fixedNow is a Sunday; the next open day in the fixtures is Monday 2026-03-02.
var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubBusinesses struct {
	biz *business.Business
	err error
}

func (s *stubBusinesses) GetBusiness(_ context.Context, _ uuid.UUID) (*business.Business, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.biz, nil
}

type stubBusy struct {
	intervals []calendar.BusyInterval
	err       error
	calls     int
}

func (s *stubBusy) BusyIntervals(_ context.Context, _ string, _ []byte, _, _ time.Time) ([]calendar.BusyInterval, error) {
	s.calls++
	return s.intervals, s.err
}

func mondayOnlyBusiness() *business.Business {
	return &business.Business{
		ID:   uuid.New(),
		Name: "Glow Studio",
		OperatingHours: map[string]any{
			"monday": []any{"09:00-18:00"},
		},
		GoogleCalendarID:  "primary",
		GoogleCredentials: []byte(`{"token":"x"}`),
		Timezone:          "UTC",
	}
}

func newTestService(businesses BusinessSource, busy BusySource) *Service {
	return NewService(businesses, busy, nil, nil).WithClock(func() time.Time { return fixedNow })
}

func TestGenerateMondaySlots(t *testing.T) {
	svc := newTestService(&stubBusinesses{biz: mondayOnlyBusiness()}, &stubBusy{})

	result, err := svc.GetAvailableSlots(context.Background(), SlotRequest{
		BusinessID:  uuid.New(),
		DurationMin: 60,
	})
	if err != nil {
		t.Fatalf("GetAvailableSlots: %v", err)
	}
	if result.Degraded {
		t.Error("result should not be degraded")
	}
	// Two Mondays fall in the 14-day window, 17 starts each; capped at 20.
	if len(result.Slots) != 20 {
		t.Fatalf("got %d slots, want 20", len(result.Slots))
	}

	first := result.Slots[0]
	if first.Day != "Monday" || first.Time != "9:00 AM" || first.Date != "2026-03-02" {
		t.Errorf("first slot = %+v", first)
	}
	if first.ID != "2026-03-02-0900" {
		t.Errorf("first slot id = %q", first.ID)
	}

	for i, slot := range result.Slots {
		if slot.StartsAt.Before(fixedNow) {
			t.Errorf("slot %d starts in the past: %s", i, slot.StartsAt)
		}
		if slot.StartsAt.Weekday() != time.Monday {
			t.Errorf("slot %d on closed day %s", i, slot.StartsAt.Weekday())
		}
		if i > 0 && slot.StartsAt.Before(result.Slots[i-1].StartsAt) {
			t.Errorf("slots out of order at %d", i)
		}
		if i > 0 && slot.StartsAt.Sub(result.Slots[i-1].StartsAt) != 30*time.Minute && slot.StartsAt.Day() == result.Slots[i-1].StartsAt.Day() {
			t.Errorf("slot starts are not 30 minutes apart at %d", i)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	svc := newTestService(&stubBusinesses{biz: mondayOnlyBusiness()}, &stubBusy{})
	req := SlotRequest{BusinessID: uuid.New(), DurationMin: 45}

	first, err := svc.GetAvailableSlots(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.GetAvailableSlots(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Slots) != len(second.Slots) {
		t.Fatalf("slot counts differ: %d vs %d", len(first.Slots), len(second.Slots))
	}
	for i := range first.Slots {
		if first.Slots[i] != second.Slots[i] {
			t.Errorf("slot %d differs: %+v vs %+v", i, first.Slots[i], second.Slots[i])
		}
	}
}

func TestFullDayDurationYieldsSingleSlot(t *testing.T) {
	biz := mondayOnlyBusiness()
	svc := newTestService(&stubBusinesses{biz: biz}, &stubBusy{})

	// 09:00-18:00 is exactly 540 minutes.
	result, err := svc.GetAvailableSlots(context.Background(), SlotRequest{
		BusinessID:  biz.ID,
		DurationMin: 540,
	})
	if err != nil {
		t.Fatalf("GetAvailableSlots: %v", err)
	}
	if len(result.Slots) != 2 {
		t.Fatalf("got %d slots, want one per Monday in window", len(result.Slots))
	}
	for _, slot := range result.Slots {
		if slot.Time != "9:00 AM" {
			t.Errorf("full-day slot should start at range open, got %s", slot.Time)
		}
	}
}

func TestClosedDayYieldsNoSlots(t *testing.T) {
	biz := mondayOnlyBusiness()
	biz.OperatingHours = map[string]any{
		"monday": []any{},
	}
	svc := newTestService(&stubBusinesses{biz: biz}, &stubBusy{
		intervals: []calendar.BusyInterval{},
	})

	result, err := svc.GetAvailableSlots(context.Background(), SlotRequest{BusinessID: biz.ID, DurationMin: 30})
	if err != nil {
		t.Fatalf("GetAvailableSlots: %v", err)
	}
	if len(result.Slots) != 0 {
		t.Errorf("closed schedule produced %d slots", len(result.Slots))
	}
}

func TestBusyIntervalsRejectCandidates(t *testing.T) {
	biz := mondayOnlyBusiness()
	busy := &stubBusy{intervals: []calendar.BusyInterval{
		{ID: "evt-1", Start: time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 11, 45, 0, 0, time.UTC)},
	}}
	svc := newTestService(&stubBusinesses{biz: biz}, busy)

	result, err := svc.GetAvailableSlots(context.Background(), SlotRequest{BusinessID: biz.ID, DurationMin: 60})
	if err != nil {
		t.Fatalf("GetAvailableSlots: %v", err)
	}

	for _, slot := range result.Slots {
		end := slot.StartsAt.Add(time.Duration(slot.DurationMin) * time.Minute)
		for _, b := range busy.intervals {
			if slot.StartsAt.Before(b.End) && end.After(b.Start) {
				t.Errorf("slot %s overlaps busy interval %s", slot.ID, b.ID)
			}
		}
	}
}

func TestCalendarFailureDegradesGracefully(t *testing.T) {
	biz := mondayOnlyBusiness()
	svc := newTestService(&stubBusinesses{biz: biz}, &stubBusy{err: errors.New("calendar unreachable")})

	result, err := svc.GetAvailableSlots(context.Background(), SlotRequest{BusinessID: biz.ID, DurationMin: 60})
	if err != nil {
		t.Fatalf("generation should not fail on calendar errors: %v", err)
	}
	if !result.Degraded {
		t.Error("result should be flagged degraded")
	}
	if len(result.Slots) == 0 {
		t.Error("degraded generation should still return slots")
	}
}

func TestPreferenceFilters(t *testing.T) {
	biz := mondayOnlyBusiness()
	svc := newTestService(&stubBusinesses{biz: biz}, &stubBusy{})

	morning, err := svc.GetAvailableSlots(context.Background(), SlotRequest{
		BusinessID:  biz.ID,
		DurationMin: 60,
		Preferences: Preferences{Morning: true},
	})
	if err != nil {
		t.Fatalf("morning: %v", err)
	}
	for _, slot := range morning.Slots {
		if slot.StartsAt.Hour() >= 12 {
			t.Errorf("morning preference returned %s", slot.Time)
		}
	}

	afternoon, err := svc.GetAvailableSlots(context.Background(), SlotRequest{
		BusinessID:  biz.ID,
		DurationMin: 60,
		Preferences: Preferences{Afternoon: true},
	})
	if err != nil {
		t.Fatalf("afternoon: %v", err)
	}
	if len(afternoon.Slots) == 0 {
		t.Fatal("afternoon preference returned no slots")
	}
	for _, slot := range afternoon.Slots {
		if slot.StartsAt.Hour() < 12 {
			t.Errorf("afternoon preference returned %s", slot.Time)
		}
	}

	// Both preferences set is contradictory and yields nothing.
	both, err := svc.GetAvailableSlots(context.Background(), SlotRequest{
		BusinessID:  biz.ID,
		DurationMin: 60,
		Preferences: Preferences{Morning: true, Afternoon: true},
	})
	if err != nil {
		t.Fatalf("both: %v", err)
	}
	if len(both.Slots) != 0 {
		t.Errorf("contradictory preferences returned %d slots", len(both.Slots))
	}
}

func TestMissingBusinessPropagatesNotFound(t *testing.T) {
	svc := newTestService(&stubBusinesses{err: apperr.ErrNotFound}, &stubBusy{})

	_, err := svc.GetAvailableSlots(context.Background(), SlotRequest{BusinessID: uuid.New()})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverlapsBusyBoundaries(t *testing.T) {
	busy := calendar.BusyInterval{
		Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
	at := func(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) }

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"start inside", at(10, 30), at(11, 30), true},
		{"end inside", at(9, 30), at(10, 30), true},
		{"contains busy", at(9, 30), at(11, 30), true},
		{"ends at busy start", at(9, 0), at(10, 0), false},
		{"starts at busy end", at(11, 0), at(12, 0), false},
		// Exactly coincident windows pass the three-way test; the check is
		// deliberately permissive at shared boundaries.
		{"identical window", at(10, 0), at(11, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OverlapsBusy(tc.start, tc.end, busy); got != tc.want {
				t.Errorf("OverlapsBusy(%s, %s) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestSlotIDRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	id := EncodeSlotID(start)
	if id != "2026-03-02-1430" {
		t.Fatalf("EncodeSlotID = %q", id)
	}

	decoded, err := DecodeSlotID(id, time.UTC)
	if err != nil {
		t.Fatalf("DecodeSlotID: %v", err)
	}
	if !decoded.Equal(start) {
		t.Errorf("round trip mismatch: %s", decoded)
	}

	if _, err := DecodeSlotID("garbage", time.UTC); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
