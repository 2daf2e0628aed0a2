package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/availability"
	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/hours"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/pkg/logging"
)

// displaySlotLimit caps how many slots a customer is shown per offer; the
// generator itself may produce more.
const displaySlotLimit = 5

var slotDigitRe = regexp.MustCompile(`^[1-9]$`)

var confirmWords = map[string]bool{
	"yes": true, "yep": true, "sure": true, "confirm": true,
	"ok": true, "okay": true, "y": true,
}

var declineWords = map[string]bool{
	"no": true, "nope": true, "cancel": true,
}

// ConversationStore persists dialogue sessions.
type ConversationStore interface {
	GetBySession(ctx context.Context, businessID uuid.UUID, sessionID string) (*Conversation, error)
	Upsert(ctx context.Context, c *Conversation) error
}

// Catalog resolves business context for a session.
type Catalog interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
	GetService(ctx context.Context, id uuid.UUID) (*business.Service, error)
	ListActiveServices(ctx context.Context, businessID uuid.UUID) ([]business.Service, error)
	TouchCustomer(ctx context.Context, businessID uuid.UUID, phone string) (*business.Customer, error)
}

// SlotSource generates bookable slots.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, req availability.SlotRequest) (availability.SlotResult, error)
}

// Booker is the booking lifecycle surface the dialogue drives.
type Booker interface {
	CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*booking.Appointment, error)
	CancelBooking(ctx context.Context, appointmentID, businessID uuid.UUID) (*booking.Appointment, error)
	GetCustomerAppointments(ctx context.Context, businessID uuid.UUID, phone string) ([]booking.Appointment, error)
}

// ReminderScheduler creates reminders for a freshly booked appointment.
type ReminderScheduler interface {
	Schedule(ctx context.Context, appt *booking.Appointment) error
}

// Snapshots caches the slot menu offered to a session.
type Snapshots interface {
	Save(ctx context.Context, businessID uuid.UUID, sessionID string, offered []OfferedSlot) error
	Get(ctx context.Context, businessID uuid.UUID, sessionID string) ([]OfferedSlot, error)
	Clear(ctx context.Context, businessID uuid.UUID, sessionID string) error
}

// Engine is the per-message dialogue driver: load session, apply one
// transition, persist, reply.
type Engine struct {
	conversations ConversationStore
	catalog       Catalog
	slots         SlotSource
	bookings      Booker
	scheduler     ReminderScheduler
	snapshots     Snapshots
	classifier    Classifier
	logger        *logging.Logger
	metrics       *metrics.ConciergeMetrics
	now           func() time.Time
}

// NewEngine constructs a dialogue engine.
func NewEngine(
	conversations ConversationStore,
	catalog Catalog,
	slots SlotSource,
	bookings Booker,
	scheduler ReminderScheduler,
	snapshots Snapshots,
	classifier Classifier,
	logger *logging.Logger,
	m *metrics.ConciergeMetrics,
) *Engine {
	if conversations == nil {
		panic("conversation: conversation store required")
	}
	if catalog == nil {
		panic("conversation: catalog required")
	}
	if slots == nil {
		panic("conversation: slot source required")
	}
	if bookings == nil {
		panic("conversation: booker required")
	}
	if classifier == nil {
		panic("conversation: classifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		conversations: conversations,
		catalog:       catalog,
		slots:         slots,
		bookings:      bookings,
		scheduler:     scheduler,
		snapshots:     snapshots,
		classifier:    classifier,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
	}
}

// WithClock overrides the engine clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// HandleInboundMessage applies one dialogue transition and returns the reply
// to send. The reply is always usable; when processing fails partway the
// returned error carries the cause and the reply degrades to a generic
// apology.
func (e *Engine) HandleInboundMessage(ctx context.Context, businessID uuid.UUID, from, text string) (string, error) {
	reply, intent, err := e.handle(ctx, businessID, from, text)
	if err != nil {
		e.logger.Error("inbound message processing failed",
			"business_id", businessID, "from", from, "error", err)
		e.metrics.ObserveInbound(intent, "error")
		return replyError(), err
	}
	e.metrics.ObserveInbound(intent, "ok")
	return reply, nil
}

func (e *Engine) handle(ctx context.Context, businessID uuid.UUID, from, text string) (reply, intent string, err error) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	biz, err := e.catalog.GetBusiness(ctx, businessID)
	if err != nil {
		return "", "", err
	}

	customer, err := e.catalog.TouchCustomer(ctx, businessID, from)
	if err != nil {
		// Contact tracking is not worth dropping the message over.
		e.logger.Warn("customer upsert failed", "business_id", businessID, "from", from, "error", err)
		customer = nil
	}

	conv, err := e.conversations.GetBySession(ctx, businessID, from)
	if errors.Is(err, apperr.ErrNotFound) {
		conv = &Conversation{BusinessID: businessID, SessionID: from}
	} else if err != nil {
		return "", "", err
	}
	if customer != nil {
		conv.CustomerID = customer.ID
	}

	services, err := e.catalog.ListActiveServices(ctx, businessID)
	if err != nil {
		return "", "", err
	}

	conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: text})

	switch {
	case conv.State.Step == StepConfirm:
		reply, err = e.stepConfirm(ctx, conv, normalized, customer)
		intent = string(IntentBook)

	case conv.State.Step == StepTime && slotDigitRe.MatchString(normalized):
		reply, err = e.stepSelectSlot(ctx, conv, mustAtoi(normalized))
		intent = string(IntentBook)

	case conv.State.Step == StepService && slotDigitRe.MatchString(normalized):
		reply, err = e.stepSelectService(ctx, conv, services, mustAtoi(normalized))
		intent = string(IntentBook)

	default:
		c := e.classifier.Classify(ctx, normalized, conv.Messages)
		intent = string(c.Intent)
		conv.Intent = intent

		switch c.Intent {
		case IntentBook:
			reply, err = e.handleBook(ctx, conv, biz, services, c)
		case IntentInquire:
			reply = e.handleInquiry(services, c)
		case IntentCancel:
			reply, err = e.handleCancel(ctx, businessID, from)
		case IntentFAQ:
			reply = replyHours(hours.Parse(biz.OperatingHours))
		default:
			reply = replyGreeting(biz, services)
		}
	}
	if err != nil {
		return "", intent, err
	}

	conv.Messages = append(conv.Messages, Message{Role: RoleAssistant, Content: reply})
	if err := e.conversations.Upsert(ctx, conv); err != nil {
		// The reply is already composed; losing one history write is
		// preferable to an apology after a successful transition.
		e.logger.Error("conversation persist failed", "business_id", businessID, "from", from, "error", err)
	}
	return reply, intent, nil
}

func (e *Engine) handleBook(ctx context.Context, conv *Conversation, biz *business.Business, services []business.Service, c Classification) (string, error) {
	if c.Entities.Service != "" {
		if svc := matchService(services, c.Entities.Service); svc != nil {
			return e.offerSlots(ctx, conv, svc, preferencesFromEntities(c.Entities))
		}
	}
	if len(services) == 0 {
		return replyNoServices(), nil
	}
	if len(services) == 1 {
		return e.offerSlots(ctx, conv, &services[0], preferencesFromEntities(c.Entities))
	}
	conv.State = BookingState{Step: StepService}
	return replyServiceMenu(services), nil
}

// offerSlots generates availability for the service, snapshots the displayed
// menu, and moves the session into slot selection.
func (e *Engine) offerSlots(ctx context.Context, conv *Conversation, svc *business.Service, prefs availability.Preferences) (string, error) {
	res, err := e.slots.GetAvailableSlots(ctx, availability.SlotRequest{
		BusinessID:  conv.BusinessID,
		DurationMin: svc.DurationMin,
		Preferences: prefs,
	})
	if err != nil {
		return "", err
	}
	if len(res.Slots) == 0 {
		conv.State = BookingState{}
		return replyNoSlots(svc.Name), nil
	}

	offered := offeredFromSlots(res.Slots, displaySlotLimit)
	if e.snapshots != nil {
		if err := e.snapshots.Save(ctx, conv.BusinessID, conv.SessionID, offered); err != nil {
			// Selection falls back to regeneration when the snapshot
			// is missing, so this is not fatal.
			e.logger.Warn("slot snapshot save failed", "business_id", conv.BusinessID, "error", err)
		}
	}

	conv.State = BookingState{Step: StepTime, ServiceID: svc.ID, ServiceName: svc.Name}
	return replySlotOffer(svc.Name, offered), nil
}

func (e *Engine) stepSelectService(ctx context.Context, conv *Conversation, services []business.Service, n int) (string, error) {
	if n > len(services) {
		return replyInvalidSelection(min(len(services), 9)), nil
	}
	return e.offerSlots(ctx, conv, &services[n-1], availability.Preferences{})
}

// stepSelectSlot resolves a numeric reply against the snapshot of what was
// offered, regenerating only when the snapshot has expired.
func (e *Engine) stepSelectSlot(ctx context.Context, conv *Conversation, n int) (string, error) {
	offered, err := e.loadOffered(ctx, conv)
	if err != nil {
		return "", err
	}
	if len(offered) == 0 {
		serviceName := conv.State.ServiceName
		conv.State = BookingState{}
		return replyNoSlots(serviceName), nil
	}
	if n > len(offered) {
		return replyInvalidSelection(min(len(offered), displaySlotLimit)), nil
	}

	sel := offered[n-1]
	conv.State.Step = StepConfirm
	conv.State.SelectedSlotID = sel.ID
	conv.State.SlotDate = fmt.Sprintf("%s %s", sel.Day, sel.Date)
	conv.State.SlotTime = sel.Time
	return replySummary(conv.State), nil
}

func (e *Engine) loadOffered(ctx context.Context, conv *Conversation) ([]OfferedSlot, error) {
	if e.snapshots != nil {
		offered, err := e.snapshots.Get(ctx, conv.BusinessID, conv.SessionID)
		if err == nil {
			return offered, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			e.logger.Warn("slot snapshot load failed, regenerating", "business_id", conv.BusinessID, "error", err)
		}
	}

	svc, err := e.catalog.GetService(ctx, conv.State.ServiceID)
	if err != nil {
		return nil, err
	}
	res, err := e.slots.GetAvailableSlots(ctx, availability.SlotRequest{
		BusinessID:  conv.BusinessID,
		DurationMin: svc.DurationMin,
	})
	if err != nil {
		return nil, err
	}
	offered := offeredFromSlots(res.Slots, displaySlotLimit)
	if e.snapshots != nil && len(offered) > 0 {
		if err := e.snapshots.Save(ctx, conv.BusinessID, conv.SessionID, offered); err != nil {
			e.logger.Warn("slot snapshot save failed", "business_id", conv.BusinessID, "error", err)
		}
	}
	return offered, nil
}

func (e *Engine) stepConfirm(ctx context.Context, conv *Conversation, normalized string, customer *business.Customer) (string, error) {
	switch {
	case confirmWords[normalized]:
		return e.completeBooking(ctx, conv, customer)
	case declineWords[normalized]:
		conv.State = BookingState{}
		conv.Intent = string(IntentOther)
		e.clearSnapshot(ctx, conv)
		return replyDeclined(), nil
	default:
		return replyConfirmPrompt(), nil
	}
}

func (e *Engine) completeBooking(ctx context.Context, conv *Conversation, customer *business.Customer) (string, error) {
	state := conv.State
	if state.SelectedSlotID == "" || state.ServiceID == uuid.Nil {
		conv.State = BookingState{}
		return replyStartOver(), nil
	}

	name := ""
	if customer != nil {
		name = customer.Name
	}
	appt, err := e.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		BusinessID:    conv.BusinessID,
		ServiceID:     state.ServiceID,
		CustomerPhone: conv.SessionID,
		CustomerName:  name,
		SlotID:        state.SelectedSlotID,
	})
	if errors.Is(err, apperr.ErrSlotTaken) {
		conv.State = BookingState{}
		e.clearSnapshot(ctx, conv)
		return replySlotTaken(), nil
	}
	if err != nil {
		e.logger.Error("booking create failed", "business_id", conv.BusinessID, "error", err)
		return "Sorry, there was a problem creating your booking. Please try again.", nil
	}

	if e.scheduler != nil {
		if err := e.scheduler.Schedule(ctx, appt); err != nil {
			// The appointment exists; a missing reminder is not worth
			// telling the customer the booking failed.
			e.logger.Error("reminder scheduling failed", "appointment_id", appt.ID, "error", err)
		}
	}

	conv.State = BookingState{Step: StepComplete}
	conv.Intent = "book_complete"
	e.clearSnapshot(ctx, conv)
	return replyConfirmed(state), nil
}

func (e *Engine) handleInquiry(services []business.Service, c Classification) string {
	if c.Entities.Service != "" {
		if svc := matchService(services, c.Entities.Service); svc != nil {
			return replyServiceInfo(svc)
		}
	}
	return replyWhichService()
}

func (e *Engine) handleCancel(ctx context.Context, businessID uuid.UUID, phone string) (string, error) {
	appts, err := e.bookings.GetCustomerAppointments(ctx, businessID, phone)
	if err != nil {
		return "", err
	}
	if len(appts) == 0 {
		return replyNoUpcoming(), nil
	}

	next := appts[0]
	if _, err := e.bookings.CancelBooking(ctx, next.ID, businessID); err != nil {
		return "", err
	}
	return replyCancelled(next.ServiceName, next.StartTime), nil
}

func (e *Engine) clearSnapshot(ctx context.Context, conv *Conversation) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Clear(ctx, conv.BusinessID, conv.SessionID); err != nil {
		e.logger.Warn("slot snapshot clear failed", "business_id", conv.BusinessID, "error", err)
	}
}

func matchService(services []business.Service, query string) *business.Service {
	q := strings.ToLower(query)
	for i := range services {
		if strings.Contains(strings.ToLower(services[i].Name), q) {
			return &services[i]
		}
	}
	return nil
}

func preferencesFromEntities(ent Entities) availability.Preferences {
	t := strings.ToLower(ent.Time)
	return availability.Preferences{
		Morning:   strings.Contains(t, "morning"),
		Afternoon: strings.Contains(t, "afternoon") || strings.Contains(t, "evening"),
	}
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
