package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/simplebiz/concierge/internal/availability"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/hours"
)

// Reply templates. Kept as plain functions so the engine stays a thin
// transition table and the copy lives in one place.

func replyGreeting(biz *business.Business, services []business.Service) string {
	if len(services) > 0 {
		names := make([]string, 0, 3)
		for _, s := range services {
			names = append(names, s.Name)
			if len(names) == 3 {
				break
			}
		}
		more := ""
		if len(services) > 3 {
			more = " and more"
		}
		return fmt.Sprintf("Hi! I'm the booking assistant for %s. I can help you book %s%s.\n\nWhat can I help you with?",
			biz.Name, strings.Join(names, ", "), more)
	}
	return fmt.Sprintf("Hi! I'm the booking assistant for %s. How can I help you today?", biz.Name)
}

func replyServiceMenu(services []business.Service) string {
	var b strings.Builder
	b.WriteString("What service would you like to book?\n\n")
	for i, s := range services {
		b.WriteString(fmt.Sprintf("%d. %s (%dmin", i+1, s.Name, s.DurationMin))
		if s.PriceCents > 0 {
			b.WriteString(fmt.Sprintf(" - $%s", formatPrice(s.PriceCents)))
		}
		b.WriteString(")\n")
	}
	b.WriteString("\nReply with the number.")
	return b.String()
}

func replySlotOffer(serviceName string, offered []OfferedSlot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Available times for %s:\n\n", serviceName))
	for i, s := range offered {
		b.WriteString(fmt.Sprintf("%d. %s %s at %s\n", i+1, s.Day, s.Date, s.Time))
	}
	b.WriteString(fmt.Sprintf("\nReply with the number (1-%d) to book.", len(offered)))
	return b.String()
}

func replyNoSlots(serviceName string) string {
	return fmt.Sprintf("Sorry, no available slots for %s in the next 2 weeks.\n\nWould you like to try a different service?", serviceName)
}

func replyInvalidSelection(max int) string {
	return fmt.Sprintf("Invalid selection. Please reply with a number between 1 and %d.", max)
}

func replySummary(state BookingState) string {
	return fmt.Sprintf("Booking Summary\n\nService: %s\nDate: %s\nTime: %s\n\nReply \"yes\" to confirm or \"no\" to cancel.",
		state.ServiceName, state.SlotDate, state.SlotTime)
}

func replyConfirmed(state BookingState) string {
	return fmt.Sprintf("Booking Confirmed!\n\n%s at %s\n\nYou'll receive a reminder before your appointment.\n\nSee you then!",
		state.SlotDate, state.SlotTime)
}

func replyDeclined() string {
	return "No problem! Your booking is cancelled.\n\nWould you like to book for a different time?"
}

func replyConfirmPrompt() string {
	return `Please reply "yes" to confirm or "no" to cancel.`
}

func replySlotTaken() string {
	return "Sorry, that slot was just taken. Let me know if you'd like to see the latest availability."
}

func replyServiceInfo(svc *business.Service) string {
	var b strings.Builder
	b.WriteString(svc.Name)
	if svc.Description != "" {
		b.WriteString("\n" + svc.Description)
	}
	b.WriteString(fmt.Sprintf("\n\nDuration: %d minutes", svc.DurationMin))
	if svc.PriceCents > 0 {
		b.WriteString(fmt.Sprintf("\nPrice: $%s", formatPrice(svc.PriceCents)))
	} else {
		b.WriteString("\nContact for pricing")
	}
	b.WriteString("\n\nWould you like to book?")
	return b.String()
}

func replyWhichService() string {
	return "Which service are you interested in?"
}

func replyHours(schedule hours.Schedule) string {
	if schedule == nil {
		return "Please contact us directly for hours and availability."
	}
	var b strings.Builder
	b.WriteString("Our hours:\n\n")
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		ranges := schedule[day]
		label := strings.ToUpper(day[:1]) + day[1:]
		if len(ranges) == 0 {
			b.WriteString(fmt.Sprintf("%s: Closed\n", label))
		} else {
			b.WriteString(fmt.Sprintf("%s: %s\n", label, strings.Join(ranges, ", ")))
		}
	}
	b.WriteString("\nAnything else?")
	return b.String()
}

func replyCancelled(serviceName string, startTime time.Time) string {
	return fmt.Sprintf("Your %s appointment on %s has been cancelled.\n\nWould you like to rebook for another time?",
		serviceName, startTime.Format("Jan 2, 2006 at 3:04 PM"))
}

func replyNoUpcoming() string {
	return "You don't have any upcoming appointments.\n\nWould you like to book one?"
}

func replyNoServices() string {
	return "Sorry, no services available right now."
}

func replyError() string {
	return "Sorry, something went wrong. Please try again."
}

func replyImage() string {
	return "Thanks for the image! For bookings, please send a text message."
}

func replyStartOver() string {
	return "Something went wrong. Please start over with a new booking."
}

func formatPrice(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("%d", cents/100)
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// offeredFromSlots converts generator output to the display/snapshot shape,
// keeping at most max entries.
func offeredFromSlots(slots []availability.Slot, max int) []OfferedSlot {
	if len(slots) > max {
		slots = slots[:max]
	}
	offered := make([]OfferedSlot, 0, len(slots))
	for _, s := range slots {
		offered = append(offered, OfferedSlot{ID: s.ID, Day: s.Day, Date: s.Date, Time: s.Time})
	}
	return offered
}
