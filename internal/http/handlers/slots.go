package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/availability"
	"github.com/simplebiz/concierge/pkg/logging"
)

// SlotSource generates availability.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, req availability.SlotRequest) (availability.SlotResult, error)
}

// SlotsHandler serves availability queries.
type SlotsHandler struct {
	slots  SlotSource
	logger *logging.Logger
}

// NewSlotsHandler creates a slots API handler.
func NewSlotsHandler(slots SlotSource, logger *logging.Logger) *SlotsHandler {
	if slots == nil {
		panic("handlers: slot source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotsHandler{slots: slots, logger: logger}
}

// List is GET /api/slots.
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	businessID, err := uuid.Parse(q.Get("businessId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "businessId is required")
		return
	}

	req := availability.SlotRequest{BusinessID: businessID}
	if d := q.Get("duration"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "duration must be a positive integer")
			return
		}
		req.DurationMin = n
	}
	req.Preferences = availability.Preferences{
		Morning:   q.Get("morning") == "true",
		Afternoon: q.Get("afternoon") == "true",
	}

	res, err := h.slots.GetAvailableSlots(r.Context(), req)
	if err != nil {
		h.logger.Error("slot generation failed", "business_id", businessID, "error", err)
		writeDomainError(w, err)
		return
	}
	if res.Slots == nil {
		res.Slots = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, res)
}
