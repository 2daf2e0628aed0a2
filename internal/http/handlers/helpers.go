// Package handlers exposes the HTTP surface: the WhatsApp webhook and the
// admin appointments/slots API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simplebiz/concierge/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot no longer available")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
