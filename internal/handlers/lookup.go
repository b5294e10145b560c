package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/slabworks/certlister/internal/batch"
	"github.com/slabworks/certlister/internal/models"
	"github.com/slabworks/certlister/internal/psa"
)

type lookupResponse struct {
	Success  bool               `json:"success"`
	CardData *models.CardRecord `json:"card_data,omitempty"`
	Listing  *models.Listing    `json:"listing,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	if !h.requirePOST(w, r) {
		return
	}

	var request struct {
		CertNumber models.FlexString `json:"cert_number"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	certNumber := strings.TrimSpace(request.CertNumber.String())
	if certNumber == "" {
		h.writeError(w, "cert_number is required", http.StatusBadRequest)
		return
	}

	record, listing, err := h.runner.LookupOne(r.Context(), certNumber)
	if errors.Is(err, psa.ErrNotFound) {
		h.writeJSON(w, http.StatusOK, lookupResponse{
			Success: false,
			Error:   fmt.Sprintf("No data found for cert #%s", certNumber),
		})
		return
	}
	if err != nil {
		h.writeError(w, "PSA lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, lookupResponse{
		Success:  true,
		CardData: record,
		Listing:  listing,
	})
}

func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if !h.requirePOST(w, r) {
		return
	}

	var request struct {
		CertInput string   `json:"cert_input"`
		Delay     *float64 `json:"delay"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	seconds := 1.0
	if request.Delay != nil {
		seconds = *request.Delay
	}
	delay, err := batch.DelayFromSeconds(seconds)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.runBatch(w, r, request.CertInput, delay)
}
