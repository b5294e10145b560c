package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/slabworks/certlister/internal/models"
)

const submissionMessage = "Your submission has been received and will be reviewed shortly."

type submitResponse struct {
	Success        bool   `json:"success"`
	TrackingNumber string `json:"tracking_number"`
	Message        string `json:"message"`
}

// HandleSubmit accepts a consignment request and returns a tracking number.
// Nothing is stored; the submission is only logged.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.requirePOST(w, r) {
		return
	}

	var request models.ConsignmentRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	if msg := validateConsignment(&request); msg != "" {
		h.writeError(w, msg, http.StatusBadRequest)
		return
	}

	start := strings.TrimSpace(request.CertRange.Start.String())
	end := strings.TrimSpace(request.CertRange.End.String())
	tracking := fmt.Sprintf("CON-%s-%s-%d", start, end, h.now().Unix())

	slog.Info("Consignment submitted",
		"tracking_number", tracking,
		"name", request.Name,
		"cert_start", start,
		"cert_end", end,
		"results", len(request.Results),
	)

	h.writeJSON(w, http.StatusOK, submitResponse{
		Success:        true,
		TrackingNumber: tracking,
		Message:        submissionMessage,
	})
}

func validateConsignment(req *models.ConsignmentRequest) string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case strings.TrimSpace(req.Email) == "":
		return "email is required"
	case strings.TrimSpace(req.CertRange.Start.String()) == "" || strings.TrimSpace(req.CertRange.End.String()) == "":
		return "cert_range.start and cert_range.end are required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "email is not a valid address"
	}
	return ""
}
