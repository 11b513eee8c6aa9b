package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/privashield/leakwatch/internal/auth"
	"github.com/privashield/leakwatch/internal/detection"
)

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Message string `json:"message"`
	*detection.Result
}

func (s *Server) detectPII(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondAuthError(w, http.StatusUnauthorized, auth.ErrUnauthorized)
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Request body must be JSON with a text field")
		return
	}

	result, err := s.detector.Detect(r.Context(), id.Email, req.Text)
	switch {
	case errors.Is(err, detection.ErrEmptyText), errors.Is(err, detection.ErrMissingIdentity):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	case err != nil:
		s.respondInternal(w, r, err)
		return
	}

	message := "PII detected and recorded"
	if len(result.DetectedTypes) == 0 {
		message = "No PII detected"
	}
	respondJSON(w, http.StatusOK, detectResponse{Message: message, Result: result})
}
