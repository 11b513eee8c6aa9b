package api

import (
	"net/http"

	"github.com/privashield/leakwatch/internal/auth"
)

// caller returns the verified identity's key, answering 401 when absent.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok || id.Email == "" {
		respondAuthError(w, http.StatusUnauthorized, auth.ErrUnauthorized)
		return "", false
	}
	return id.Email, true
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	summary, err := s.aggregator.Summary(r.Context(), identity)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) getCurrentLeaks(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	leaks, err := s.aggregator.CurrentLeaks(r.Context(), identity)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, leaks)
}

func (s *Server) getPreviousLeaks(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	leaks, err := s.aggregator.PreviousLeaks(r.Context(), identity)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, leaks)
}

func (s *Server) getMonthlyRisk(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	points, err := s.aggregator.MonthlyRisk(r.Context(), identity)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, points)
}

func (s *Server) getMonthlyData(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	daily, err := s.aggregator.MonthlyDaily(r.Context(), identity)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, daily)
}

func (s *Server) getSensitiveInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	dist, err := s.aggregator.TypeDistribution(r.Context(), identity)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dist)
}

func (s *Server) getAllUsersLeaks(w http.ResponseWriter, r *http.Request) {
	rollup, err := s.aggregator.AllUsersLeaks(r.Context())
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rollup)
}
