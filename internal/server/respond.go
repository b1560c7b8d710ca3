package server

import (
	"encoding/json"
	"net/http"
)

func (s *Service) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// respondMessage writes the short human-readable failure shape used across
// the API: {"message": "..."}.
func (s *Service) respondMessage(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, map[string]string{"message": message})
}

func (s *Service) internalServerError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Server error"
	}
	s.respondMessage(w, http.StatusInternalServerError, message)
}
