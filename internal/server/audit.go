package server

import (
	"net/http"
	"strconv"

	"fieldreport/pkg/types"
)

func (s *Service) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := positiveIntParam(r.URL.Query().Get("page"), 1)
	limit := positiveIntParam(r.URL.Query().Get("limit"), 50)

	logs, total, err := s.auditLogs.Logs(r.Context(), page, limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch audit logs")
		s.internalServerError(w, "Failed to fetch audit logs")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	s.respond(w, http.StatusOK, types.AuditPage{
		Logs:        logs,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalLogs:   total,
	})
}

// positiveIntParam falls back to the default on absent, malformed, or
// non-positive values.
func positiveIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
