package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fieldreport/internal/auth"
	"fieldreport/pkg/types"
)

// recentTasksLimit bounds the activity feed in the statistics payload.
const recentTasksLimit = 5

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := s.admins.AdminByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, types.ErrAdminNotFound) {
			s.respondMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.logger.WithError(err).Error("failed to resolve admin for login")
		s.internalServerError(w, "Server error during login")
		return
	}

	if err := auth.CheckPassword(req.Password, admin.Password); err != nil {
		s.respondMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.IssueAdminToken(admin.ID, admin.Email)
	if err != nil {
		s.logger.WithError(err).Error("failed to issue admin token")
		s.internalServerError(w, "Server error during login")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"token": token,
		"admin": map[string]string{
			"id":    admin.ID,
			"name":  admin.Name,
			"email": admin.Email,
		},
	})

	s.recorder.Record(types.AuditLog{
		Action:      "LOGIN",
		Description: "Admin logged in",
		User:        admin.Email,
		Role:        types.AuditRoleAdmin,
		IP:          clientIP(r),
	})
}

func (s *Service) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain identity")
		s.respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	admin, err := s.admins.Admin(r.Context(), identity.AccountID)
	if err != nil {
		if errors.Is(err, types.ErrAdminNotFound) {
			s.respondMessage(w, http.StatusNotFound, "Admin not found")
			return
		}
		s.logger.WithError(err).Error("failed to fetch admin")
		s.internalServerError(w, "Failed to fetch admin")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"admin": admin})
}

func (s *Service) handleAdminTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.Tasks(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch tasks")
		s.internalServerError(w, "Failed to fetch tasks")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Service) handleStatistics(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r.URL.Query().Get("startDate"), false)
	if err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid startDate")
		return
	}

	end, err := parseDateParam(r.URL.Query().Get("endDate"), true)
	if err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid endDate")
		return
	}

	total, err := s.tasks.CountInRange(r.Context(), start, end)
	if err != nil {
		s.logger.WithError(err).Error("failed to count tasks")
		s.internalServerError(w, "Failed to compute statistics")
		return
	}

	byType, err := s.tasks.CountByTypeInRange(r.Context(), start, end)
	if err != nil {
		s.logger.WithError(err).Error("failed to compute type breakdown")
		s.internalServerError(w, "Failed to compute statistics")
		return
	}

	recent, err := s.tasks.RecentInRange(r.Context(), start, end, recentTasksLimit)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch recent tasks")
		s.internalServerError(w, "Failed to compute statistics")
		return
	}

	s.respond(w, http.StatusOK, types.Statistics{
		TotalTasks:  total,
		TasksByType: byType,
		RecentTasks: recent,
	})
}

// parseDateParam accepts a YYYY-MM-DD date or a full RFC 3339 timestamp. A
// bare end date covers the whole day, so it is pushed to the last instant of
// that day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

func (s *Service) handleTechnicians(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.Users(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch technicians")
		s.internalServerError(w, "Failed to fetch technicians")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"technicians": users})
}
