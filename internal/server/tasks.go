package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldreport/internal/images"
	"fieldreport/pkg/types"
)

// maxSubmissionBytes caps a multipart submission held in memory before the
// runtime spills parts to disk.
const maxSubmissionBytes = 32 << 20

// taskSubmission carries the value fields of a multipart task report. File
// parts (photos, sketch) are read separately.
type taskSubmission struct {
	TechnicianName  string  `form:"technicianName"`
	TechnicianEmail string  `form:"technicianEmail"`
	TechnicianPhone string  `form:"technicianPhone"`
	Length          string  `form:"length"`
	Width           string  `form:"width"`
	Height          string  `form:"height"`
	SketchLength    *string `form:"sketchLength"`
	SketchWidth     *string `form:"sketchWidth"`
	SketchHeight    *string `form:"sketchHeight"`
	Type            string  `form:"type"`
	Description     *string `form:"description"`
	Latitude        string  `form:"latitude"`
	Longitude       string  `form:"longitude"`
	Address         *string `form:"address"`
	Timestamp       *string `form:"timestamp"`
}

func (s *Service) handleTaskSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var sub taskSubmission
	if err := decoder.Decode(&sub, r.MultipartForm.Value); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid form fields")
		return
	}

	sub.TechnicianName = strings.TrimSpace(sub.TechnicianName)
	sub.TechnicianEmail = strings.ToLower(strings.TrimSpace(sub.TechnicianEmail))
	sub.TechnicianPhone = strings.TrimSpace(sub.TechnicianPhone)

	if sub.TechnicianName == "" || sub.TechnicianEmail == "" || sub.TechnicianPhone == "" {
		s.respondMessage(w, http.StatusBadRequest, "Technician name, email and phone are required")
		return
	}

	taskType := types.TaskType(sub.Type)
	if !taskType.Valid() {
		s.respondMessage(w, http.StatusBadRequest, "Invalid task type")
		return
	}

	photoURLs, err := s.intake.StorePhotos(r.Context(), r.MultipartForm.File["photos"])
	if err != nil {
		if errors.Is(err, images.ErrTooManyPhotos) || errors.Is(err, images.ErrUnsupportedType) {
			s.respondMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to store photos")
		s.internalServerError(w, "Failed to store photos")
		return
	}

	var sketchURL *string
	if headers := r.MultipartForm.File["sketch"]; len(headers) > 0 {
		url, err := s.intake.StoreSketch(r.Context(), headers[0])
		if err != nil {
			if errors.Is(err, images.ErrUnsupportedType) {
				s.respondMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.WithError(err).Error("failed to store sketch")
			s.internalServerError(w, "Failed to store sketch")
			return
		}
		sketchURL = &url
	}

	task := &types.Task{
		Technician: types.Technician{
			Name:  sub.TechnicianName,
			Email: sub.TechnicianEmail,
			Phone: sub.TechnicianPhone,
		},
		Photos:             photoURLs,
		Sketch:             sketchURL,
		Length:             strings.TrimSpace(sub.Length),
		Width:              strings.TrimSpace(sub.Width),
		Height:             strings.TrimSpace(sub.Height),
		SketchMeasurements: buildSketchMeasurements(sub.SketchLength, sub.SketchWidth, sub.SketchHeight),
		Type:               taskType,
		Description:        sub.Description,
		Location: types.Location{
			Latitude:  parseCoordinate(sub.Latitude),
			Longitude: parseCoordinate(sub.Longitude),
			Address:   sub.Address,
		},
		Timestamp: parseTimestamp(sub.Timestamp),
	}

	if err := s.tasks.Create(r.Context(), task); err != nil {
		s.logger.WithError(err).Error("failed to create task")
		s.internalServerError(w, "Failed to submit task")
		return
	}

	s.recorder.Record(types.AuditLog{
		Action:      "TASK_SUBMIT",
		Description: "Task report submitted",
		User:        task.Technician.Email,
		Role:        types.AuditRoleUser,
		IP:          clientIP(r),
		Metadata: map[string]any{
			"taskId": task.ID,
			"type":   string(task.Type),
		},
	})

	s.respond(w, http.StatusCreated, map[string]any{
		"message": "Task submitted successfully",
		"task":    task,
	})
}

// buildSketchMeasurements builds the optional measurement block. Absent
// fields default to empty strings once any one of them is present.
func buildSketchMeasurements(length, width, height *string) *types.SketchMeasurements {
	if length == nil && width == nil && height == nil {
		return nil
	}

	m := &types.SketchMeasurements{}
	if length != nil {
		m.Length = strings.TrimSpace(*length)
	}
	if width != nil {
		m.Width = strings.TrimSpace(*width)
	}
	if height != nil {
		m.Height = strings.TrimSpace(*height)
	}
	return m
}

func nonBlank(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

// parseCoordinate returns nil for blank or malformed values rather than
// failing the whole submission.
func parseCoordinate(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseTimestamp(raw *string) time.Time {
	if raw == nil {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Service) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.PathValue("email")))
	if email == "" {
		s.respondMessage(w, http.StatusBadRequest, "Technician email is required")
		return
	}

	tasks, err := s.tasks.TasksByTechnicianEmail(r.Context(), email)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch task history")
		s.internalServerError(w, "Failed to fetch task history")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// taskUpdateForm carries the value fields of a partial multipart update.
// Absent keys stay nil and leave the stored values untouched.
type taskUpdateForm struct {
	Length       *string `form:"length"`
	Width        *string `form:"width"`
	Height       *string `form:"height"`
	SketchLength *string `form:"sketchLength"`
	SketchWidth  *string `form:"sketchWidth"`
	SketchHeight *string `form:"sketchHeight"`
}

func (s *Service) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var form taskUpdateForm
	if err := decoder.Decode(&form, r.MultipartForm.Value); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid form fields")
		return
	}

	// A supplied-but-blank field counts as not supplied; a blank value never
	// clobbers a stored one.
	form.Length = nonBlank(form.Length)
	form.Width = nonBlank(form.Width)
	form.Height = nonBlank(form.Height)
	form.SketchLength = nonBlank(form.SketchLength)
	form.SketchWidth = nonBlank(form.SketchWidth)
	form.SketchHeight = nonBlank(form.SketchHeight)

	patch := types.TaskPatch{
		Length:             form.Length,
		Width:              form.Width,
		Height:             form.Height,
		SketchMeasurements: buildSketchMeasurements(form.SketchLength, form.SketchWidth, form.SketchHeight),
	}

	if headers := r.MultipartForm.File["sketch"]; len(headers) > 0 {
		url, err := s.intake.StoreSketch(r.Context(), headers[0])
		if err != nil {
			if errors.Is(err, images.ErrUnsupportedType) {
				s.respondMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.WithError(err).Error("failed to store replacement sketch")
			s.internalServerError(w, "Failed to store sketch")
			return
		}
		patch.Sketch = &url
	}

	task, err := s.tasks.Update(r.Context(), taskID, patch)
	if err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			s.respondMessage(w, http.StatusNotFound, "Task not found")
			return
		}
		s.logger.WithError(err).Error("failed to update task")
		s.internalServerError(w, "Failed to update task")
		return
	}

	s.recorder.Record(types.AuditLog{
		Action:      "TASK_UPDATE",
		Description: "Task measurements updated",
		User:        task.Technician.Email,
		Role:        types.AuditRoleUser,
		IP:          clientIP(r),
		Metadata:    map[string]any{"taskId": task.ID},
	})

	s.respond(w, http.StatusOK, map[string]any{
		"message": "Task updated successfully",
		"task":    task,
	})
}
