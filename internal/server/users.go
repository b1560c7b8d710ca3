package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fieldreport/internal/auth"
	"fieldreport/pkg/types"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Service) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Password == "" {
		s.respondMessage(w, http.StatusBadRequest, "Name, email, phone and password are required")
		return
	}

	exists, err := s.users.ExistsByEmailOrPhone(r.Context(), req.Email, req.Phone)
	if err != nil {
		s.logger.WithError(err).Error("failed to check for existing user")
		s.internalServerError(w, "Server error during registration")
		return
	}
	if exists {
		s.respondMessage(w, http.StatusBadRequest, "User with this email or phone already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &types.User{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Password:         hash,
		RemindersEnabled: true,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		s.logger.WithError(err).Error("failed to create user")
		s.internalServerError(w, "Server error during registration")
		return
	}

	s.respondMessage(w, http.StatusCreated, "User registered successfully")
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (s *Service) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The response never distinguishes an unknown account from a wrong
	// password.
	user, err := s.users.UserByIdentifier(r.Context(), strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondMessage(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		s.logger.WithError(err).Error("failed to resolve user for login")
		s.internalServerError(w, "Server error during login")
		return
	}

	if err := auth.CheckPassword(req.Password, user.Password); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := s.tokens.IssueUserToken(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to issue user token")
		s.internalServerError(w, "Server error during login")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
	})
}

type forgotPasswordRequest struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
}

func (s *Service) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.users.UserByIdentifier(r.Context(), strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.WithError(err).Error("failed to resolve user for password reset")
		s.internalServerError(w, "Failed to send OTP")
		return
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		s.logger.WithError(err).Error("failed to generate one-time code")
		s.internalServerError(w, "Failed to send OTP")
		return
	}

	if err := s.users.SetOTP(r.Context(), user.ID, code, time.Now().Add(auth.OTPValidity)); err != nil {
		s.logger.WithError(err).Error("failed to store one-time code")
		s.internalServerError(w, "Failed to send OTP")
		return
	}

	message := fmt.Sprintf("Your verification code is: %s. It expires in 10 minutes.", code)

	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	if channel == "sms" {
		err = s.notifier.SendSMS(r.Context(), user.Phone, message)
	} else {
		channel = "email"
		err = s.notifier.SendEmail(r.Context(), user.Email, "Password Reset Code", message)
	}
	if err != nil {
		s.logger.WithError(err).WithField("channel", channel).Error("failed to dispatch one-time code")
		s.internalServerError(w, "Failed to send OTP")
		return
	}

	s.respondMessage(w, http.StatusOK, fmt.Sprintf("OTP sent via %s", channel))
}

type verifyOTPRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
}

func (s *Service) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Verification is repeatable and side-effect free; only reset consumes
	// the code.
	user, err := s.users.UserByIdentifier(r.Context(), strings.TrimSpace(req.Identifier))
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to resolve user for otp verification")
		s.internalServerError(w, "Verification failed")
		return
	}

	if user == nil || !auth.OTPMatches(user, req.OTP) {
		s.respondMessage(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	s.respondMessage(w, http.StatusOK, "OTP verified successfully")
}

type resetPasswordRequest struct {
	Identifier  string `json:"identifier"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (s *Service) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.users.UserByIdentifier(r.Context(), strings.TrimSpace(req.Identifier))
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to resolve user for password reset")
		s.internalServerError(w, "Reset failed")
		return
	}

	if user == nil || !auth.OTPMatches(user, req.OTP) {
		s.respondMessage(w, http.StatusBadRequest, "Session expired, please try again")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.users.ResetPassword(r.Context(), user.ID, hash); err != nil {
		s.logger.WithError(err).Error("failed to reset password")
		s.internalServerError(w, "Reset failed")
		return
	}

	s.respondMessage(w, http.StatusOK, "Password reset successful")
}

type updateRemindersRequest struct {
	RemindersEnabled bool `json:"remindersEnabled"`
}

func (s *Service) handleUpdateReminders(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain identity")
		s.respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.users.SetRemindersEnabled(r.Context(), identity.AccountID, req.RemindersEnabled); err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.WithError(err).Error("failed to update reminders flag")
		s.internalServerError(w, "Failed to update reminders")
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"message":          "Reminder preference updated",
		"remindersEnabled": req.RemindersEnabled,
	})
}
