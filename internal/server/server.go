package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fieldreport/internal/audit"
	"fieldreport/internal/auth"
	"fieldreport/internal/images"
	"fieldreport/internal/notify"
	"fieldreport/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// TaskStore is the slice of the task repository the HTTP layer depends on.
type TaskStore interface {
	Create(ctx context.Context, task *types.Task) error
	Update(ctx context.Context, taskID string, patch types.TaskPatch) (*types.Task, error)
	TasksByTechnicianEmail(ctx context.Context, email string) ([]*types.Task, error)
	Tasks(ctx context.Context) ([]*types.Task, error)
	CountInRange(ctx context.Context, start, end *time.Time) (int64, error)
	CountByTypeInRange(ctx context.Context, start, end *time.Time) ([]types.TypeCount, error)
	RecentInRange(ctx context.Context, start, end *time.Time, limit uint64) ([]types.TaskSummary, error)
}

type UserStore interface {
	Create(ctx context.Context, user *types.User) error
	User(ctx context.Context, userID string) (*types.User, error)
	UserByIdentifier(ctx context.Context, identifier string) (*types.User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	SetOTP(ctx context.Context, userID, code string, expiry time.Time) error
	ResetPassword(ctx context.Context, userID, passwordHash string) error
	SetRemindersEnabled(ctx context.Context, userID string, enabled bool) error
	Users(ctx context.Context) ([]*types.User, error)
}

type AdminStore interface {
	Admin(ctx context.Context, adminID string) (*types.Admin, error)
	AdminByEmail(ctx context.Context, email string) (*types.Admin, error)
}

type AuditStore interface {
	Logs(ctx context.Context, page, limit int) ([]*types.AuditLog, int64, error)
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	tasks     TaskStore
	users     UserStore
	admins    AdminStore
	auditLogs AuditStore

	recorder *audit.Recorder
	tokens   *auth.TokenManager
	intake   *images.Intake
	notifier notify.Gateway

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	tasks TaskStore,
	users UserStore,
	admins AdminStore,
	auditLogs AuditStore,
	recorder *audit.Recorder,
	tokens *auth.TokenManager,
	intake *images.Intake,
	notifier notify.Gateway,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger: logger,
		config: config,

		tasks:     tasks,
		users:     users,
		admins:    admins,
		auditLogs: auditLogs,

		recorder: recorder,
		tokens:   tokens,
		intake:   intake,
		notifier: notifier,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.recorder.Flush()
	return err
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/api/users/register", s.handleUserRegister, http.MethodPost)
	r.HandleFunc("/api/users/login", s.handleUserLogin, http.MethodPost)
	r.HandleFunc("/api/users/forgot-password", s.handleForgotPassword, http.MethodPost)
	r.HandleFunc("/api/users/verify-otp", s.handleVerifyOTP, http.MethodPost)
	r.HandleFunc("/api/users/reset-password", s.handleResetPassword, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireUser)

		r.HandleFunc("/api/users/update-reminders", s.handleUpdateReminders, http.MethodPatch)
	})

	r.HandleFunc("/api/tasks/submit", s.handleTaskSubmit, http.MethodPost)
	r.HandleFunc("/api/tasks/history/:email", s.handleTaskHistory, http.MethodGet)
	r.HandleFunc("/api/tasks/update/:id", s.handleTaskUpdate, http.MethodPut)

	r.HandleFunc("/api/admin/login", s.handleAdminLogin, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAdmin)

		r.HandleFunc("/api/admin/me", s.handleAdminMe, http.MethodGet)
		r.HandleFunc("/api/admin/tasks", s.handleAdminTasks, http.MethodGet)
		r.HandleFunc("/api/admin/statistics", s.handleStatistics, http.MethodGet)
		r.HandleFunc("/api/admin/technicians", s.handleTechnicians, http.MethodGet)
		r.HandleFunc("/api/audit", s.handleAuditLogs, http.MethodGet)
	})

	if s.config.StorageBackend == "local" {
		r.Handle("/uploads/...",
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.config.UploadDir))),
			http.MethodGet)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}
