package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"fieldreport/internal/audit"
	"fieldreport/internal/auth"
	"fieldreport/internal/images"
	"fieldreport/pkg/types"

	"github.com/sirupsen/logrus"
)

type fakeTaskStore struct {
	mu     sync.Mutex
	nextID int
	tasks  []*types.Task
	err    error
}

func (f *fakeTaskStore) Create(ctx context.Context, task *types.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.nextID++
	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%d", f.nextID)
	}
	now := time.Now()
	if task.Timestamp.IsZero() {
		task.Timestamp = now
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	stored := *task
	f.tasks = append(f.tasks, &stored)
	return nil
}

func (f *fakeTaskStore) Update(ctx context.Context, taskID string, patch types.TaskPatch) (*types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, task := range f.tasks {
		if task.ID != taskID {
			continue
		}

		if patch.Length != nil {
			task.Length = *patch.Length
		}
		if patch.Width != nil {
			task.Width = *patch.Width
		}
		if patch.Height != nil {
			task.Height = *patch.Height
		}
		if patch.Sketch != nil {
			task.Sketch = patch.Sketch
		}
		if patch.SketchMeasurements != nil {
			m := *patch.SketchMeasurements
			task.SketchMeasurements = &m
		}
		task.UpdatedAt = time.Now()

		copied := *task
		return &copied, nil
	}

	return nil, types.ErrTaskNotFound
}

func (f *fakeTaskStore) TasksByTechnicianEmail(ctx context.Context, email string) ([]*types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.Task
	for _, task := range f.tasks {
		if task.Technician.Email == email {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Tasks(ctx context.Context) ([]*types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*types.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeTaskStore) inRange(task *types.Task, start, end *time.Time) bool {
	if start != nil && task.Timestamp.Before(*start) {
		return false
	}
	if end != nil && task.Timestamp.After(*end) {
		return false
	}
	return true
}

func (f *fakeTaskStore) CountInRange(ctx context.Context, start, end *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, task := range f.tasks {
		if f.inRange(task, start, end) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTaskStore) CountByTypeInRange(ctx context.Context, start, end *time.Time) ([]types.TypeCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := map[string]int64{}
	for _, task := range f.tasks {
		if f.inRange(task, start, end) {
			counts[string(task.Type)]++
		}
	}

	out := make([]types.TypeCount, 0, len(counts))
	for taskType, count := range counts {
		out = append(out, types.TypeCount{Type: taskType, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (f *fakeTaskStore) RecentInRange(ctx context.Context, start, end *time.Time, limit uint64) ([]types.TaskSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*types.Task
	for _, task := range f.tasks {
		if f.inRange(task, start, end) {
			matched = append(matched, task)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	if uint64(len(matched)) > limit {
		matched = matched[:limit]
	}

	out := make([]types.TaskSummary, 0, len(matched))
	for _, task := range matched {
		out = append(out, types.TaskSummary{
			ID:             task.ID,
			Type:           string(task.Type),
			TechnicianName: task.Technician.Name,
			Address:        task.Location.Address,
			Timestamp:      task.Timestamp,
		})
	}
	return out, nil
}

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  []*types.User
}

func (f *fakeUserStore) Create(ctx context.Context, user *types.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	f.users = append(f.users, &stored)
	return nil
}

func (f *fakeUserStore) User(ctx context.Context, userID string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.ID == userID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (f *fakeUserStore) UserByIdentifier(ctx context.Context, identifier string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == identifier || user.Phone == identifier {
			copied := *user
			return &copied, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (f *fakeUserStore) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email || user.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) SetOTP(ctx context.Context, userID, code string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.ID == userID {
			user.OTP = &code
			user.OTPExpiry = &expiry
			return nil
		}
	}
	return types.ErrUserNotFound
}

func (f *fakeUserStore) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.ID == userID {
			user.Password = passwordHash
			user.OTP = nil
			user.OTPExpiry = nil
			return nil
		}
	}
	return types.ErrUserNotFound
}

func (f *fakeUserStore) SetRemindersEnabled(ctx context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.ID == userID {
			user.RemindersEnabled = enabled
			return nil
		}
	}
	return types.ErrUserNotFound
}

func (f *fakeUserStore) Users(ctx context.Context) ([]*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*types.User, 0, len(f.users))
	for _, user := range f.users {
		copied := *user
		out = append(out, &copied)
	}
	return out, nil
}

type fakeAdminStore struct {
	admins []*types.Admin
}

func (f *fakeAdminStore) Admin(ctx context.Context, adminID string) (*types.Admin, error) {
	for _, admin := range f.admins {
		if admin.ID == adminID {
			copied := *admin
			return &copied, nil
		}
	}
	return nil, types.ErrAdminNotFound
}

func (f *fakeAdminStore) AdminByEmail(ctx context.Context, email string) (*types.Admin, error) {
	for _, admin := range f.admins {
		if admin.Email == email {
			copied := *admin
			return &copied, nil
		}
	}
	return nil, types.ErrAdminNotFound
}

// fakeAuditStore backs both the async recorder and the paginated listing.
type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*types.AuditLog
}

func (f *fakeAuditStore) Append(ctx context.Context, entry *types.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	copied := *entry
	f.entries = append(f.entries, &copied)
	return nil
}

func (f *fakeAuditStore) Logs(ctx context.Context, page, limit int) ([]*types.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sorted := make([]*types.AuditLog, len(f.entries))
	copy(sorted, f.entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	offset := (page - 1) * limit
	if offset > len(sorted) {
		offset = len(sorted)
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}

	return sorted[offset:end], int64(len(f.entries)), nil
}

func (f *fakeAuditStore) byAction(action string) []*types.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.AuditLog
	for _, entry := range f.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	sms    []string
	emails []string
	err    error
}

func (f *fakeNotifier) SendSMS(ctx context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sms = append(f.sms, phone)
	return nil
}

func (f *fakeNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.emails = append(f.emails, to)
	return nil
}

type memoryUploader struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memoryUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.blobs == nil {
		m.blobs = map[string][]byte{}
	}
	m.blobs[key] = data
	return "mem://" + key, nil
}

type testEnv struct {
	service  *Service
	tasks    *fakeTaskStore
	users    *fakeUserStore
	admins   *fakeAdminStore
	auditing *fakeAuditStore
	notifier *fakeNotifier
	recorder *audit.Recorder
	tokens   *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := &types.Config{
		ServerPort:      8080,
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 5,
		StorageBackend:  "local",
		UploadDir:       t.TempDir(),
	}

	tokens, err := auth.NewTokenManager("test-secret-at-least-32-bytes-long", time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	env := &testEnv{
		tasks:    &fakeTaskStore{},
		users:    &fakeUserStore{},
		admins:   &fakeAdminStore{},
		auditing: &fakeAuditStore{},
		notifier: &fakeNotifier{},
		tokens:   tokens,
	}
	env.recorder = audit.NewRecorder(env.auditing, logger)

	service, err := New(
		config,
		logger,
		env.tasks,
		env.users,
		env.admins,
		env.auditing,
		env.recorder,
		tokens,
		images.NewIntake(&memoryUploader{}, 1200, 1000, 80),
		env.notifier,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.service = service

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.service.server.Handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) registerUser(t *testing.T, name, email, phone, password string) *types.User {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/users/register", map[string]string{
		"name":     name,
		"email":    email,
		"phone":    phone,
		"password": password,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	user, err := e.users.UserByIdentifier(context.Background(), email)
	if err != nil {
		t.Fatalf("registered user not found: %v", err)
	}
	return user
}

func (e *testEnv) seedAdmin(t *testing.T, email, password string) *types.Admin {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	admin := &types.Admin{ID: "admin-1", Email: email, Password: hash, Name: "Admin"}
	e.admins.admins = append(e.admins.admins, admin)
	return admin
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	admin := e.seedAdmin(t, "boss@example.com", "sup3rsecret")
	token, err := e.tokens.IssueAdminToken(admin.ID, admin.Email)
	if err != nil {
		t.Fatalf("IssueAdminToken: %v", err)
	}
	return token
}

func pngPayload(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

// multipartSubmission builds a task submission body from value fields and
// photo/sketch payloads.
func multipartSubmission(t *testing.T, fields map[string]string, photos [][]byte, sketch []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	for i, photo := range photos {
		part, err := w.CreateFormFile("photos", fmt.Sprintf("photo-%d.png", i))
		if err != nil {
			t.Fatalf("failed to create photo part: %v", err)
		}
		if _, err := part.Write(photo); err != nil {
			t.Fatalf("failed to write photo part: %v", err)
		}
	}
	if sketch != nil {
		part, err := w.CreateFormFile("sketch", "sketch.png")
		if err != nil {
			t.Fatalf("failed to create sketch part: %v", err)
		}
		if _, err := part.Write(sketch); err != nil {
			t.Fatalf("failed to write sketch part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return &buf, w.FormDataContentType()
}

func (e *testEnv) updateTask(t *testing.T, taskID string, fields map[string]string, sketch []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartSubmission(t, fields, nil, sketch)
	req := httptest.NewRequest(http.MethodPut, "/api/tasks/update/"+taskID, body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	e.service.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) submitTask(t *testing.T, fields map[string]string, photos [][]byte, sketch []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartSubmission(t, fields, photos, sketch)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/submit", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	e.service.server.Handler.ServeHTTP(rec, req)
	return rec
}

func validSubmissionFields() map[string]string {
	return map[string]string{
		"technicianName":  "Jane Tech",
		"technicianEmail": "jane@example.com",
		"technicianPhone": "+254700000001",
		"length":          "2.5m",
		"width":           "1.2m",
		"height":          "0.4m",
		"type":            string(types.TaskTypePylon),
		"latitude":        "-1.2921",
		"longitude":       "36.8219",
		"address":         "Moi Avenue, Nairobi",
	}
}
