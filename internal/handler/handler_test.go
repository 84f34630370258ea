package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"contacts-api/internal/cache"
	"contacts-api/internal/middleware"
	"contacts-api/internal/model"
	"contacts-api/internal/service"
)

// memUserStore is an in-memory service.UserStore keyed by email.
type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: make(map[string]model.User)}
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return model.User{}, model.ErrUserAlreadyExists
	}
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = time.Now()
	s.users[u.Email] = u
	return u, nil
}

func (s *memUserStore) UpdateRefreshToken(_ context.Context, email string, token string) error {
	return s.mutate(email, func(u *model.User) { u.RefreshToken = token })
}

func (s *memUserStore) ConfirmEmail(_ context.Context, email string) error {
	return s.mutate(email, func(u *model.User) { u.Confirmed = true })
}

func (s *memUserStore) UpdatePassword(_ context.Context, email string, hash string) error {
	return s.mutate(email, func(u *model.User) {
		u.PasswordHash = hash
		u.RefreshToken = ""
	})
}

func (s *memUserStore) mutate(email string, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(&user)
	s.users[email] = user
	return nil
}

// memContactStore is an in-memory service.ContactStore with user scoping.
type memContactStore struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[int64]model.Contact
}

func newMemContactStore() *memContactStore {
	return &memContactStore{nextID: 1, contacts: make(map[int64]model.Contact)}
}

func (s *memContactStore) List(_ context.Context, userID int64, filter model.ContactFilter, limit int, offset int) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Contact, 0)
	for _, c := range s.contacts {
		if c.UserID != userID {
			continue
		}
		if filter.FirstName != "" && c.FirstName != filter.FirstName {
			continue
		}
		if filter.LastName != "" && c.LastName != filter.LastName {
			continue
		}
		if filter.Email != "" && c.Email != filter.Email {
			continue
		}
		out = append(out, c)
	}
	if offset >= len(out) {
		return []model.Contact{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memContactStore) UpcomingBirthdays(_ context.Context, userID int64, days int, limit int, _ int) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := time.Now()
	out := make([]model.Contact, 0)
	for _, c := range s.contacts {
		if c.UserID != userID || c.Birthday.IsZero() {
			continue
		}
		next := time.Date(today.Year(), c.Birthday.Month(), c.Birthday.Day(), 0, 0, 0, 0, time.UTC)
		if next.Before(today.Truncate(24 * time.Hour)) {
			next = next.AddDate(1, 0, 0)
		}
		if int(next.Sub(today.Truncate(24*time.Hour)).Hours()/24) <= days {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memContactStore) FindByID(_ context.Context, userID int64, contactID int64) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[contactID]
	if !ok || c.UserID != userID {
		return model.Contact{}, model.ErrContactNotFound
	}
	return c, nil
}

func (s *memContactStore) Create(_ context.Context, c model.Contact) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID
	s.nextID++
	c.CreatedAt = time.Now()
	s.contacts[c.ID] = c
	return c, nil
}

func (s *memContactStore) Update(_ context.Context, c model.Contact) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.contacts[c.ID]
	if !ok || existing.UserID != c.UserID {
		return model.Contact{}, model.ErrContactNotFound
	}
	c.CreatedAt = existing.CreatedAt
	s.contacts[c.ID] = c
	return c, nil
}

func (s *memContactStore) Delete(_ context.Context, userID int64, contactID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[contactID]; ok && c.UserID == userID {
		delete(s.contacts, contactID)
	}
	return nil
}

// noopCache always misses so handler tests go through the store.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (model.User, error) { return model.User{}, cache.ErrMiss }
func (noopCache) Put(context.Context, string, model.User)         {}

// recordingMailer captures emailed tokens so tests can follow the links.
type recordingMailer struct {
	mu          sync.Mutex
	tokens      map[string]string
	resetTokens map[string]string
	sent        chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		tokens:      make(map[string]string),
		resetTokens: make(map[string]string),
		sent:        make(chan struct{}, 16),
	}
}

func (m *recordingMailer) SendConfirmation(_ context.Context, email, _, _, token string) error {
	m.mu.Lock()
	m.tokens[email] = token
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, _, _, token string) error {
	m.mu.Lock()
	m.resetTokens[email] = token
	m.mu.Unlock()
	m.sent <- struct{}{}
	return nil
}

func (m *recordingMailer) tokenFor(t *testing.T, email string) string {
	t.Helper()
	m.waitForSend(t)
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[email]
	require.True(t, ok)
	return token
}

func (m *recordingMailer) resetTokenFor(t *testing.T, email string) string {
	t.Helper()
	m.waitForSend(t)
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.resetTokens[email]
	require.True(t, ok)
	return token
}

func (m *recordingMailer) waitForSend(t *testing.T) {
	t.Helper()
	select {
	case <-m.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("email was not sent")
	}
}

type staticAvatars struct{}

func (staticAvatars) Resolve(_ context.Context, _ string) (string, error) {
	return "https://www.gravatar.com/avatar/test?d=identicon", nil
}

// testAPI wires real services over in-memory stores behind the real router
// surface: handlers, auth middleware, chi URL params.
type testAPI struct {
	router *chi.Mux
	mailer *recordingMailer
	users  *memUserStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	tokens, err := service.NewTokenService("test-secret-for-handlers", "HS256")
	require.NoError(t, err)

	users := newMemUserStore()
	mailer := newRecordingMailer()
	auth := service.NewAuthService(users, noopCache{}, tokens, mailer, staticAvatars{},
		15*time.Minute, 7*24*time.Hour, 7*24*time.Hour, "http://localhost:8000")
	contacts := service.NewContactService(newMemContactStore())

	authHandler := NewAuthHandler(auth)
	contactHandler := NewContactHandler(contacts)
	userHandler := NewUserHandler()
	authMW := middleware.NewAuthMiddleware(auth)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/refresh_token", authHandler.Refresh)
		r.Get("/confirmed_email/{token}", authHandler.ConfirmedEmail)
		r.Post("/request_email", authHandler.RequestEmail)
		r.Post("/forgot_password", authHandler.ForgotPassword)
		r.Post("/reset_password/{token}", authHandler.ResetPassword)
		r.With(authMW.RequireAuth).Patch("/password", authHandler.ChangePassword)
	})
	r.Route("/api/contacts", func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		r.Get("/", contactHandler.List)
		r.Post("/", contactHandler.Create)
		r.Get("/birthday", contactHandler.Birthdays)
		r.Get("/{contactID}", contactHandler.Get)
		r.Put("/{contactID}", contactHandler.Update)
		r.Delete("/{contactID}", contactHandler.Delete)
	})
	r.With(authMW.RequireAuth).Get("/api/users/me", userHandler.Me)

	return &testAPI{router: r, mailer: mailer, users: users}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	contentType := ""
	switch payload := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(payload.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signupAndConfirm registers a user, follows the confirmation link and logs
// in, returning the issued token pair.
func (a *testAPI) signupAndConfirm(t *testing.T, email, username, password string) model.TokenPair {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/signup", "", model.SignupRequest{
		Username: username, Email: email, Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	token := a.mailer.tokenFor(t, email)
	rec = a.do(t, http.MethodGet, "/api/auth/confirmed_email/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", url.Values{
		"username": {email}, "password": {password},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[model.TokenPair](t, rec)
}
