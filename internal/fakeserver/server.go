// Package fakeserver is an in-process fitness API used by tests. It implements the
// auth endpoints plus the goal, dashboard and profile resources, and lets a test
// revoke tokens, force statuses and block requests.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-fitness-client/fitness"
)

// Call records one request the server received.
type Call struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// Server is the fake API.
type Server struct {
	*httptest.Server

	creator *tokenCreator

	mu        sync.Mutex
	users     map[string]*user          // email -> user
	tokens    map[string]string         // token -> email
	goals     map[string][]fitness.Goal // email -> goals
	stats     map[string]fitness.DashboardStats
	nextGoal  int
	calls     []Call
	forced    map[string]int // "METHOD /path" -> status
	beforeFns map[string]func(r *http.Request)
}

// New starts a fake server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		creator:   newTokenCreator(),
		users:     make(map[string]*user),
		tokens:    make(map[string]string),
		goals:     make(map[string][]fitness.Goal),
		stats:     make(map[string]fitness.DashboardStats),
		forced:    make(map[string]int),
		beforeFns: make(map[string]func(r *http.Request)),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Post("/auth/logout", s.logout)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/auth/me", s.me)
		r.Get("/profile", s.me)
		r.Get("/goals", s.listGoals)
		r.Post("/goals", s.createGoal)
		r.Put("/goals/{id}", s.updateGoal)
		r.Get("/dashboard", s.dashboard)
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) {
	u, err := newUser(username, email, password)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = u
}

// IssueToken creates a valid token for an existing account.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(s.users[email])
}

// Revoke invalidates token so later requests with it get 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// TokenValid reports whether the server still accepts token.
func (s *Server) TokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// ForceStatus makes every "METHOD path" request answer status with a {message} body.
// A zero status removes the override.
func (s *Server) ForceStatus(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.forced, key)
		return
	}
	s.forced[key] = status
}

// Before runs fn before handling "METHOD path". fn may block to hold a request in flight.
func (s *Server) Before(method, path string, fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeFns[method+" "+path] = fn
}

// SetStats sets the dashboard statistics for an account.
func (s *Server) SetStats(email string, stats fitness.DashboardStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[email] = stats
}

// Calls returns every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts requests to "METHOD path".
func (s *Server) CallCount(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		before := s.beforeFns[key]
		status, forced := s.forced[key]
		s.mu.Unlock()

		if before != nil {
			before(r)
		}
		if forced {
			writeMessage(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "Missing token")
			return
		}
		s.mu.Lock()
		email, ok := s.tokens[token]
		s.mu.Unlock()
		if claimed, err := s.creator.parse(token); err != nil || claimed != email {
			ok = false
		}
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		r.Header.Set("X-User-Email", email)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid registration")
		return
	}

	username := in.Username
	if username == "" {
		username, _, _ = strings.Cut(in.Email, "@")
	}
	u, err := newUser(username, in.Email, in.Password)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not create account")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[in.Email]; exists {
		s.mu.Unlock()
		writeMessage(w, http.StatusConflict, "Email already registered")
		return
	}
	s.users[in.Email] = u
	token := s.issueLocked(u)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"token": token, "username": u.Username, "email": u.Email})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid login")
		return
	}

	s.mu.Lock()
	u, ok := s.users[in.Email]
	if !ok || !u.checkPassword(in.Password) {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	u.LastLogin = time.Now()
	token := s.issueLocked(u)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "username": u.Username, "email": u.Email})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.users[r.Header.Get("X-User-Email")]
	s.mu.Unlock()
	if u == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, fitness.Profile{Username: u.Username, Email: u.Email})
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	goals := append([]fitness.Goal{}, s.goals[r.Header.Get("X-User-Email")]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var g fitness.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil || g.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid goal")
		return
	}
	email := r.Header.Get("X-User-Email")

	s.mu.Lock()
	s.nextGoal++
	g.ID = s.nextGoal
	s.goals[email] = append(s.goals[email], g)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid goal id")
		return
	}
	var g fitness.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid goal")
		return
	}
	email := r.Header.Get("X-User-Email")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.goals[email] {
		if existing.ID == id {
			g.ID = id
			s.goals[email][i] = g
			writeJSON(w, http.StatusOK, g)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Goal not found")
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.stats[r.Header.Get("X-User-Email")]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

// issueLocked signs a token carrying the profile claims. s.mu must be held.
func (s *Server) issueLocked(u *user) string {
	if u == nil {
		return ""
	}
	token, err := s.creator.create(u)
	if err != nil {
		return ""
	}
	s.tokens[token] = u.Email
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
