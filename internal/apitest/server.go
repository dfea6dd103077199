// Package apitest runs a fake oboe-vintage API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// Server is an httptest server routing with gorilla/mux that counts hits
// per route.
type Server struct {
	*httptest.Server
	Router *mux.Router

	mu   sync.Mutex
	hits map[string]int
}

// NewServer starts a server and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Router: mux.NewRouter(),
		hits:   make(map[string]int),
	}
	s.Router.Use(s.count)
	s.Server = httptest.NewServer(s.Router)
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for method and path. path may use mux templates.
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.Router.HandleFunc(path, h).Methods(method)
}

// Hits returns how many requests reached the route registered for method
// and path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		template := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				template = tpl
			}
		}

		s.mu.Lock()
		s.hits[r.Method+" "+template]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Envelope writes {"data": data, "status": status}.
func Envelope(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"data": data, "status": status})
}

// EnvelopeMessage writes {"data": data, "message": message, "status": status}.
func EnvelopeMessage(w http.ResponseWriter, status int, data any, message string) {
	JSON(w, status, map[string]any{"data": data, "message": message, "status": status})
}

// Error writes {"message": message, "status": status, "code": code}.
func Error(w http.ResponseWriter, status int, message, code string) {
	body := map[string]any{"message": message, "status": status}
	if code != "" {
		body["code"] = code
	}
	JSON(w, status, body)
}
