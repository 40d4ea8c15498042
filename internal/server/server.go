// Package server provides the HTTP server for the swing coach.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/swingcoach/internal/server/api"
	"github.com/ayusman/swingcoach/internal/session"
	"github.com/ayusman/swingcoach/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   *session.Session
}

// Server represents the HTTP server for the swing coach.
type Server struct {
	config      Config
	mux         *http.ServeMux
	start       time.Time
	feed        *LiveFeed
	unsubscribe func()
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register history API handler if Store is configured
	if s.config.Store != nil {
		sessionsHandler := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionsHandler)
		s.mux.Handle("/api/sessions/", sessionsHandler)
	}

	// Thresholds are served with or without a live session
	var thresholds *api.ThresholdsHandler
	if s.config.Session != nil {
		thresholds = api.NewThresholdsHandler(s.config.Store, s.config.Session)
	} else {
		thresholds = api.NewThresholdsHandler(s.config.Store, nil)
	}
	s.mux.Handle("/api/thresholds", thresholds)
	s.mux.Handle("/api/analyze", api.NewAnalyzeHandler(thresholds))

	// Register live endpoints if a Session is configured
	if s.config.Session != nil {
		liveHandler := api.NewLiveHandler(s.config.Session)
		s.mux.Handle("/api/frames", liveHandler)
		s.mux.Handle("/api/session", liveHandler)
		s.mux.Handle("/api/session/", liveHandler)

		s.feed = NewLiveFeed()
		s.unsubscribe = s.config.Session.Subscribe(s.feed.Publish)
		s.mux.Handle("/api/live", s.feed)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close detaches the live feed from the session.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Session != nil {
		response["session"] = s.config.Session.Stats()
	}
	if s.feed != nil {
		response["clients"] = s.feed.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
