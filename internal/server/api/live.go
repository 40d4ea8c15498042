package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/swingcoach/internal/analyzer"
	"github.com/ayusman/swingcoach/internal/pose"
	"github.com/ayusman/swingcoach/internal/session"
)

// Live is the running session as seen by the HTTP API.
type Live interface {
	Submit(*pose.Frame) error
	Reset()
	Latest() analyzer.Result
	Stats() session.Stats
	SetPaused(bool)
	IsPaused() bool
}

// LiveHandler serves the live session endpoints:
// POST /api/frames, GET /api/session, POST /api/session/reset and POST /api/session/pause.
type LiveHandler struct {
	live Live
}

// NewLiveHandler creates a LiveHandler over the given session.
func NewLiveHandler(l Live) *LiveHandler {
	return &LiveHandler{live: l}
}

type liveResponse struct {
	Latest analyzer.Result `json:"latest"`
	Stats  session.Stats   `json:"stats"`
	Paused bool            `json:"paused"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

// ServeHTTP routes to the live session operations.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch path {
	case "/api/frames":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.submit(w, r)
	case "/api/session":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.status(w)
	case "/api/session/reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.live.Reset()
		h.status(w)
	case "/api/session/pause":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req pauseRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		h.live.SetPaused(req.Paused)
		h.status(w)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// submit handles POST /api/frames with one pose.Frame as body.
func (h *LiveHandler) submit(w http.ResponseWriter, r *http.Request) {
	var frame pose.Frame
	if err := decodeJSON(w, r, &frame); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.live.Submit(&frame); err != nil {
		switch {
		case errors.Is(err, session.ErrPaused), errors.Is(err, session.ErrStopped), errors.Is(err, session.ErrStale):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to submit frame")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]uint64{"seq": frame.Seq})
}

func (h *LiveHandler) status(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, liveResponse{
		Latest: h.live.Latest(),
		Stats:  h.live.Stats(),
		Paused: h.live.IsPaused(),
	})
}
