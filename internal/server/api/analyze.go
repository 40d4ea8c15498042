package api

import (
	"net/http"

	"github.com/ayusman/swingcoach/internal/analyzer"
	"github.com/ayusman/swingcoach/internal/config"
	"github.com/ayusman/swingcoach/internal/pose"
)

// TuningSource supplies the tuning currently in effect.
type TuningSource interface {
	Tuning() *config.TuningConfig
}

// AnalyzeHandler replays recorded landmark frames through a fresh counter.
// It never touches the live session.
type AnalyzeHandler struct {
	tuning TuningSource
}

// NewAnalyzeHandler creates an AnalyzeHandler. A nil source means the default tuning.
func NewAnalyzeHandler(src TuningSource) *AnalyzeHandler {
	return &AnalyzeHandler{tuning: src}
}

type analyzeRequest struct {
	Side   string       `json:"side"`
	Frames []pose.Frame `json:"frames"`
}

type analyzeResponse struct {
	Reps        int               `json:"reps"`
	InvalidReps int               `json:"invalid_reps"`
	Skipped     int               `json:"skipped"`
	Results     []analyzer.Result `json:"results"`
}

// ServeHTTP handles POST /api/analyze.
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	tuning := config.DefaultTuningConfig()
	if h.tuning != nil {
		tuning = h.tuning.Tuning()
	}
	cfg := tuning.AnalyzerConfig()

	if req.Side != "" {
		side, err := pose.ParseSide(req.Side)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg.Side = side
	}

	writeJSON(w, http.StatusOK, replay(analyzer.NewCounter(cfg), req.Frames))
}

func replay(c *analyzer.Counter, frames []pose.Frame) analyzeResponse {
	resp := analyzeResponse{Results: make([]analyzer.Result, 0, len(frames))}
	for i := range frames {
		res := c.Update(&frames[i])
		if !res.Usable {
			resp.Skipped++
		}
		if res.RepCompleted && !res.RepValid {
			resp.InvalidReps++
		}
		resp.Results = append(resp.Results, res)
	}
	resp.Reps = c.Last().Reps
	return resp
}
