package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ayusman/swingcoach/internal/config"
	"github.com/ayusman/swingcoach/internal/store"
)

// TuningTarget receives tuning updates.
type TuningTarget interface {
	TuningSource
	SetTuning(*config.TuningConfig)
}

// ThresholdsHandler reads and updates the analyzer tuning.
// Updates are validated, persisted in the settings table and applied to the live session.
type ThresholdsHandler struct {
	store  *store.Store
	target TuningTarget

	mu     sync.Mutex
	tuning *config.TuningConfig
}

// NewThresholdsHandler creates a ThresholdsHandler. Both arguments may be nil;
// without a target the handler keeps the tuning itself.
func NewThresholdsHandler(s *store.Store, target TuningTarget) *ThresholdsHandler {
	return &ThresholdsHandler{
		store:  s,
		target: target,
		tuning: config.DefaultTuningConfig(),
	}
}

// Tuning returns the tuning currently in effect with every field filled in.
func (h *ThresholdsHandler) Tuning() *config.TuningConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current()
}

func (h *ThresholdsHandler) current() *config.TuningConfig {
	t := h.tuning
	if h.target != nil {
		t = h.target.Tuning()
	}
	return config.DefaultTuningConfig().Merge(t)
}

// ServeHTTP handles GET and PUT /api/thresholds.
func (h *ThresholdsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Tuning())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update merges a partial tuning onto the current one.
func (h *ThresholdsHandler) update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	override := config.EmptyTuningConfig()
	if err := json.Unmarshal(data, override); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	merged := h.current().Merge(override)
	if err := merged.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		encoded, err := json.Marshal(merged)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode tuning")
			return
		}
		if err := h.store.Settings().Set(store.SettingThresholds, string(encoded)); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save tuning")
			return
		}
	}

	if h.target != nil {
		h.target.SetTuning(merged)
	} else {
		h.tuning = merged
	}

	writeJSON(w, http.StatusOK, merged)
}

// LoadTuning applies the tuning saved by a previous PUT /api/thresholds on top of base.
// Without a saved tuning base is returned as is.
func LoadTuning(s *store.Store, base *config.TuningConfig) (*config.TuningConfig, error) {
	if s == nil {
		return base, nil
	}

	saved, err := s.Settings().Get(store.SettingThresholds)
	if errors.Is(err, store.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return nil, err
	}

	override, err := config.ParseTuningConfig([]byte(saved))
	if err != nil {
		return nil, fmt.Errorf("saved tuning: %w", err)
	}

	merged := base.Merge(override)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("saved tuning: %w", err)
	}
	return merged, nil
}
