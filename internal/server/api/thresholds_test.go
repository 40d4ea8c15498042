package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/swingcoach/internal/analyzer"
	"github.com/ayusman/swingcoach/internal/config"
	"github.com/ayusman/swingcoach/internal/store"
)

// recordingTarget remembers the last tuning it was given.
type recordingTarget struct {
	mu     sync.Mutex
	tuning *config.TuningConfig
	sets   int
}

func (r *recordingTarget) Tuning() *config.TuningConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tuning
}

func (r *recordingTarget) SetTuning(t *config.TuningConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tuning = t
	r.sets++
}

func putThresholds(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/thresholds", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestThresholdsHandler_Get(t *testing.T) {
	handler := NewThresholdsHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/thresholds", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	got, err := config.ParseTuningConfig(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("response is not a valid tuning: %v", err)
	}
	if diff := cmp.Diff(config.DefaultTuningConfig(), got); diff != "" {
		t.Errorf("GET should return the full defaults (-want +got):\n%s", diff)
	}
}

func TestThresholdsHandler_Put(t *testing.T) {
	s := newTestStore(t)
	target := &recordingTarget{tuning: config.DefaultTuningConfig()}
	handler := NewThresholdsHandler(s, target)

	rec := putThresholds(handler, `{"max_hip_angle_top": 160, "side": "right"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	t.Run("applied to the live session", func(t *testing.T) {
		if target.sets != 1 {
			t.Fatalf("expected 1 SetTuning call, got %d", target.sets)
		}
		want := analyzer.Thresholds{MinKneeAngleHinge: 140, MaxHipAngleTop: 160, MinHipAngleBottom: 130}
		if diff := cmp.Diff(want, target.Tuning().Thresholds()); diff != "" {
			t.Errorf("thresholds mismatch (-want +got):\n%s", diff)
		}
		if target.Tuning().GetSide() != "right" {
			t.Errorf("expected side right, got %s", target.Tuning().GetSide())
		}
	})

	t.Run("persisted in settings", func(t *testing.T) {
		loaded, err := LoadTuning(s, config.DefaultTuningConfig())
		if err != nil {
			t.Fatalf("LoadTuning() error = %v", err)
		}
		if loaded.Thresholds().MaxHipAngleTop != 160 {
			t.Errorf("expected persisted top 160, got %f", loaded.Thresholds().MaxHipAngleTop)
		}
	})

	t.Run("later updates build on earlier ones", func(t *testing.T) {
		rec := putThresholds(handler, `{"min_knee_angle_hinge": 150}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		th := target.Tuning().Thresholds()
		if th.MinKneeAngleHinge != 150 || th.MaxHipAngleTop != 160 {
			t.Errorf("expected knee 150 and top 160, got %+v", th)
		}
	})
}

func TestThresholdsHandler_PutWithoutTarget(t *testing.T) {
	handler := NewThresholdsHandler(nil, nil)

	if rec := putThresholds(handler, `{"min_hip_angle_bottom": 120}`); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := handler.Tuning().Thresholds().MinHipAngleBottom; got != 120 {
		t.Errorf("expected handler to keep bottom 120, got %f", got)
	}
}

func TestThresholdsHandler_PutRejected(t *testing.T) {
	s := newTestStore(t)
	target := &recordingTarget{tuning: config.DefaultTuningConfig()}
	handler := NewThresholdsHandler(s, target)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: `{"side": `, want: "Invalid JSON"},
		{name: "inverted hip thresholds", body: `{"min_hip_angle_bottom": 170}`, want: "min_hip_angle_bottom"},
		{name: "unknown side", body: `{"side": "front"}`, want: "front"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := putThresholds(handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			var resp errorResponse
			json.NewDecoder(rec.Body).Decode(&resp)
			if !strings.Contains(resp.Error, tt.want) {
				t.Errorf("expected error mentioning %q, got %q", tt.want, resp.Error)
			}
		})
	}

	if target.sets != 0 {
		t.Errorf("rejected updates must not reach the session, got %d calls", target.sets)
	}
	if _, err := s.Settings().Get(store.SettingThresholds); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rejected updates must not be persisted, got %v", err)
	}
}

func TestLoadTuning(t *testing.T) {
	t.Run("nil store keeps base", func(t *testing.T) {
		base := config.DefaultTuningConfig()
		got, err := LoadTuning(nil, base)
		if err != nil || got != base {
			t.Errorf("LoadTuning(nil) = %v, %v; want base", got, err)
		}
	})

	t.Run("nothing saved keeps base", func(t *testing.T) {
		s := newTestStore(t)
		base := config.DefaultTuningConfig()
		got, err := LoadTuning(s, base)
		if err != nil || got != base {
			t.Errorf("LoadTuning() = %v, %v; want base", got, err)
		}
	})

	t.Run("corrupt setting is an error", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.Settings().Set(store.SettingThresholds, `{"capture_fps": 0}`); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if _, err := LoadTuning(s, config.DefaultTuningConfig()); err == nil {
			t.Error("expected error for invalid saved tuning")
		}
	})
}
