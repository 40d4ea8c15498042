// Package config loads the tunable parameters of the swing analyzer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/swingcoach/internal/analyzer"
	"github.com/ayusman/swingcoach/internal/pose"
)

// DefaultConfigPath is the path to the tuning defaults file, relative to the repo root.
const DefaultConfigPath = "config/tuning.defaults.json"

// Policies for frames whose required joints are not confidently tracked.
const (
	// MissingSkip drops frames with absent or low-visibility joints.
	MissingSkip = "skip"
	// MissingTrust only drops frames with absent joints and uses
	// low-visibility coordinates as they are.
	MissingTrust = "trust"
)

// TuningConfig holds the analyzer tuning. Nil fields fall back to the defaults,
// so a partial file only overrides what it names. The same JSON shape is
// served and accepted by the /api/thresholds endpoint.
type TuningConfig struct {
	MinKneeAngleHinge *float64 `json:"min_knee_angle_hinge,omitempty"`
	MaxHipAngleTop    *float64 `json:"max_hip_angle_top,omitempty"`
	MinHipAngleBottom *float64 `json:"min_hip_angle_bottom,omitempty"`

	MinVisibility    *float64 `json:"min_visibility,omitempty"`
	Side             *string  `json:"side,omitempty"`
	MissingLandmarks *string  `json:"missing_landmarks,omitempty"`

	CaptureFPS *int `json:"capture_fps,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its default.
func DefaultTuningConfig() *TuningConfig {
	th := analyzer.DefaultThresholds()
	return &TuningConfig{
		MinKneeAngleHinge: ptrFloat64(th.MinKneeAngleHinge),
		MaxHipAngleTop:    ptrFloat64(th.MaxHipAngleTop),
		MinHipAngleBottom: ptrFloat64(th.MinHipAngleBottom),
		MinVisibility:     ptrFloat64(0.5),
		Side:              ptrString(string(pose.SideLeft)),
		MissingLandmarks:  ptrString(MissingSkip),
		CaptureFPS:        ptrInt(15),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseTuningConfig(data)
}

// ParseTuningConfig decodes and validates tuning JSON.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set, and the thresholds they resolve to.
func (c *TuningConfig) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}

	if c.MinVisibility != nil {
		if *c.MinVisibility < 0 || *c.MinVisibility > 1 {
			return fmt.Errorf("min_visibility must be between 0 and 1, got %f", *c.MinVisibility)
		}
	}

	if c.Side != nil {
		if _, err := pose.ParseSide(*c.Side); err != nil {
			return err
		}
	}

	if c.MissingLandmarks != nil {
		switch *c.MissingLandmarks {
		case MissingSkip, MissingTrust:
		default:
			return fmt.Errorf("missing_landmarks must be %q or %q, got %q", MissingSkip, MissingTrust, *c.MissingLandmarks)
		}
	}

	if c.CaptureFPS != nil && (*c.CaptureFPS <= 0 || *c.CaptureFPS > 120) {
		return fmt.Errorf("capture_fps must be between 1 and 120, got %d", *c.CaptureFPS)
	}

	return nil
}

// Merge returns a copy of c with every field set in override applied on top.
func (c *TuningConfig) Merge(override *TuningConfig) *TuningConfig {
	merged := *c
	if override == nil {
		return &merged
	}
	if override.MinKneeAngleHinge != nil {
		merged.MinKneeAngleHinge = override.MinKneeAngleHinge
	}
	if override.MaxHipAngleTop != nil {
		merged.MaxHipAngleTop = override.MaxHipAngleTop
	}
	if override.MinHipAngleBottom != nil {
		merged.MinHipAngleBottom = override.MinHipAngleBottom
	}
	if override.MinVisibility != nil {
		merged.MinVisibility = override.MinVisibility
	}
	if override.Side != nil {
		merged.Side = override.Side
	}
	if override.MissingLandmarks != nil {
		merged.MissingLandmarks = override.MissingLandmarks
	}
	if override.CaptureFPS != nil {
		merged.CaptureFPS = override.CaptureFPS
	}
	return &merged
}

// Thresholds returns the state machine thresholds with defaults filled in.
func (c *TuningConfig) Thresholds() analyzer.Thresholds {
	th := analyzer.DefaultThresholds()
	if c.MinKneeAngleHinge != nil {
		th.MinKneeAngleHinge = *c.MinKneeAngleHinge
	}
	if c.MaxHipAngleTop != nil {
		th.MaxHipAngleTop = *c.MaxHipAngleTop
	}
	if c.MinHipAngleBottom != nil {
		th.MinHipAngleBottom = *c.MinHipAngleBottom
	}
	return th
}

// GetMinVisibility returns the min_visibility value or the default.
func (c *TuningConfig) GetMinVisibility() float64 {
	if c.MinVisibility == nil {
		return 0.5 // default
	}
	return *c.MinVisibility
}

// GetSide returns the tracked side or the default.
func (c *TuningConfig) GetSide() pose.Side {
	if c.Side == nil {
		return pose.SideLeft
	}
	side, err := pose.ParseSide(*c.Side)
	if err != nil {
		return pose.SideLeft
	}
	return side
}

// GetMissingLandmarks returns the missing landmark policy or the default.
func (c *TuningConfig) GetMissingLandmarks() string {
	if c.MissingLandmarks == nil || *c.MissingLandmarks == "" {
		return MissingSkip
	}
	return *c.MissingLandmarks
}

// GetCaptureFPS returns the capture_fps value or the default.
func (c *TuningConfig) GetCaptureFPS() int {
	if c.CaptureFPS == nil {
		return 15 // default
	}
	return *c.CaptureFPS
}

// AnalyzerConfig builds the Counter configuration described by this tuning.
func (c *TuningConfig) AnalyzerConfig() analyzer.Config {
	minVis := c.GetMinVisibility()
	if c.GetMissingLandmarks() == MissingTrust {
		minVis = 0
	}
	return analyzer.Config{
		Thresholds:    c.Thresholds(),
		Side:          c.GetSide(),
		MinVisibility: minVis,
	}
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}
