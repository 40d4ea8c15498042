// Package detector provides body pose detection for swing analysis.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/swingcoach/internal/pose"
)

// Detector defines the interface for pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the body landmarks of the subject.
	// Returns a nil frame if no person is detected.
	Detect(frame *gocv.Mat) (*pose.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinDetectionConf is the minimum person detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum landmark tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the pose model variant (0, 1 or 2).
	ModelComplexity int

	// SmoothLandmarks enables temporal filtering across frames.
	SmoothLandmarks bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
		ModelComplexity:  1,
		SmoothLandmarks:  true,
	}
}
