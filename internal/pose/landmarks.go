// Package pose provides body landmark types and frame validation for swing analysis.
package pose

import (
	"errors"
	"fmt"
	"math"
)

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
	NumLandmarks  = 33
)

var (
	// ErrMissingLandmark is returned when a required joint is absent from a frame.
	ErrMissingLandmark = errors.New("missing landmark")
	// ErrLowConfidence is returned when a required joint is below the visibility floor.
	ErrLowConfidence = errors.New("low confidence landmark")
)

// Landmark is a single tracked body joint in normalized image coordinates.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame holds every landmark detected for one captured video frame.
type Frame struct {
	Landmarks []Landmark `json:"landmarks"`
	Seq       uint64     `json:"seq"`
	Timestamp int64      `json:"timestamp"` // milliseconds
}

// Joint names one of the four landmarks the swing analysis reads.
type Joint int

const (
	Shoulder Joint = iota
	Hip
	Knee
	Ankle
)

func (j Joint) String() string {
	switch j {
	case Shoulder:
		return "shoulder"
	case Hip:
		return "hip"
	case Knee:
		return "knee"
	case Ankle:
		return "ankle"
	}
	return fmt.Sprintf("joint(%d)", int(j))
}

// Side selects which lateral side of the body is tracked.
// The subject stands sideways, so only one side faces the camera.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	// SideAuto picks whichever side has the higher mean visibility in each frame.
	SideAuto Side = "auto"
)

// ParseSide converts a string to a Side. Empty input means SideLeft.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case "", SideLeft:
		return SideLeft, nil
	case SideRight:
		return SideRight, nil
	case SideAuto:
		return SideAuto, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// indices returns the landmark indices for shoulder, hip, knee and ankle.
func (s Side) indices() [4]int {
	if s == SideRight {
		return [4]int{RightShoulder, RightHip, RightKnee, RightAnkle}
	}
	return [4]int{LeftShoulder, LeftHip, LeftKnee, LeftAnkle}
}

// Joints are the required landmarks resolved from a frame.
type Joints struct {
	Shoulder Landmark
	Hip      Landmark
	Knee     Landmark
	Ankle    Landmark
}

// Resolve extracts the required joints for the given side.
// Joints whose visibility is below minVisibility make the frame unusable;
// pass 0 to only reject absent landmarks.
func (f *Frame) Resolve(side Side, minVisibility float64) (Joints, error) {
	if f == nil {
		return Joints{}, ErrMissingLandmark
	}

	if side == SideAuto {
		side = f.bestSide()
	}

	var pts [4]Landmark
	for j, idx := range side.indices() {
		if idx >= len(f.Landmarks) {
			return Joints{}, fmt.Errorf("%s %s: %w", side, Joint(j), ErrMissingLandmark)
		}
		lm := f.Landmarks[idx]
		if !finite(lm.X) || !finite(lm.Y) {
			return Joints{}, fmt.Errorf("%s %s: %w", side, Joint(j), ErrMissingLandmark)
		}
		if lm.Visibility < minVisibility {
			return Joints{}, fmt.Errorf("%s %s visibility %.2f: %w", side, Joint(j), lm.Visibility, ErrLowConfidence)
		}
		pts[j] = lm
	}

	return Joints{
		Shoulder: pts[Shoulder],
		Hip:      pts[Hip],
		Knee:     pts[Knee],
		Ankle:    pts[Ankle],
	}, nil
}

// bestSide returns the side whose joints are more visible on average.
// Ties and incomplete frames fall back to the left side.
func (f *Frame) bestSide() Side {
	left := f.meanVisibility(SideLeft)
	right := f.meanVisibility(SideRight)
	if right > left {
		return SideRight
	}
	return SideLeft
}

func (f *Frame) meanVisibility(side Side) float64 {
	var sum float64
	for _, idx := range side.indices() {
		if idx >= len(f.Landmarks) {
			return -1
		}
		sum += f.Landmarks[idx].Visibility
	}
	return sum / 4
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
