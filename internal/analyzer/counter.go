// Package analyzer counts kettlebell swing repetitions and flags bad form
// from a stream of body landmark frames.
package analyzer

import (
	"fmt"
	"math"

	"github.com/ayusman/swingcoach/internal/pose"
)

// Phase is the position of the subject within the swing cycle.
type Phase string

const (
	PhaseStanding Phase = "standing"
	PhaseDown     Phase = "down"
	PhaseUp       Phase = "up"
)

// Feedback messages shown to the athlete.
const (
	FeedbackStart   = "Stand sideways to camera."
	FeedbackSquat   = "⚠ Too much Squat!"
	FeedbackGoodRep = "Good Rep!"
	FeedbackInvalid = "Invalid (Squatted)"
)

// Thresholds are the tunable joint angles, in degrees, that drive the state machine.
type Thresholds struct {
	// MinKneeAngleHinge: knee angles below this during the hinge count as squatting.
	MinKneeAngleHinge float64 `json:"min_knee_angle_hinge"`
	// MaxHipAngleTop: hip angles above this mean the hip is fully extended.
	MaxHipAngleTop float64 `json:"max_hip_angle_top"`
	// MinHipAngleBottom: hip angles below this mean the hinge is engaged.
	MinHipAngleBottom float64 `json:"min_hip_angle_bottom"`
}

// DefaultThresholds returns the hand-tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinKneeAngleHinge: 140,
		MaxHipAngleTop:    165,
		MinHipAngleBottom: 130,
	}
}

// Validate checks that every threshold is a real angle and that the hip
// thresholds leave a gap between bottom and top.
func (t Thresholds) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || v <= 0 || v >= 180 {
			return fmt.Errorf("%s must be between 0 and 180 degrees, got %v", name, v)
		}
		return nil
	}
	if err := check("min_knee_angle_hinge", t.MinKneeAngleHinge); err != nil {
		return err
	}
	if err := check("max_hip_angle_top", t.MaxHipAngleTop); err != nil {
		return err
	}
	if err := check("min_hip_angle_bottom", t.MinHipAngleBottom); err != nil {
		return err
	}
	if t.MinHipAngleBottom >= t.MaxHipAngleTop {
		return fmt.Errorf("min_hip_angle_bottom (%v) must be below max_hip_angle_top (%v)",
			t.MinHipAngleBottom, t.MaxHipAngleTop)
	}
	return nil
}

// State is the analyzer state carried from one frame to the next.
type State struct {
	Phase    Phase
	Reps     int
	Feedback string
	FormBad  bool

	// Deepest hip and lowest knee angle seen during the current Down dwell.
	DwellHip  float64
	DwellKnee float64
}

// NewState returns the state at the start of a session.
func NewState() State {
	return State{
		Phase:    PhaseStanding,
		Feedback: FeedbackStart,
	}
}

// Result is the snapshot produced for every processed frame.
type Result struct {
	Reps      int    `json:"reps"`
	Phase     Phase  `json:"phase"`
	Feedback  string `json:"feedback"`
	HipAngle  int    `json:"hip_angle"`
	KneeAngle int    `json:"knee_angle"`
	FormBad   bool   `json:"form_bad"`

	// Usable is false when the frame was skipped and this is the prior snapshot.
	Usable bool `json:"usable"`
	// RepCompleted is set on the frame where Down turned into Up.
	RepCompleted bool `json:"rep_completed"`
	RepValid     bool `json:"rep_valid"`
	// Bottom angles of the completed rep, only set when RepCompleted.
	BottomHipAngle  int `json:"bottom_hip_angle,omitempty"`
	BottomKneeAngle int `json:"bottom_knee_angle,omitempty"`
}

// Step advances the state machine by one frame. It is a pure function:
// the returned State replaces the one passed in.
//
// A degenerate hip or knee reading leaves the state untouched for that frame.
func Step(s State, j pose.Joints, th Thresholds) (State, Result) {
	hip, hipOK := jointAngle(j.Shoulder, j.Hip, j.Knee)
	knee, kneeOK := jointAngle(j.Hip, j.Knee, j.Ankle)

	var res Result
	if hipOK && kneeOK {
		switch s.Phase {
		case PhaseStanding, PhaseUp:
			if hip < th.MinHipAngleBottom {
				s.Phase = PhaseDown
				s.FormBad = false
				s.DwellHip = hip
				s.DwellKnee = knee
			}

		case PhaseDown:
			s.DwellHip = math.Min(s.DwellHip, hip)
			s.DwellKnee = math.Min(s.DwellKnee, knee)

			if knee < th.MinKneeAngleHinge {
				s.Feedback = FeedbackSquat
				s.FormBad = true
			}

			if hip > th.MaxHipAngleTop {
				s.Phase = PhaseUp
				res.RepCompleted = true
				res.BottomHipAngle = floorDeg(s.DwellHip)
				res.BottomKneeAngle = floorDeg(s.DwellKnee)
				if !s.FormBad {
					s.Reps++
					s.Feedback = FeedbackGoodRep
					res.RepValid = true
				} else {
					s.Feedback = FeedbackInvalid
				}
			}
		}
	}

	res.Reps = s.Reps
	res.Phase = s.Phase
	res.Feedback = s.Feedback
	res.FormBad = s.FormBad
	res.HipAngle = floorDeg(hip)
	res.KneeAngle = floorDeg(knee)
	res.Usable = true

	return s, res
}

func floorDeg(v float64) int {
	return int(math.Floor(v))
}

// Config holds the options for a Counter.
type Config struct {
	Thresholds Thresholds
	Side       pose.Side
	// MinVisibility is the confidence floor for required joints; 0 disables the check.
	MinVisibility float64
}

// DefaultConfig returns a Config with the default thresholds, the left side
// and a visibility floor matching MediaPipe's tracking confidence.
func DefaultConfig() Config {
	return Config{
		Thresholds:    DefaultThresholds(),
		Side:          pose.SideLeft,
		MinVisibility: 0.5,
	}
}

// Counter owns the analyzer state for one session.
// It is not safe for concurrent use; feed it from a single goroutine.
type Counter struct {
	config Config
	state  State
	last   Result
}

// NewCounter creates a Counter in the Standing phase with zero reps.
func NewCounter(config Config) *Counter {
	c := &Counter{config: config}
	c.Reset()
	return c
}

// Update resolves the required joints from the frame and advances the state machine.
// Frames with missing or low-confidence joints leave the state untouched and
// return the previous snapshot with Usable set to false.
func (c *Counter) Update(frame *pose.Frame) Result {
	joints, err := frame.Resolve(c.config.Side, c.config.MinVisibility)
	if err != nil {
		skipped := c.last
		skipped.Usable = false
		skipped.RepCompleted = false
		skipped.RepValid = false
		skipped.BottomHipAngle = 0
		skipped.BottomKneeAngle = 0
		return skipped
	}
	return c.UpdateJoints(joints)
}

// UpdateJoints advances the state machine with already resolved joints.
func (c *Counter) UpdateJoints(j pose.Joints) Result {
	c.state, c.last = Step(c.state, j, c.config.Thresholds)
	return c.last
}

// State returns a copy of the current state.
func (c *Counter) State() State {
	return c.state
}

// Last returns the most recent snapshot.
func (c *Counter) Last() Result {
	return c.last
}

// Config returns the counter configuration.
func (c *Counter) Config() Config {
	return c.config
}

// Reset starts a new session: Standing phase, zero reps.
func (c *Counter) Reset() {
	c.state = NewState()
	c.last = Result{
		Phase:    c.state.Phase,
		Feedback: c.state.Feedback,
	}
}
