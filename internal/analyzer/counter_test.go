package analyzer

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/swingcoach/internal/pose"
)

// Hip/knee angle pairs for the common swing positions.
var (
	standing  = [2]float64{170, 175}
	hinged    = [2]float64{120, 160}
	squatting = [2]float64{125, 100}
	lockout   = [2]float64{170, 175}
)

func feed(c *Counter, angles ...[2]float64) []Result {
	frames := pose.SwingSequence(c.Config().Side, angles)
	results := make([]Result, len(frames))
	for i := range frames {
		results[i] = c.Update(&frames[i])
	}
	return results
}

func phases(results []Result) []Phase {
	out := make([]Phase, len(results))
	for i, r := range results {
		out[i] = r.Phase
	}
	return out
}

func TestCounter_InitialState(t *testing.T) {
	c := NewCounter(DefaultConfig())

	s := c.State()
	if s.Phase != PhaseStanding {
		t.Errorf("expected initial phase %s, got %s", PhaseStanding, s.Phase)
	}
	if s.Reps != 0 {
		t.Errorf("expected 0 reps, got %d", s.Reps)
	}
	if s.Feedback != FeedbackStart {
		t.Errorf("expected feedback %q, got %q", FeedbackStart, s.Feedback)
	}
}

func TestCounter_CleanRep(t *testing.T) {
	c := NewCounter(DefaultConfig())

	results := feed(c, standing, hinged, lockout)

	want := []Phase{PhaseStanding, PhaseDown, PhaseUp}
	if diff := cmp.Diff(want, phases(results)); diff != "" {
		t.Errorf("phase sequence mismatch (-want +got):\n%s", diff)
	}

	last := results[len(results)-1]
	if last.Reps != 1 {
		t.Errorf("expected 1 rep, got %d", last.Reps)
	}
	if last.FormBad {
		t.Error("expected formBad=false for a clean rep")
	}
	if last.Feedback != FeedbackGoodRep {
		t.Errorf("expected feedback %q, got %q", FeedbackGoodRep, last.Feedback)
	}
	if !last.RepCompleted || !last.RepValid {
		t.Errorf("expected a completed valid rep, got completed=%v valid=%v", last.RepCompleted, last.RepValid)
	}
	if last.BottomKneeAngle < 159 || last.BottomKneeAngle > 160 {
		t.Errorf("expected bottom knee angle ~160, got %d", last.BottomKneeAngle)
	}
	if last.BottomHipAngle < 119 || last.BottomHipAngle > 120 {
		t.Errorf("expected bottom hip angle ~120, got %d", last.BottomHipAngle)
	}
}

func TestCounter_BadForm(t *testing.T) {
	c := NewCounter(DefaultConfig())

	results := feed(c, standing, hinged, squatting, lockout)

	squat := results[2]
	if squat.Phase != PhaseDown {
		t.Errorf("expected to stay in %s while squatting, got %s", PhaseDown, squat.Phase)
	}
	if !squat.FormBad {
		t.Error("expected formBad=true after knee dips below threshold")
	}
	if squat.Feedback != FeedbackSquat {
		t.Errorf("expected feedback %q, got %q", FeedbackSquat, squat.Feedback)
	}

	top := results[3]
	if top.Phase != PhaseUp {
		t.Errorf("expected phase %s, got %s", PhaseUp, top.Phase)
	}
	if top.Reps != 0 {
		t.Errorf("expected rep not counted, got %d reps", top.Reps)
	}
	if top.Feedback != FeedbackInvalid {
		t.Errorf("expected feedback %q, got %q", FeedbackInvalid, top.Feedback)
	}
	if !top.RepCompleted || top.RepValid {
		t.Errorf("expected a completed invalid rep, got completed=%v valid=%v", top.RepCompleted, top.RepValid)
	}
	if !top.FormBad {
		t.Error("formBad should persist until the next hinge")
	}
}

func TestCounter_RearmAfterInvalidRep(t *testing.T) {
	c := NewCounter(DefaultConfig())

	feed(c, standing, hinged, squatting, lockout)
	results := feed(c, hinged, lockout)

	if results[0].FormBad {
		t.Error("formBad should clear when re-entering the hinge")
	}
	last := results[1]
	if last.Reps != 1 {
		t.Errorf("expected 1 rep after clean cycle, got %d", last.Reps)
	}
	if last.Feedback != FeedbackGoodRep {
		t.Errorf("expected feedback %q, got %q", FeedbackGoodRep, last.Feedback)
	}
}

func TestCounter_IdempotentStanding(t *testing.T) {
	c := NewCounter(DefaultConfig())

	first := feed(c, standing)[0]
	second := feed(c, standing)[0]

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated standing frame changed the snapshot (-first +second):\n%s", diff)
	}
	if second.Phase != PhaseStanding || second.Reps != 0 {
		t.Errorf("expected standing with 0 reps, got %s with %d", second.Phase, second.Reps)
	}
}

func TestCounter_HoldingAtTopDoesNotRecount(t *testing.T) {
	c := NewCounter(DefaultConfig())

	results := feed(c, standing, hinged, lockout, lockout, lockout, lockout)

	for i, r := range results[2:] {
		if r.Reps != 1 {
			t.Errorf("frame %d: expected 1 rep, got %d", i+2, r.Reps)
		}
	}
	if results[3].RepCompleted {
		t.Error("rep_completed should only be set on the transition frame")
	}
}

func TestCounter_KneeAndHipOnSameFrame(t *testing.T) {
	c := NewCounter(DefaultConfig())

	// Hip extends past the top while the knee is still bent: the squat check
	// runs first, so the rep is invalidated on the same frame.
	results := feed(c, standing, hinged, [2]float64{170, 130})

	last := results[2]
	if last.Phase != PhaseUp {
		t.Errorf("expected phase %s, got %s", PhaseUp, last.Phase)
	}
	if last.Reps != 0 {
		t.Errorf("expected rep not counted, got %d", last.Reps)
	}
	if last.Feedback != FeedbackInvalid {
		t.Errorf("expected feedback %q, got %q", FeedbackInvalid, last.Feedback)
	}
}

func TestCounter_KneeIgnoredOutsideDown(t *testing.T) {
	c := NewCounter(DefaultConfig())

	results := feed(c, [2]float64{170, 100})

	if results[0].FormBad {
		t.Error("knee angle should not be judged while standing")
	}
	if results[0].Feedback != FeedbackStart {
		t.Errorf("expected feedback %q, got %q", FeedbackStart, results[0].Feedback)
	}
}

func TestCounter_SkipsUnusableFrames(t *testing.T) {
	t.Run("low confidence returns prior snapshot", func(t *testing.T) {
		c := NewCounter(DefaultConfig())
		prior := feed(c, standing, hinged)[1]

		f := pose.SwingFrame(pose.SideLeft, lockout[0], lockout[1])
		f.Landmarks[pose.LeftKnee].Visibility = 0.1
		got := c.Update(&f)

		want := prior
		want.Usable = false
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("skipped frame snapshot mismatch (-want +got):\n%s", diff)
		}
		if c.State().Phase != PhaseDown {
			t.Errorf("state should not advance on a skipped frame, got %s", c.State().Phase)
		}
	})

	t.Run("missing landmarks return prior snapshot", func(t *testing.T) {
		c := NewCounter(DefaultConfig())
		prior := feed(c, standing)[0]

		got := c.Update(&pose.Frame{Landmarks: make([]pose.Landmark, 12)})

		if diff := cmp.Diff(prior, got, cmpopts.IgnoreFields(Result{}, "Usable")); diff != "" {
			t.Errorf("skipped frame snapshot mismatch (-want +got):\n%s", diff)
		}
		if got.Usable {
			t.Error("expected usable=false")
		}
	})

	t.Run("skip before any frame returns initial snapshot", func(t *testing.T) {
		c := NewCounter(DefaultConfig())

		got := c.Update(nil)

		if got.Phase != PhaseStanding || got.Feedback != FeedbackStart || got.Usable {
			t.Errorf("unexpected snapshot: %+v", got)
		}
	})

	t.Run("zero visibility floor trusts coordinates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinVisibility = 0
		c := NewCounter(cfg)
		feed(c, standing, hinged)

		f := pose.SwingFrame(pose.SideLeft, lockout[0], lockout[1])
		f.Landmarks[pose.LeftKnee].Visibility = 0.1
		got := c.Update(&f)

		if got.Reps != 1 || !got.Usable {
			t.Errorf("expected the frame to be used, got %+v", got)
		}
	})
}

func TestCounter_DegenerateFrameDoesNotAdvance(t *testing.T) {
	c := NewCounter(DefaultConfig())

	p := pose.Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	got := c.UpdateJoints(pose.Joints{Shoulder: p, Hip: p, Knee: p, Ankle: p})

	if got.Phase != PhaseStanding {
		t.Errorf("expected phase %s, got %s", PhaseStanding, got.Phase)
	}
	if got.HipAngle != 0 || got.KneeAngle != 0 {
		t.Errorf("expected zero angles, got hip=%d knee=%d", got.HipAngle, got.KneeAngle)
	}
}

func TestCounter_RightSide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Side = pose.SideRight
	c := NewCounter(cfg)

	results := feed(c, standing, hinged, lockout)

	if results[2].Reps != 1 {
		t.Errorf("expected 1 rep on the right side, got %d", results[2].Reps)
	}
}

func TestCounter_CustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.MinHipAngleBottom = 110
	c := NewCounter(cfg)

	results := feed(c, standing, hinged)

	if results[1].Phase != PhaseStanding {
		t.Errorf("120 degree hip should not engage a 110 degree bottom, got %s", results[1].Phase)
	}
}

func TestCounter_Reset(t *testing.T) {
	c := NewCounter(DefaultConfig())
	feed(c, standing, hinged, lockout)

	c.Reset()

	if c.State().Reps != 0 || c.State().Phase != PhaseStanding {
		t.Errorf("expected fresh state after reset, got %+v", c.State())
	}
	if c.Last().Reps != 0 {
		t.Errorf("expected last snapshot to reset, got %d reps", c.Last().Reps)
	}
}

func TestCounter_RepMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewCounter(DefaultConfig())

	prev := c.Last()
	for i := 0; i < 5000; i++ {
		f := pose.SwingFrame(pose.SideLeft, 60+rng.Float64()*120, 60+rng.Float64()*120)
		if rng.Intn(10) == 0 {
			f.Landmarks[pose.LeftHip].Visibility = 0
		}
		r := c.Update(&f)

		if r.Reps < prev.Reps {
			t.Fatalf("frame %d: reps decreased from %d to %d", i, prev.Reps, r.Reps)
		}
		if r.Reps > prev.Reps+1 {
			t.Fatalf("frame %d: reps jumped from %d to %d", i, prev.Reps, r.Reps)
		}
		if r.Reps == prev.Reps+1 && !(prev.Phase == PhaseDown && r.Phase == PhaseUp) {
			t.Fatalf("frame %d: rep counted on %s -> %s", i, prev.Phase, r.Phase)
		}
		prev = r
	}
}

func TestStep_IsPure(t *testing.T) {
	f := pose.SwingFrame(pose.SideLeft, hinged[0], hinged[1])
	j, _ := f.Resolve(pose.SideLeft, 0)

	s := NewState()
	next1, r1 := Step(s, j, DefaultThresholds())
	next2, r2 := Step(s, j, DefaultThresholds())

	if s.Phase != PhaseStanding {
		t.Errorf("Step mutated its input state: %+v", s)
	}
	if diff := cmp.Diff(next1, next2); diff != "" {
		t.Errorf("Step is not deterministic (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(r1, r2); diff != "" {
		t.Errorf("Step results differ (-first +second):\n%s", diff)
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Thresholds)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Thresholds) {}},
		{name: "zero knee", mutate: func(th *Thresholds) { th.MinKneeAngleHinge = 0 }, wantErr: true},
		{name: "top at 180", mutate: func(th *Thresholds) { th.MaxHipAngleTop = 180 }, wantErr: true},
		{name: "bottom above top", mutate: func(th *Thresholds) { th.MinHipAngleBottom = 170 }, wantErr: true},
		{name: "bottom equals top", mutate: func(th *Thresholds) { th.MinHipAngleBottom = 165 }, wantErr: true},
		{name: "negative bottom", mutate: func(th *Thresholds) { th.MinHipAngleBottom = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			err := th.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
