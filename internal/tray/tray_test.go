package tray

import (
	"testing"

	"github.com/ayusman/swingcoach/internal/analyzer"
)

func TestTray_Update(t *testing.T) {
	tr := New()

	if tr.Reps() != 0 || tr.Feedback() != analyzer.FeedbackStart {
		t.Fatalf("unexpected initial state: %d %q", tr.Reps(), tr.Feedback())
	}

	tr.Update(analyzer.Result{Reps: 3, Feedback: analyzer.FeedbackGoodRep})
	if tr.Reps() != 3 {
		t.Errorf("expected 3 reps, got %d", tr.Reps())
	}
	if tr.Feedback() != analyzer.FeedbackGoodRep {
		t.Errorf("expected feedback %q, got %q", analyzer.FeedbackGoodRep, tr.Feedback())
	}

	// An empty feedback keeps the previous message
	tr.Update(analyzer.Result{Reps: 3})
	if tr.Feedback() != analyzer.FeedbackGoodRep {
		t.Errorf("expected feedback to be kept, got %q", tr.Feedback())
	}
}

func TestTray_HandlePause(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnPause(func(paused bool) { got = append(got, paused) })

	tr.handlePause()
	tr.handlePause()

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("expected pause then resume, got %v", got)
	}
	if tr.IsPaused() {
		t.Error("expected tray to be resumed")
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{repsTitle(0), "Reps: 0"},
		{repsTitle(12), "Reps: 12"},
		{pauseTitle(false), "❚❚ Pause"},
		{pauseTitle(true), "▶ Resume"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
