// Package tray provides a system tray presenter showing the live rep count.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/swingcoach/internal/analyzer"
)

// Tray represents the system tray application.
type Tray struct {
	onPause    func(paused bool)
	onReset    func()
	onSettings func()
	onQuit     func()
	paused     bool
	reps       int
	feedback   string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuReps     *systray.MenuItem
	menuFeedback *systray.MenuItem
	menuPause    *systray.MenuItem
}

// New creates a new Tray instance showing zero reps.
func New() *Tray {
	return &Tray{
		feedback: analyzer.FeedbackStart,
	}
}

// OnPause sets the callback function to be called when Pause/Resume is clicked.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnReset sets the callback function to be called when the reset menu item is clicked.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	t.mu.Lock()
	systray.SetTitle(repsTitle(t.reps))
	systray.SetTooltip("Swing Coach")

	t.menuReps = systray.AddMenuItem(repsTitle(t.reps), "Valid reps this session")
	t.menuReps.Disable()
	t.menuFeedback = systray.AddMenuItem(t.feedback, "Last form feedback")
	t.menuFeedback.Disable()
	systray.AddSeparator()

	t.menuPause = systray.AddMenuItem(pauseTitle(t.paused), "Pause or resume counting")
	menuReset := systray.AddMenuItem("Reset", "Start a new session")
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Swing Coach")
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-menuReset.ClickedCh:
				t.handleCallback(func() func() { return t.onReset })
			case <-menuSettings.ClickedCh:
				t.handleCallback(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.handleCallback(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handlePause flips the paused state and notifies the callback.
func (t *Tray) handlePause() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused

	if t.menuPause != nil {
		t.menuPause.SetTitle(pauseTitle(paused))
	}

	callback := t.onPause
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

func (t *Tray) handleCallback(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// Update shows the latest session result. It is safe to subscribe directly
// to a session and is a no-op for the menu until the tray is ready.
func (t *Tray) Update(res analyzer.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := res.Reps != t.reps
	t.reps = res.Reps
	feedbackChanged := res.Feedback != "" && res.Feedback != t.feedback
	if res.Feedback != "" {
		t.feedback = res.Feedback
	}

	if t.menuReps != nil && changed {
		title := repsTitle(t.reps)
		t.menuReps.SetTitle(title)
		systray.SetTitle(title)
	}
	if t.menuFeedback != nil && feedbackChanged {
		t.menuFeedback.SetTitle(t.feedback)
	}
}

// Reps returns the rep count last shown.
func (t *Tray) Reps() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reps
}

// Feedback returns the feedback last shown.
func (t *Tray) Feedback() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.feedback
}

// IsPaused returns the current paused state.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

func repsTitle(reps int) string {
	return fmt.Sprintf("Reps: %d", reps)
}

func pauseTitle(paused bool) string {
	if paused {
		return "▶ Resume"
	}
	return "❚❚ Pause"
}
