// Package hook runs external executables in response to rep events, such as
// announcing the count out loud or logging to another tool.
package hook

import "encoding/json"

// Event names a moment in a session that hooks can subscribe to.
type Event string

const (
	// EventRep fires when a valid rep is counted.
	EventRep Event = "rep"
	// EventInvalidRep fires when a rep completes with bad form.
	EventInvalidRep Event = "invalid_rep"
	// EventFormWarning fires the first time a rep is flagged as bad form.
	EventFormWarning Event = "form_warning"
	// EventReset fires when the session starts over.
	EventReset Event = "reset"
)

// manifestName is the file describing a hook inside its directory.
const manifestName = "hook.json"

// Manifest describes a hook's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []Event         `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the hook subscribes to ev.
func (m Manifest) Handles(ev Event) bool {
	for _, e := range m.Events {
		if e == ev {
			return true
		}
	}
	return false
}

// Request is written as JSON to the hook's stdin.
type Request struct {
	Event     Event           `json:"event"`
	Reps      int             `json:"reps"`
	Feedback  string          `json:"feedback"`
	HipAngle  int             `json:"hip_angle"`
	KneeAngle int             `json:"knee_angle"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read as JSON from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
