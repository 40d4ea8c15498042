// Package main provides a hook that speaks the rep count out loud.
// It uses say on macOS and espeak elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the hook executor.
type Request struct {
	Event     string          `json:"event"`
	Reps      int             `json:"reps"`
	Feedback  string          `json:"feedback"`
	HipAngle  int             `json:"hip_angle"`
	KneeAngle int             `json:"knee_angle"`
	Config    json.RawMessage `json:"config"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// announceConfig is read from the config block of hook.json.
type announceConfig struct {
	Voice string `json:"voice"`
	Every int    `json:"every"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg announceConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	text, ok := phrase(req, cfg)
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}
	if text == "" {
		writeSuccessResponse()
		return
	}

	if err := speak(text, cfg.Voice); err != nil {
		writeErrorResponse(fmt.Sprintf("speak failed: %v", err))
		return
	}

	writeSuccessResponse()
}

// phrase returns what to say for an event. An empty phrase means stay quiet.
func phrase(req Request, cfg announceConfig) (string, bool) {
	switch req.Event {
	case "rep":
		if cfg.Every > 1 && req.Reps%cfg.Every != 0 {
			return "", true
		}
		return strconv.Itoa(req.Reps), true
	case "invalid_rep":
		return "Invalid. Hinge, don't squat.", true
	case "form_warning":
		return "Too much squat", true
	case "reset":
		return "Reset", true
	}
	return "", false
}

// speak runs the platform speech command.
func speak(text, voice string) error {
	bin := "espeak"
	if runtime.GOOS == "darwin" {
		bin = "say"
	}

	args := []string{text}
	if voice != "" {
		args = append([]string{"-v", voice}, args...)
	}
	cmd := exec.Command(bin, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
