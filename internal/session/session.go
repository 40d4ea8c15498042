// Package session runs a live rep counting session: frames flow from a camera
// or remote producers through a single-slot mailbox into one analyzer.Counter,
// and every result is fanned out to subscribers and persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/swingcoach/internal/analyzer"
	"github.com/ayusman/swingcoach/internal/capture"
	"github.com/ayusman/swingcoach/internal/config"
	"github.com/ayusman/swingcoach/internal/detector"
	"github.com/ayusman/swingcoach/internal/pose"
	"github.com/ayusman/swingcoach/internal/store"
)

var (
	// ErrPaused is returned by Submit while the session is paused.
	ErrPaused = errors.New("session is paused")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("session is stopped")
	// ErrStale is returned by Submit for a frame numbered at or below the last accepted one.
	ErrStale = errors.New("frame is older than the last accepted frame")
)

// Config holds the collaborators of a Session. Every field is optional:
// without a Store nothing is persisted, without a Camera frames only arrive
// through Submit, and a nil Tuning means the defaults.
type Config struct {
	Store    *store.Store
	Tuning   *config.TuningConfig
	Camera   capture.Camera
	Detector detector.Detector
}

// Stats reports frame accounting for the lifetime of the Session.
type Stats struct {
	Received  uint64 `json:"received"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Stale     uint64 `json:"stale"`
	Skipped   uint64 `json:"skipped"`
	Reps      int    `json:"reps"`
	SessionID string `json:"session_id,omitempty"`
}

// Session owns the counter for one workout and the goroutines feeding it.
type Session struct {
	config Config
	box    *mailbox

	mu        sync.Mutex
	tuning    *config.TuningConfig
	counter   *analyzer.Counter
	gen       uint64
	latest    analyzer.Result
	storeID   string
	paused    bool
	running   bool
	stopped   bool
	done      chan struct{}
	finished  chan struct{}
	processed uint64
	skipped   uint64

	wg sync.WaitGroup

	// pubMu orders deliveries: a result and its generation check are
	// published atomically with respect to Reset and SetTuning.
	pubMu   sync.Mutex
	subMu   sync.Mutex
	subs    map[int]func(analyzer.Result)
	nextSub int
}

// New creates a Session with a fresh counter. Nothing runs until Start.
func New(cfg Config) *Session {
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.DefaultTuningConfig()
	}

	s := &Session{
		config:  cfg,
		box:     newMailbox(),
		tuning:  tuning,
		counter: analyzer.NewCounter(tuning.AnalyzerConfig()),
		subs:    make(map[int]func(analyzer.Result)),
	}
	s.latest = s.counter.Last()
	return s
}

// Start opens a store session and launches the analysis loop, plus the
// capture loop when a camera is configured. Cancelling ctx stops the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.config.Camera != nil {
		if err := s.config.Camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		s.config.Camera.SetFPS(s.tuning.GetCaptureFPS())
	}

	if s.storeID == "" {
		s.storeID = s.beginStoreSession()
	}

	s.box.reopen()
	s.running = true
	s.stopped = false
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.analysisLoop()

	if s.config.Camera != nil {
		s.wg.Add(1)
		go s.captureLoop(ctx, s.done)
	}

	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}(s.done)

	log.Printf("Session started (side %s)", s.tuning.GetSide())
	return nil
}

// Stop halts both loops, releases the camera and detector and finishes the store session.
// Concurrent callers all return once teardown is complete.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		finished := s.finished
		s.mu.Unlock()
		if finished != nil {
			<-finished
		}
		return
	}
	s.running = false
	s.stopped = true
	close(s.done)
	s.box.close()
	finished := make(chan struct{})
	s.finished = finished
	s.mu.Unlock()
	defer close(finished)

	s.wg.Wait()

	if s.config.Camera != nil {
		if err := s.config.Camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}
	if s.config.Detector != nil {
		if err := s.config.Detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	s.mu.Lock()
	s.finishStoreSession(s.storeID)
	s.storeID = ""
	reps := s.latest.Reps
	s.mu.Unlock()

	log.Printf("Session stopped with %d reps", reps)
}

// Submit hands a frame to the analysis loop without blocking. An unconsumed
// frame is replaced. Frames older than the last accepted one are ignored.
func (s *Session) Submit(f *pose.Frame) error {
	if f == nil {
		f = &pose.Frame{}
	}

	s.mu.Lock()
	paused, stopped := s.paused, s.stopped
	s.mu.Unlock()

	if stopped {
		return ErrStopped
	}
	if paused {
		return ErrPaused
	}

	if !s.box.publish(f) {
		s.mu.Lock()
		stopped = s.stopped
		s.mu.Unlock()
		if stopped {
			return ErrStopped
		}
		return ErrStale
	}
	return nil
}

// Subscribe registers fn to receive every result. Calls are serialized: fn runs
// on the analysis goroutine, or on the caller of Reset or SetTuning for the fresh
// snapshot. fn must not block or call back into the Session.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(analyzer.Result)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Latest returns the most recent result.
func (s *Session) Latest() analyzer.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Reset finishes the current store session and starts over with zero reps.
func (s *Session) Reset() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.resetLocked()
	res := s.latest
	s.mu.Unlock()

	s.publish(res)
	log.Println("Session reset")
}

// SetTuning replaces the tuning. Thresholds only change between sessions,
// so this also resets the count.
func (s *Session) SetTuning(t *config.TuningConfig) {
	if t == nil {
		t = config.DefaultTuningConfig()
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.tuning = t
	if s.running && s.config.Camera != nil {
		s.config.Camera.SetFPS(t.GetCaptureFPS())
	}
	s.resetLocked()
	res := s.latest
	s.mu.Unlock()

	s.publish(res)
	log.Printf("Tuning updated: %+v", t.Thresholds())
}

// Tuning returns the active tuning.
func (s *Session) Tuning() *config.TuningConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tuning
}

// SetPaused pauses or resumes frame intake.
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// IsPaused reports whether frame intake is paused.
func (s *Session) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Stats returns frame counters and the current store session ID.
func (s *Session) Stats() Stats {
	received, dropped, stale := s.box.counts()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Received:  received,
		Processed: s.processed,
		Dropped:   dropped,
		Stale:     stale,
		Skipped:   s.skipped,
		Reps:      s.latest.Reps,
		SessionID: s.storeID,
	}
}

// resetLocked swaps in a fresh counter. The generation bump discards a
// result that was computed on the old counter while the lock was released.
func (s *Session) resetLocked() {
	s.counter = analyzer.NewCounter(s.tuning.AnalyzerConfig())
	s.gen++
	s.latest = s.counter.Last()

	if s.storeID != "" {
		s.finishStoreSession(s.storeID)
		s.storeID = s.beginStoreSession()
	}
}

// analysisLoop is the only goroutine that calls Counter.Update.
func (s *Session) analysisLoop() {
	defer s.wg.Done()

	for {
		frame := s.box.next()
		if frame == nil {
			return
		}

		s.mu.Lock()
		counter, gen := s.counter, s.gen
		s.mu.Unlock()

		res := counter.Update(frame)

		s.mu.Lock()
		current, storeID := gen == s.gen, s.storeID
		s.mu.Unlock()
		if !current {
			continue
		}

		// A frame counts as processed once its rep is persisted.
		if res.RepCompleted {
			s.recordRep(storeID, res)
		}

		s.pubMu.Lock()
		s.mu.Lock()
		current = gen == s.gen
		if current {
			s.latest = res
		}
		s.processed++
		if !res.Usable {
			s.skipped++
		}
		s.mu.Unlock()

		if current {
			s.publish(res)
		}
		s.pubMu.Unlock()
	}
}

// captureLoop reads frames at the configured rate and submits the detected poses.
func (s *Session) captureLoop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()

	cam := s.config.Camera
	fps := cam.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if s.IsPaused() {
				continue
			}

			if f := cam.FPS(); f > 0 && f != fps {
				fps = f
				ticker.Reset(time.Second / time.Duration(fps))
			}

			mat, err := cam.ReadFrame()
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Println("Capture source exhausted")
				return
			}
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if s.config.Detector == nil {
				mat.Close()
				continue
			}

			frame, err := s.config.Detector.Detect(mat)
			mat.Close()
			if err != nil {
				log.Printf("Error detecting pose: %v", err)
				continue
			}

			// Nobody in view still produces a result, flagged unusable.
			if frame == nil {
				frame = &pose.Frame{Timestamp: time.Now().UnixMilli()}
			}
			// Capture owns the numbering of its frames.
			frame.Seq = 0

			if err := s.Submit(frame); errors.Is(err, ErrStopped) {
				return
			}
		}
	}
}

func (s *Session) publish(res analyzer.Result) {
	s.subMu.Lock()
	subs := make([]func(analyzer.Result), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(res)
	}
}

func (s *Session) recordRep(storeID string, res analyzer.Result) {
	if res.RepValid {
		log.Printf("Rep %d (hip %d°, knee %d°)", res.Reps, res.BottomHipAngle, res.BottomKneeAngle)
	} else {
		log.Printf("Invalid rep (hip %d°, knee %d°)", res.BottomHipAngle, res.BottomKneeAngle)
	}

	if s.config.Store == nil || storeID == "" {
		return
	}
	rep := &store.Rep{
		SessionID: storeID,
		Valid:     res.RepValid,
		HipAngle:  res.BottomHipAngle,
		KneeAngle: res.BottomKneeAngle,
	}
	if err := s.config.Store.Reps().Create(rep); err != nil {
		log.Printf("Failed to record rep: %v", err)
	}
}

func (s *Session) beginStoreSession() string {
	if s.config.Store == nil {
		return ""
	}
	sess := &store.Session{Side: string(s.tuning.GetSide())}
	if err := s.config.Store.Sessions().Create(sess); err != nil {
		log.Printf("Failed to create store session: %v", err)
		return ""
	}
	return sess.ID
}

func (s *Session) finishStoreSession(id string) {
	if s.config.Store == nil || id == "" {
		return
	}
	if err := s.config.Store.Sessions().Finish(id, time.Now()); err != nil {
		log.Printf("Failed to finish store session %s: %v", id, err)
	}
}
