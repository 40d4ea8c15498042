package hook

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ayusman/swingcoach/internal/analyzer"
)

// DefaultQueueSize bounds how many events wait for a hook run.
const DefaultQueueSize = 16

// Dispatcher turns session results into hook events and runs the hooks on
// its own goroutine, so a slow hook never holds up the analysis loop.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan *Request
	dropped  atomic.Uint64

	mu       sync.Mutex
	formBad  bool
	lastReps int
}

// NewDispatcher creates a Dispatcher. A queueSize of zero or less means DefaultQueueSize.
func NewDispatcher(m *Manager, e *Executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		manager:  m,
		executor: e,
		queue:    make(chan *Request, queueSize),
	}
}

// Handle inspects one result and queues the events it implies.
// It never blocks; events are dropped when the queue is full.
func (d *Dispatcher) Handle(res analyzer.Result) {
	for _, req := range d.events(res) {
		select {
		case d.queue <- req:
		default:
			d.dropped.Add(1)
		}
	}
}

// events maps a result to zero or more hook requests.
func (d *Dispatcher) events(res analyzer.Result) []*Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*Request
	newRequest := func(ev Event) *Request {
		return &Request{
			Event:     ev,
			Reps:      res.Reps,
			Feedback:  res.Feedback,
			HipAngle:  res.HipAngle,
			KneeAngle: res.KneeAngle,
		}
	}

	// The count only goes down when the session starts over.
	if res.Reps < d.lastReps {
		out = append(out, newRequest(EventReset))
		d.formBad = false
	}
	d.lastReps = res.Reps

	if !res.Usable {
		return out
	}

	if res.FormBad && !d.formBad {
		out = append(out, newRequest(EventFormWarning))
	}
	d.formBad = res.FormBad

	if res.RepCompleted {
		req := newRequest(EventInvalidRep)
		if res.RepValid {
			req = newRequest(EventRep)
		}
		req.HipAngle = res.BottomHipAngle
		req.KneeAngle = res.BottomKneeAngle
		out = append(out, req)
	}

	return out
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run executes queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.queue:
			d.dispatch(ctx, req)
		}
	}
}

// dispatch runs every hook subscribed to the request's event in name order.
func (d *Dispatcher) dispatch(ctx context.Context, req *Request) {
	for _, h := range d.manager.For(req.Event) {
		r := *req
		resp, err := d.executor.Execute(ctx, h, &r)
		if err != nil {
			log.Printf("Hook %s failed on %s: %v", h.Manifest.Name, req.Event, err)
			continue
		}
		if !resp.Success {
			log.Printf("Hook %s reported an error on %s: %s", h.Manifest.Name, req.Event, resp.Error)
		}
	}
}
