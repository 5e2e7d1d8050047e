package trees

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solarsim/solarsim/pkg/geo"
)

// Request is one extraction job: a correlation ID plus the raster payload.
type Request struct {
	ID      string
	Heights []float32
	Width   int
	Height  int
	Bounds  geo.Bounds
	Options Options
}

// Response carries the result (or error string) back under the same ID.
type Response struct {
	ID    string         `json:"id"`
	Trees []DetectedTree `json:"trees"`
	Err   string         `json:"error,omitempty"`
}

type scheduledJob struct {
	ctx context.Context
	req Request
	out chan Response
}

// Scheduler runs extraction jobs on a dedicated worker goroutine so a slow
// extraction never blocks the caller. Jobs are cancelable: a job whose
// context is done by the time the worker reaches it is discarded, and a
// worker panic becomes an error response rather than a hang.
type Scheduler struct {
	jobs   chan scheduledJob
	logger *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

const schedulerQueueDepth = 8

// NewScheduler starts the worker goroutine.
func NewScheduler(logger *zap.SugaredLogger) *Scheduler {
	s := &Scheduler{
		jobs:   make(chan scheduledJob, schedulerQueueDepth),
		logger: logger,
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// Submit queues an extraction job and returns its correlation ID and a
// result channel. The channel receives exactly one Response unless the
// context is cancelled first, in which case the result is discarded.
func (s *Scheduler) Submit(ctx context.Context, heights []float32, width, height int, bounds geo.Bounds, opts Options) (string, <-chan Response, error) {
	id := uuid.NewString()
	out := make(chan Response, 1)
	job := scheduledJob{
		ctx: ctx,
		req: Request{ID: id, Heights: heights, Width: width, Height: height, Bounds: bounds, Options: opts},
		out: out,
	}

	// The send happens under the mutex so Close cannot close the jobs
	// channel while a Submit is parked on a full queue.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, fmt.Errorf("scheduler is closed")
	}

	select {
	case s.jobs <- job:
		return id, out, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

// Close stops accepting jobs and waits for the worker to drain.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		if job.ctx.Err() != nil {
			// Superseded before we got to it; drop without a response.
			s.logger.Debugf("extraction %s cancelled before start", job.req.ID)
			continue
		}
		job.out <- s.run(job.req)
	}
}

// run executes one extraction, converting a panic into an error response.
func (s *Scheduler) run(req Request) (resp Response) {
	resp.ID = req.ID
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("extraction %s panicked: %v", req.ID, r)
			resp.Trees = nil
			resp.Err = fmt.Sprintf("extraction failed: %v", r)
		}
	}()

	trees, err := Extract(req.Heights, req.Width, req.Height, req.Bounds, req.Options)
	if err != nil {
		resp.Err = err.Error()
		return resp
	}
	resp.Trees = trees
	return resp
}
