// Package poller drives periodic snapshot retrieval without exceeding a
// fixed number of outstanding requests.
//
// Ticks that find the cap reached are dropped, never queued. The in-flight
// count is the only backpressure signal: it is taken when a request is
// issued and given back when it completes, whether it succeeded or not.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/daviddao/mobsinet_viewer/internal/metrics"
	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// MaxInFlight is the number of snapshot requests allowed to be outstanding.
const MaxInFlight = 2

// ErrInvalidRate is returned for a non-positive refresh rate.
var ErrInvalidRate = errors.New("refresh rate must be positive")

// FetchFunc retrieves one snapshot.
type FetchFunc func(ctx context.Context) (*snapshot.Snapshot, error)

// Result is the outcome of one request.
type Result struct {
	Snapshot *snapshot.Snapshot
	Err      error
	Latency  time.Duration
}

// Scheduler owns the poll timer and the in-flight cap.
type Scheduler struct {
	fetch FetchFunc
	sink  func(Result)
	log   *slog.Logger

	sem      *semaphore.Weighted
	inFlight atomic.Int64
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	rate float64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a stopped scheduler. sink receives every result and may be
// called from several goroutines at once.
func New(fetch FetchFunc, sink func(Result), opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		fetch:  fetch,
		sink:   sink,
		log:    slog.New(slog.DiscardHandler),
		sem:    semaphore.NewWeighted(MaxInFlight),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Interval converts a refresh rate in hertz to a tick period.
func Interval(rateHz float64) time.Duration {
	return time.Duration(float64(time.Second) / rateHz)
}

// Start cancels any running timer and installs one firing rateHz times per
// second. Requests already in flight are left alone.
func (s *Scheduler) Start(rateHz float64) error {
	if rateHz <= 0 {
		return ErrInvalidRate
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done, s.rate = stop, done, rateHz

	interval := Interval(rateHz)
	go s.loop(interval, stop, done)
	s.log.Debug("poller started", "rate_hz", rateHz, "interval", interval)
	return nil
}

// ChangeRate restarts the timer at a new rate. It takes effect on the next
// tick and does not abort requests in flight.
func (s *Scheduler) ChangeRate(rateHz float64) error {
	return s.Start(rateHz)
}

// Stop cancels the timer. In-flight requests still complete and deliver
// their results.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	s.log.Debug("poller stopped")
}

// Running reports whether the timer is installed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Rate is the last rate passed to Start.
func (s *Scheduler) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// InFlight is the number of outstanding requests.
func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

// Trigger issues one request now, subject to the same cap as a tick. It
// reports whether a request was issued.
func (s *Scheduler) Trigger() bool {
	return s.issue()
}

// Close stops the timer, cancels outstanding requests and waits for them.
func (s *Scheduler) Close() {
	s.Stop()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.issue() {
				metrics.TicksSkipped.Inc()
			}
		}
	}
}

func (s *Scheduler) issue() bool {
	if s.ctx.Err() != nil {
		return false
	}
	if !s.sem.TryAcquire(1) {
		return false
	}
	s.inFlight.Add(1)
	metrics.RequestsInFlight.Inc()
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		start := time.Now()
		snap, err := s.fetch(s.ctx)
		res := Result{Snapshot: snap, Err: err, Latency: time.Since(start)}

		s.inFlight.Add(-1)
		metrics.RequestsInFlight.Dec()
		s.sem.Release(1)

		if err != nil && !errors.Is(err, snapshot.ErrMalformedSnapshot) {
			metrics.TransportErrors.Inc()
			s.log.Warn("snapshot request failed", "err", err, "latency", res.Latency)
		}
		s.sink(res)
	}()
	return true
}
