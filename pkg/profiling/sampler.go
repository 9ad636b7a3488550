package profiling

import (
	"runtime"
	"sync"
	"time"
)

// Sample holds the runtime figures observed by one Sampler poll.
type Sample struct {
	// Goroutines is the goroutine count at the time of the poll.
	Goroutines int

	// HeapAllocBytes is the heap in use at the time of the poll.
	HeapAllocBytes uint64
}

// Sampler polls runtime counters in the background and keeps the peak
// values seen between Start and Stop. It exists for measurements too
// short-lived for the snapshot collector: a runner wraps one around a
// single trial to learn how many goroutines the trial actually spawned.
//
// A Sampler is single-use. Create a fresh one per measured region.
type Sampler struct {
	interval time.Duration

	mu   sync.Mutex
	peak Sample

	stopCh chan struct{}
	doneCh chan struct{}

	started bool
	stopped bool
}

// DefaultSampleInterval balances resolution against the cost of
// ReadMemStats, which briefly stops the world on every poll.
const DefaultSampleInterval = 5 * time.Millisecond

// NewSampler creates a Sampler polling at the given interval. A zero or
// negative interval uses DefaultSampleInterval.
func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins polling. Calling Start twice is a no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	// Record the starting state so even a trial shorter than one
	// interval yields a meaningful peak.
	s.poll()

	go s.run()
}

// Stop ends polling, takes one final sample, and returns the peak
// values observed. Stop on a never-started or already-stopped Sampler
// returns the last known peaks.
func (s *Sampler) Stop() Sample {
	s.mu.Lock()
	if !s.started || s.stopped {
		peak := s.peak
		s.mu.Unlock()
		return peak
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	// The final sample catches a peak between the last tick and Stop.
	s.poll()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Peak returns the peak values observed so far without stopping.
func (s *Sampler) Peak() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *Sampler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Sampler) poll() {
	goroutines := runtime.NumGoroutine()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.mu.Lock()
	if goroutines > s.peak.Goroutines {
		s.peak.Goroutines = goroutines
	}
	if mem.HeapAlloc > s.peak.HeapAllocBytes {
		s.peak.HeapAllocBytes = mem.HeapAlloc
	}
	s.mu.Unlock()
}
