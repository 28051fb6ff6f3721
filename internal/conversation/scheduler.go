package conversation

import (
	"sync"
	"time"
)

// Scheduler runs the controller's asynchronous work: backend round trips
// and delivery ticks.
type Scheduler interface {
	// Go runs task asynchronously as soon as possible.
	Go(task func())
	// After runs task once d has elapsed.
	After(d time.Duration, task func())
}

// RealScheduler runs tasks on goroutines and wall-clock timers
type RealScheduler struct{}

func (RealScheduler) Go(task func()) { go task() }

func (RealScheduler) After(d time.Duration, task func()) {
	if d <= 0 {
		go task()
		return
	}
	time.AfterFunc(d, task)
}

// ManualScheduler queues tasks until the test runs them. Delays are recorded
// but never waited on.
type ManualScheduler struct {
	mu     sync.Mutex
	queue  []func()
	delays []time.Duration
}

// NewManualScheduler creates an empty manual scheduler
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Go(task func()) {
	s.After(0, task)
}

func (s *ManualScheduler) After(d time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, task)
	s.delays = append(s.delays, d)
}

// RunNext runs the oldest queued task and reports whether there was one
func (s *ManualScheduler) RunNext() bool {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	task := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	task()
	return true
}

// RunAll runs tasks, including ones scheduled while running, until the queue
// is empty. It returns the number of tasks run.
func (s *ManualScheduler) RunAll() int {
	n := 0
	for s.RunNext() {
		n++
	}
	return n
}

// Pending returns the number of queued tasks
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Delays returns every delay requested so far, in scheduling order
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
