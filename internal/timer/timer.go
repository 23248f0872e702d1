// Package timer is the client-side focus clock. It approximates the on-chain
// session locally and is never read back from the contract.
package timer

import (
	"sync"
	"time"

	"github.com/olehkaliuzhnyi/focus2earn/pkg/models"
)

// State of the focus clock.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Timer counts elapsed seconds while running. Elapsed resets to zero on both
// Start and Stop.
type Timer struct {
	interval time.Duration

	mu         sync.Mutex
	state      State
	elapsed    int64
	generation uint64
	stop       chan struct{}
}

// New returns a stopped timer. A positive interval makes Start run a ticker
// goroutine that calls Tick once per interval; zero leaves ticking to the caller.
func New(interval time.Duration) *Timer {
	return &Timer{interval: interval}
}

// Start moves to Running with elapsed zero. Starting a running timer restarts it.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.state = Running
	t.elapsed = 0
	t.generation++

	if t.interval > 0 {
		t.stop = make(chan struct{})
		go t.run(t.generation, t.stop)
	}
}

// Stop moves to Stopped with elapsed zero.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.state = Stopped
	t.elapsed = 0
	t.generation++
}

// Tick advances the clock by one second. Ignored while stopped.
func (t *Timer) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		t.elapsed++
	}
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Timer) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Session returns the current clock as a FocusSession.
func (t *Timer) Session() models.FocusSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return models.FocusSession{Running: t.state == Running, ElapsedSeconds: t.elapsed}
}

func (t *Timer) haltLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tickGeneration(gen)
		}
	}
}

// tickGeneration drops ticks from a run that has already been replaced.
func (t *Timer) tickGeneration(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen == t.generation && t.state == Running {
		t.elapsed++
	}
}
