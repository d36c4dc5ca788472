package render

import (
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
)

var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a waiting indicator on the console. It can be suspended and
// resumed while other components own the screen; suspensions nest.
type Spinner struct {
	console  Console
	writes   *WriteCounter
	frames   []string
	interval time.Duration

	mu        sync.Mutex
	running   bool
	suspended int
	frame     int
	drew      bool
	stop      chan struct{}
	done      chan struct{}
}

// NewSpinner returns a spinner drawing on the console. Writes, when set, is
// bumped whenever the spinner has touched the screen so renderers re-anchor.
func NewSpinner(console Console, writes *WriteCounter) *Spinner {
	return &Spinner{
		console:  console,
		writes:   writes,
		frames:   defaultFrames,
		interval: 80 * time.Millisecond,
	}
}

// Start begins animating. It is a no-op if the spinner is already running.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
}

// Stop halts the animation and erases the indicator.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.erase()
	s.suspended = 0
}

// Suspend hides the spinner while someone else draws. Each Suspend must be
// matched by a Resume; the spinner reappears when the last suspension lifts.
func (s *Spinner) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended++
	s.erase()
}

// Resume lifts one suspension.
func (s *Spinner) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended > 0 {
		s.suspended--
	}
}

func (s *Spinner) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Spinner) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.suspended > 0 {
		return
	}
	frame := s.frames[s.frame%len(s.frames)]
	s.frame++
	s.console.Write([]byte("\r" + frame + " "))
	if !s.drew && s.writes != nil {
		s.writes.Bump()
	}
	s.drew = true
}

// erase clears the indicator if it is on screen. Caller holds the lock.
func (s *Spinner) erase() {
	if !s.drew {
		return
	}
	s.console.Write([]byte("\r" + ansi.EraseLine(0)))
	s.drew = false
}
