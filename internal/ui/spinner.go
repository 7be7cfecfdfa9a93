package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner is a blocking-free terminal spinner for steps that run outside the
// chat screen.
type Spinner struct {
	spinner  spinner.Spinner
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}

	mu      sync.Mutex
	message string
	once    sync.Once
}

func newSpinner(s spinner.Spinner, interval time.Duration, message string) *Spinner {
	return &Spinner{
		message:  message,
		spinner:  s,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// NewConnectionSpinner is used while dialling the relay (Globe style).
func NewConnectionSpinner(message string) *Spinner {
	return newSpinner(spinner.Globe, 180*time.Millisecond, message)
}

// NewWaitingSpinner is used while waiting on another person (Moon style).
func NewWaitingSpinner(message string) *Spinner {
	return newSpinner(spinner.Moon, 120*time.Millisecond, message)
}

func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		frames := s.spinner.Frames
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Printf("\r%s %s\033[K", SpinnerStyle.Render(frames[i%len(frames)]), msg)

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the spinner and clears its line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		fmt.Print("\r\033[K")
	})
}

func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

func (s *Spinner) Error(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), message)
}

func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// RunConnectionSpinner starts a connection spinner and returns a stop function
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp.Stop
}

// RunWaitingSpinner starts a waiting spinner and returns a stop function
func RunWaitingSpinner(message string) func() {
	sp := NewWaitingSpinner(message)
	sp.Start()
	return sp.Stop
}
