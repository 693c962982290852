// Package motiontest provides a hand-driven motion.AttitudeSource for tests.
package motiontest

import (
	"context"
	"sync"
	"time"

	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// Source records calls and lets the test deliver updates by hand on the
// test goroutine.
type Source struct {
	mu sync.Mutex

	// AvailabilityErr is returned by CheckAvailability.
	AvailabilityErr error
	// StopErr, when set, is returned by StopUpdates instead of stopping.
	StopErr error

	handler    func(motion.Update)
	interval   time.Duration
	StartCalls int
	StopCalls  int
}

var _ motion.AttitudeSource = (*Source)(nil)

func (s *Source) CheckAvailability(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AvailabilityErr
}

func (s *Source) StartUpdates(_ context.Context, interval time.Duration, handler func(motion.Update)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCalls++
	if s.handler != nil {
		return motion.ErrAlreadyStarted
	}
	s.handler = handler
	s.interval = interval
	return nil
}

func (s *Source) StopUpdates(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCalls++
	if s.StopErr != nil {
		return s.StopErr
	}
	if s.handler == nil {
		return motion.ErrAlreadyStopped
	}
	s.handler = nil
	return nil
}

// Running reports whether a handler is registered.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler != nil
}

// Interval returns the cadence passed to the last StartUpdates.
func (s *Source) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Deliver sends a successful sample. It is a no-op when not running.
func (s *Source) Deliver(a orientation.Attitude) {
	s.send(motion.Update{Attitude: a})
}

// DeliverN sends the same sample n times.
func (s *Source) DeliverN(a orientation.Attitude, n int) {
	for range n {
		s.Deliver(a)
	}
}

// Fail sends a failed sample.
func (s *Source) Fail(err error) {
	s.send(motion.Update{Err: err})
}

func (s *Source) send(u motion.Update) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(u)
	}
}
