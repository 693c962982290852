// Package condition tracks how closely sampled attitudes match a random
// target over the current period attempt.
package condition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
	"github.com/jacksonchui/Social-Media-Intervention/internal/policy"
)

// Result is delivered once per attitude update: either the progress of
// the sample toward the target, or the sampling error.
type Result struct {
	Progress float64
	Err      error
}

// Service wraps an AttitudeSource and keeps the samples and target of the
// current period attempt.
//
// The target is drawn on the first sample after Reset. Samples are cleared
// by ContinuePeriod and Reset; the tick count behind CurrentPeriodDuration
// is cleared only by Reset, so the duration keeps growing across the
// intervals of one period.
type Service struct {
	source motion.AttitudeSource
	policy policy.Policy
	gen    *orientation.TargetGenerator
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	target  *orientation.Attitude
	samples []orientation.Attitude
	ticks   int
}

// Option configures a Service.
type Option func(*Service)

// WithTargetGenerator replaces the default randomly seeded generator.
func WithTargetGenerator(gen *orientation.TargetGenerator) Option {
	return func(s *Service) { s.gen = gen }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New returns a stopped Service reading from source.
func New(source motion.AttitudeSource, p policy.Policy, opts ...Option) *Service {
	s := &Service{
		source: source,
		policy: p,
		gen:    orientation.NewTargetGenerator(nil),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check reports whether the source can deliver attitudes.
func (s *Service) Check(ctx context.Context) error {
	return s.source.CheckAvailability(ctx)
}

// Start begins consuming updates; handler is called once per update, on
// the source's delivery goroutine. Starting a running service returns
// motion.ErrAlreadyStarted and registers nothing.
func (s *Service) Start(ctx context.Context, handler func(Result)) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return motion.ErrAlreadyStarted
	}
	s.running = true
	s.mu.Unlock()

	err := s.source.StartUpdates(ctx, s.policy.UpdateInterval, func(u motion.Update) {
		handler(s.record(u))
	})
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("condition: start updates: %w", err)
	}

	s.logger.Info("condition service started", "update_interval", s.policy.UpdateInterval, "updates_per_interval", s.policy.UpdatesPerInterval())
	return nil
}

func (s *Service) record(u motion.Update) Result {
	if u.Err != nil {
		s.logger.Warn("attitude sample failed", "err", u.Err)
		return Result{Err: u.Err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == nil && len(s.samples) == 0 {
		target := s.gen.Generate(u.Attitude)
		s.target = &target
		s.logger.Debug("new target", "roll", target.Roll, "pitch", target.Pitch, "yaw", target.Yaw)
	}
	s.samples = append(s.samples, u.Attitude)
	s.ticks++

	return Result{Progress: orientation.Progress(u.Attitude, *s.target)}
}

// Stop halts updates without clearing any state. If the source fails to
// stop, the service stays running and the error is returned. Stopping a
// stopped service returns motion.ErrAlreadyStopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return motion.ErrAlreadyStopped
	}
	s.mu.Unlock()

	err := s.source.StopUpdates(ctx)
	if err != nil && !errors.Is(err, motion.ErrAlreadyStopped) {
		return fmt.Errorf("condition: stop updates: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logger.Info("condition service stopped")
	return nil
}

// Running reports whether updates are being consumed.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// PeriodCompletedRatio is the share of current samples whose progress is
// at or above the condition complete threshold. It is 0 without samples
// or target.
func (s *Service) PeriodCompletedRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == nil || len(s.samples) == 0 {
		return 0
	}
	completed := 0
	for _, sample := range s.samples {
		if orientation.Progress(sample, *s.target) >= s.policy.ConditionCompleteThreshold {
			completed++
		}
	}
	return float64(completed) / float64(len(s.samples))
}

// CurrentPeriodDuration is the update interval times the number of
// samples recorded since the last Reset.
func (s *Service) CurrentPeriodDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.UpdateInterval * time.Duration(s.ticks)
}

// Reset clears samples, target and elapsed ticks, starting a new period.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	s.target = nil
	s.ticks = 0
}

// ContinuePeriod clears samples for the next interval but keeps the target.
func (s *Service) ContinuePeriod() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
}

// Target returns the target of the current period attempt, if drawn.
func (s *Service) Target() (orientation.Attitude, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return orientation.Attitude{}, false
	}
	return *s.target, true
}

// Samples returns a copy of the samples of the current interval.
func (s *Service) Samples() []orientation.Attitude {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orientation.Attitude(nil), s.samples...)
}

// HasSamples reports whether the current interval has any samples.
func (s *Service) HasSamples() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples) > 0
}
