// Package session drives a condition service across intervals and
// periods, derives the overlay alpha, and builds the session log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacksonchui/Social-Media-Intervention/internal/condition"
	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/policy"
)

var (
	// ErrNotRunning is returned by RecordVisit outside a running session.
	ErrNotRunning  = errors.New("session not running")
	ErrEmptyMedium = errors.New("empty social medium")
)

// ConditionService is the part of condition.Service the manager drives.
type ConditionService interface {
	Check(ctx context.Context) error
	Start(ctx context.Context, handler func(condition.Result)) error
	Stop(ctx context.Context) error
	PeriodCompletedRatio() float64
	CurrentPeriodDuration() time.Duration
	HasSamples() bool
	Reset()
	ContinuePeriod()
}

var _ ConditionService = (*condition.Service)(nil)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator names new sessions.
type IDGenerator interface {
	New() string
}

type uuidGenerator struct{}

func (uuidGenerator) New() string { return uuid.NewString() }

// Update is delivered once per sample: the alpha to show and the raw
// progress it came from, or the sampling error.
type Update struct {
	Alpha    float64
	Progress float64
	Err      error
}

// Manager runs one session at a time.
type Manager struct {
	service ConditionService
	policy  policy.Policy
	clock   Clock
	ids     IDGenerator
	logger  *slog.Logger

	mu                  sync.Mutex
	log                 *Log
	progressPerInterval []float64
	periodIntervals     int
	prevProgress        float64
	running             bool
	stopping            bool
}

type Option func(*Manager)

func WithClock(c Clock) Option { return func(m *Manager) { m.clock = c } }

func WithIDGenerator(g IDGenerator) Option { return func(m *Manager) { m.ids = g } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// NewManager returns an idle manager. p must match the policy the service
// was built with.
func NewManager(service ConditionService, p policy.Policy, opts ...Option) *Manager {
	m := &Manager{
		service:         service,
		policy:          p,
		clock:           systemClock{},
		ids:             uuidGenerator{},
		logger:          slog.New(slog.DiscardHandler),
		periodIntervals: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check reports whether attitudes can be sampled.
func (m *Manager) Check(ctx context.Context) error {
	return m.service.Check(ctx)
}

// Start begins a session, resuming existing when it is non-nil. handler
// receives one Update per sample on the source's delivery goroutine.
func (m *Manager) Start(ctx context.Context, existing *Log, handler func(Update)) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return motion.ErrAlreadyStarted
	}
	previous := m.log
	var l Log
	if existing != nil {
		// The gap since the log was saved is not session time: the start
		// moves up so the recorded duration carries forward from now.
		l = existing.clone()
		var prior time.Duration
		if l.EndTime != nil {
			prior = l.EndTime.Sub(l.StartTime)
		}
		l.StartTime = m.clock.Now().Add(-prior)
		l.EndTime = nil
	} else {
		l = Log{ID: m.ids.New(), StartTime: m.clock.Now()}
	}
	m.log = &l
	m.resetPeriodLocked()
	m.prevProgress = 0
	m.running = true
	m.mu.Unlock()

	if err := m.service.Start(ctx, func(r condition.Result) { m.onResult(r, handler) }); err != nil {
		m.mu.Lock()
		m.log = previous
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("session: %w", err)
	}

	m.logger.Info("session started", "id", l.ID, "resumed", existing != nil)
	return nil
}

func (m *Manager) onResult(r condition.Result, handler func(Update)) {
	if r.Err != nil {
		handler(Update{Err: r.Err})
		return
	}

	m.mu.Lock()
	alpha := m.policy.ToAlpha(r.Progress, m.prevProgress)
	m.prevProgress = r.Progress
	m.mu.Unlock()

	handler(Update{Alpha: alpha, Progress: r.Progress})

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.stopping {
		return
	}
	checkpoint := m.policy.IntervalDuration * time.Duration(m.periodIntervals)
	if m.service.CurrentPeriodDuration() >= checkpoint {
		m.closeIntervalLocked()
	}
}

// closeIntervalLocked records the interval ratio, then either closes the
// period or extends it by another interval.
func (m *Manager) closeIntervalLocked() {
	ratio := m.service.PeriodCompletedRatio()
	m.progressPerInterval = append(m.progressPerInterval, ratio)

	if ratio >= m.policy.PeriodCompletedRatio {
		m.appendPeriodLocked()
		m.logger.Info("period complete", "id", m.log.ID, "intervals", m.periodIntervals, "ratio", ratio)
		m.service.Reset()
		m.resetPeriodLocked()
		return
	}

	m.logger.Debug("period continues", "id", m.log.ID, "intervals", m.periodIntervals, "ratio", ratio)
	m.periodIntervals++
	m.service.ContinuePeriod()
}

func (m *Manager) appendPeriodLocked() {
	m.log.PeriodLogs = append(m.log.PeriodLogs, PeriodLog{
		ProgressPerInterval: append([]float64(nil), m.progressPerInterval...),
		Duration:            m.service.CurrentPeriodDuration(),
	})
}

func (m *Manager) resetPeriodLocked() {
	m.periodIntervals = 1
	m.progressPerInterval = nil
}

// Stop ends the session and returns its finished log. The ratio of an
// in-flight interval is recorded and any open period is closed before the
// service is reset. If the service fails to stop, nothing is reset and the
// session keeps running.
func (m *Manager) Stop(ctx context.Context) (Log, error) {
	m.mu.Lock()
	if !m.running || m.stopping {
		m.mu.Unlock()
		return Log{}, motion.ErrAlreadyStopped
	}
	m.stopping = true
	m.mu.Unlock()

	err := m.service.Stop(ctx)
	if err != nil && !errors.Is(err, motion.ErrAlreadyStopped) {
		m.mu.Lock()
		m.stopping = false
		m.mu.Unlock()
		return Log{}, fmt.Errorf("session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.service.HasSamples() {
		m.progressPerInterval = append(m.progressPerInterval, m.service.PeriodCompletedRatio())
	}
	if len(m.progressPerInterval) > 0 {
		m.appendPeriodLocked()
	}
	end := m.clock.Now()
	m.log.EndTime = &end

	m.service.Reset()
	m.resetPeriodLocked()
	m.prevProgress = 0
	m.running = false
	m.stopping = false

	m.logger.Info("session stopped", "id", m.log.ID, "periods", len(m.log.PeriodLogs), "duration", end.Sub(m.log.StartTime))
	return m.log.clone(), nil
}

// RecordVisit adds medium to the running session's visited social media.
// Repeat visits are recorded once.
func (m *Manager) RecordVisit(medium string) error {
	medium = strings.TrimSpace(medium)
	if medium == "" {
		return ErrEmptyMedium
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotRunning
	}
	for _, seen := range m.log.SocialMedia {
		if seen == medium {
			return nil
		}
	}
	m.log.SocialMedia = append(m.log.SocialMedia, medium)
	return nil
}

// Running reports whether a session is in progress.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// PeriodIntervals is the number of intervals in the current period,
// including the one in progress.
func (m *Manager) PeriodIntervals() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periodIntervals
}

// ProgressPerInterval returns the ratios of the closed intervals of the
// current period.
func (m *Manager) ProgressPerInterval() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.progressPerInterval...)
}

// Log returns a copy of the current or most recently finished log.
func (m *Manager) Log() (Log, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.log == nil {
		return Log{}, false
	}
	return m.log.clone(), true
}
