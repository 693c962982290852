package motion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// PollingSource turns an orientation.Source into a timed update stream.
// One goroutine reads the source on every tick and calls the handler.
type PollingSource struct {
	src    orientation.Source
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ AttitudeSource = (*PollingSource)(nil)

// NewPollingSource wraps src. A nil logger discards output.
func NewPollingSource(src orientation.Source, logger *slog.Logger) *PollingSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PollingSource{src: src, logger: logger}
}

// CheckAvailability reports ErrDeviceMotionUnavailable when there is no
// source, and otherwise defers to the source's Probe if it has one.
func (p *PollingSource) CheckAvailability(ctx context.Context) error {
	if p.src == nil {
		return ErrDeviceMotionUnavailable
	}
	if prober, ok := p.src.(Prober); ok {
		return prober.Probe(ctx)
	}
	return nil
}

func (p *PollingSource) StartUpdates(ctx context.Context, interval time.Duration, handler func(Update)) error {
	if interval <= 0 {
		return fmt.Errorf("polling: interval must be positive, got %s", interval)
	}
	if err := p.CheckAvailability(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.run(loopCtx, interval, handler, done)
	p.logger.Debug("polling started", "interval", interval)
	return nil
}

func (p *PollingSource) run(ctx context.Context, interval time.Duration, handler func(Update), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a, err := p.src.Next()
			if err != nil {
				handler(Update{Err: fmt.Errorf("%w: %w", ErrSampleFailed, err)})
				continue
			}
			handler(Update{Attitude: a})
		}
	}
}

// StopUpdates cancels the loop and waits until the last handler call has
// returned, or until ctx is done. The source counts as running until the
// loop has exited, so a stop that timed out can be retried.
func (p *PollingSource) StopUpdates(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return ErrAlreadyStopped
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("polling: waiting for stop: %w", ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return ErrAlreadyStopped
	}
	p.cancel, p.done = nil, nil
	p.logger.Debug("polling stopped")
	return nil
}
