// Package motion defines the attitude update stream consumed by the
// condition service, plus adapters that produce it from polled, MQTT and
// serial sources.
package motion

import (
	"context"
	"errors"
	"time"

	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

var (
	// ErrDeviceMotionUnavailable means no motion hardware is present.
	ErrDeviceMotionUnavailable = errors.New("device motion unavailable")
	// ErrReferenceFrameUnavailable means the hardware cannot provide a
	// stable attitude reference.
	ErrReferenceFrameUnavailable = errors.New("reference frame unavailable")
	// ErrAlreadyStarted is returned when updates are requested twice.
	ErrAlreadyStarted = errors.New("updates already started")
	// ErrAlreadyStopped is returned when stopping a stream that is not running.
	ErrAlreadyStopped = errors.New("updates already stopped")
	// ErrSampleFailed wraps a single failed attitude read.
	ErrSampleFailed = errors.New("attitude sample failed")
)

// Update is one tick of the stream: either an attitude or an error.
type Update struct {
	Attitude orientation.Attitude
	Err      error
}

// AttitudeSource delivers attitude updates at a fixed cadence. Updates for
// one stream are delivered serially; the handler must not call StopUpdates.
type AttitudeSource interface {
	CheckAvailability(ctx context.Context) error
	StartUpdates(ctx context.Context, interval time.Duration, handler func(Update)) error
	StopUpdates(ctx context.Context) error
}

// Prober is implemented by orientation sources that can tell whether they
// are able to produce attitudes right now.
type Prober interface {
	Probe(ctx context.Context) error
}
