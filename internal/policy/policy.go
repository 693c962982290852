// Package policy holds the tunable constants of a condition session and
// the translation from progress to the alpha shown by the UI.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// reducedFactorScale softens the incomplete factor when the previous
// progress sat inside the tolerance band just below the threshold.
const reducedFactorScale = 1.5

// Policy is passed by value to the condition service and session manager
// at construction and never changes afterwards.
type Policy struct {
	// UpdateInterval is the sampling cadence.
	UpdateInterval time.Duration
	// IntervalDuration is how long samples accrue before the period
	// completion ratio is evaluated.
	IntervalDuration time.Duration
	// ConditionCompleteThreshold is the per-sample progress at or above
	// which a sample counts as matching the target.
	ConditionCompleteThreshold float64
	// PeriodCompletedRatio is the share of matching samples in an interval
	// at or above which the period is complete.
	PeriodCompletedRatio float64
	// IncompleteFactor scales alpha while the user is below threshold.
	IncompleteFactor float64
	// ThresholdTolerance is the width of the band below the threshold in
	// which the incomplete factor is softened.
	ThresholdTolerance float64
}

// Default returns the production constants: 250ms updates, 60s intervals.
func Default() Policy {
	return Policy{
		UpdateInterval:             250 * time.Millisecond,
		IntervalDuration:           60 * time.Second,
		ConditionCompleteThreshold: 0.8,
		PeriodCompletedRatio:       0.7,
		IncompleteFactor:           0.3,
		ThresholdTolerance:         0.1,
	}
}

// Validate reports every invalid field.
func (p Policy) Validate() error {
	var errs []error
	if p.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update interval must be positive, got %s", p.UpdateInterval))
	}
	if p.IntervalDuration <= 0 {
		errs = append(errs, fmt.Errorf("interval duration must be positive, got %s", p.IntervalDuration))
	} else if p.UpdatesPerInterval() < 1 {
		errs = append(errs, fmt.Errorf("interval duration %s is shorter than one update (%s)", p.IntervalDuration, p.UpdateInterval))
	}
	if !inUnitRange(p.ConditionCompleteThreshold) {
		errs = append(errs, fmt.Errorf("condition complete threshold must be in (0, 1], got %v", p.ConditionCompleteThreshold))
	}
	if !inUnitRange(p.PeriodCompletedRatio) {
		errs = append(errs, fmt.Errorf("period completed ratio must be in (0, 1], got %v", p.PeriodCompletedRatio))
	}
	if !inUnitRange(p.IncompleteFactor) {
		errs = append(errs, fmt.Errorf("incomplete factor must be in (0, 1], got %v", p.IncompleteFactor))
	}
	if p.ThresholdTolerance < 0 || p.ThresholdTolerance > p.ConditionCompleteThreshold {
		errs = append(errs, fmt.Errorf("threshold tolerance must be in [0, threshold], got %v", p.ThresholdTolerance))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid policy: %w", errors.Join(errs...))
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v > 0 && v <= 1
}

// UpdatesPerInterval is the number of samples in one full interval.
func (p Policy) UpdatesPerInterval() int {
	if p.UpdateInterval <= 0 {
		return 0
	}
	return int(p.IntervalDuration / p.UpdateInterval)
}

// ToAlpha maps progress to the overlay alpha given the progress of the
// previous sample. At or above the threshold progress passes through;
// inside the tolerance band it is scaled by IncompleteFactor*1.5; below
// that by IncompleteFactor. The result is truncated to two decimals.
func (p Policy) ToAlpha(progress, prevProgress float64) float64 {
	// 0.8-0.1 is 0.7000000000000001 in float64.
	bandFloor := orientation.Truncate(p.ConditionCompleteThreshold-p.ThresholdTolerance, orientation.Precision)

	alpha := progress
	switch {
	case prevProgress >= p.ConditionCompleteThreshold:
	case prevProgress >= bandFloor:
		alpha *= p.IncompleteFactor * reducedFactorScale
	default:
		alpha *= p.IncompleteFactor
	}
	return orientation.Truncate(alpha, orientation.Precision)
}
