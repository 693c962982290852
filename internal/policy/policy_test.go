package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToAlpha(t *testing.T) {
	p := Default()

	tests := []struct {
		name     string
		progress float64
		prev     float64
		want     float64
	}{
		{"previous at threshold passes through", 0.9, 0.8, 0.9},
		{"previous above threshold passes through", 0.55, 1.0, 0.55},
		{"previous inside tolerance band is softened", 1.0, 0.75, 0.45},
		{"previous at tolerance floor is softened", 0.8, 0.7, 0.36},
		{"previous below band gets full penalty", 1.0, 0.69, 0.3},
		{"first sample has no previous progress", 0.9, 0, 0.27},
		{"zero progress stays zero", 0, 0.9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ToAlpha(tt.progress, tt.prev))
		})
	}
}

func TestToAlphaIsBounded(t *testing.T) {
	p := Default()
	for progress := 0.0; progress <= 1.0; progress += 0.01 {
		for prev := 0.0; prev <= 1.0; prev += 0.05 {
			alpha := p.ToAlpha(progress, prev)
			assert.GreaterOrEqual(t, alpha, 0.0)
			assert.LessOrEqual(t, alpha, progress+1e-9)
		}
	}
}

func TestUpdatesPerInterval(t *testing.T) {
	assert.Equal(t, 240, Default().UpdatesPerInterval())

	p := Default()
	p.UpdateInterval = time.Second
	p.IntervalDuration = 2 * time.Second
	assert.Equal(t, 2, p.UpdatesPerInterval())

	p.UpdateInterval = 0
	assert.Equal(t, 0, p.UpdatesPerInterval())
}

func TestValidateAcceptsSingleUpdateInterval(t *testing.T) {
	p := Default()
	p.IntervalDuration = p.UpdateInterval
	assert.Equal(t, 1, p.UpdatesPerInterval())
	assert.NoError(t, p.Validate())

	p.IntervalDuration = p.UpdateInterval - time.Millisecond
	assert.Equal(t, 0, p.UpdatesPerInterval())
	assert.ErrorContains(t, p.Validate(), "shorter than one update")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero update interval", func(p *Policy) { p.UpdateInterval = 0 }},
		{"negative interval duration", func(p *Policy) { p.IntervalDuration = -time.Second }},
		{"interval shorter than update", func(p *Policy) { p.IntervalDuration = 100 * time.Millisecond }},
		{"threshold above one", func(p *Policy) { p.ConditionCompleteThreshold = 1.2 }},
		{"zero completed ratio", func(p *Policy) { p.PeriodCompletedRatio = 0 }},
		{"zero incomplete factor", func(p *Policy) { p.IncompleteFactor = 0 }},
		{"tolerance wider than threshold", func(p *Policy) { p.ThresholdTolerance = 0.9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
