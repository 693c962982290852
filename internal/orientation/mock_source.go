// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that
// generates smoothly changing attitudes, a slow hand tilt in radians.
func NewMockSource() Source {
	return newMockSourceAt(time.Now)
}

func newMockSourceAt(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

func (m *mockSource) Next() (Attitude, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return Attitude{
		Roll:  0.35 * math.Sin(elapsed),
		Pitch: 0.26 * math.Cos(elapsed*0.7),
		Yaw:   math.Remainder(elapsed*0.5, 2*math.Pi),
	}, nil
}
