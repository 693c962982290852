package motion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

var errNoAttitude = errors.New("no attitude received yet")

// latest holds the most recent attitude pushed by a remote producer, so a
// push-based feed can be polled like any other orientation.Source.
type latest struct {
	mu  sync.RWMutex
	a   orientation.Attitude
	ok  bool
	err error
}

func (l *latest) set(a orientation.Attitude) {
	l.mu.Lock()
	l.a, l.ok, l.err = a, true, nil
	l.mu.Unlock()
}

func (l *latest) fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *latest) Next() (orientation.Attitude, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.err != nil {
		return orientation.Attitude{}, l.err
	}
	if !l.ok {
		return orientation.Attitude{}, errNoAttitude
	}
	return l.a, nil
}

func (l *latest) received() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ok
}

// ParseAttitudeLine parses "roll,pitch,yaw" in radians. Whitespace around
// fields is ignored; NaN and infinite fields are rejected.
func ParseAttitudeLine(line string) (orientation.Attitude, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 {
		return orientation.Attitude{}, fmt.Errorf("attitude line %q: want 3 fields, got %d", line, len(fields))
	}

	var vals [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return orientation.Attitude{}, fmt.Errorf("attitude line %q: field %d: %w", line, i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return orientation.Attitude{}, fmt.Errorf("attitude line %q: field %d is not finite", line, i)
		}
		vals[i] = v
	}
	return orientation.Attitude{Roll: vals[0], Pitch: vals[1], Yaw: vals[2]}, nil
}
