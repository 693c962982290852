package orientation

import (
	"math"
	"math/rand/v2"
)

// maxTargetAttempts bounds rejection sampling in Generate.
const maxTargetAttempts = 64

// targetRange is the largest absolute tilt a target asks for. Targets stay
// within [-π/2, π/2] even though samples span [-π, π].
const targetRange = math.Pi / 2

// fallbackOffset moves a fallback target away from the reference.
const fallbackOffset = 0.5

// Float64Source yields uniform values in [0, 1).
type Float64Source interface {
	Float64() float64
}

// TargetGenerator draws random target attitudes.
type TargetGenerator struct {
	rng Float64Source
}

// NewTargetGenerator returns a generator backed by rng, or by the
// process-wide math/rand/v2 source when rng is nil.
func NewTargetGenerator(rng Float64Source) *TargetGenerator {
	if rng == nil {
		rng = globalRand{}
	}
	return &TargetGenerator{rng: rng}
}

// Generate returns a random attitude that differs from reference.
func (g *TargetGenerator) Generate(reference Attitude) Attitude {
	for range maxTargetAttempts {
		target := Attitude{
			Roll:  g.radian(),
			Pitch: g.radian(),
			Yaw:   g.radian(),
		}
		if target != reference {
			return target
		}
	}
	return offsetFrom(reference)
}

func (g *TargetGenerator) radian() float64 {
	return Truncate(-targetRange+g.rng.Float64()*2*targetRange, Precision)
}

// offsetFrom shifts roll toward zero by fallbackOffset, which keeps the
// result inside the target range and distinct from reference.
func offsetFrom(reference Attitude) Attitude {
	target := reference
	if reference.Roll > 0 {
		target.Roll = Truncate(reference.Roll-fallbackOffset, Precision)
	} else {
		target.Roll = Truncate(reference.Roll+fallbackOffset, Precision)
	}
	return target
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
