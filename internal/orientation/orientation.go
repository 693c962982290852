package orientation

import (
	"math"
)

// Attitude is the canonical device orientation, in radians.
// Sources report each angle within [-π, π].
type Attitude struct {
	Roll  float64 `json:"roll" yaml:"roll"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
}

// Source is anything that can provide attitudes over time.
// Mock, IMU and replay sources all implement it; motion.PollingSource
// turns one into a timed update stream.
type Source interface {
	Next() (Attitude, error)
}

// Precision is the number of decimal places kept by Truncate.
const Precision = 2

// truncateEpsilon absorbs float noise such as 1-0.3 = 0.69999999
// before truncating.
const truncateEpsilon = 1e-9

// Truncate cuts x toward zero to the given number of decimal places, so
// truncated values never leave the range they were drawn from.
func Truncate(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Trunc(x*scale+math.Copysign(truncateEpsilon, x)) / scale
}

// Progress returns how close candidate is to target in [0, 1], where 1
// means identical. Each axis contributes |candidate-target|/π (capped at
// 1, the largest divergence on a bounded axis; a non-finite difference
// counts as 1); progress is one minus the mean of the three ratios,
// truncated to two decimals.
func Progress(candidate, target Attitude) float64 {
	ratio := (axisRatio(candidate.Roll, target.Roll) +
		axisRatio(candidate.Pitch, target.Pitch) +
		axisRatio(candidate.Yaw, target.Yaw)) / 3

	return Truncate(1-ratio, Precision)
}

func axisRatio(a, b float64) float64 {
	r := math.Abs(a-b) / math.Pi
	if math.IsNaN(r) || r > 1 {
		return 1
	}
	return r
}

// ComputeAttitudeFromAccel computes roll and pitch from accelerometer data only.
// Yaw is set to 0 (no magnetometer fusion).
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputeAttitudeFromAccel(ax, ay, az float64) Attitude {
	return Attitude{
		Roll:  math.Atan2(ay, az),
		Pitch: math.Atan2(-ax, math.Sqrt(ay*ay+az*az)),
		Yaw:   0,
	}
}
