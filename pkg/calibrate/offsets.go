// Package calibrate recovers the per-joint offsets that align a leader rig's
// raw encoder angles with a reference robot pose.
package calibrate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/gwillem/isoteleop/pkg/robot"
)

const (
	// NumCandidates is the number of offsets tried per joint, π/2 apart.
	NumCandidates = 33
	// SearchSpan bounds the candidates to [-SearchSpan, SearchSpan], four full
	// turns either way.
	SearchSpan = 8 * math.Pi
	// DefaultTolerance is the largest accepted difference, in radians, between
	// a computed and a configured offset. Offsets are printed to three
	// decimals, so a hand-copied value is within 5e-4 of the computed one.
	DefaultTolerance = 0.01
)

// ErrCalibrationMismatch is returned when computed offsets disagree with the configured ones.
var ErrCalibrationMismatch = errors.New("calibration mismatch")

// Candidates returns the offsets searched for each joint in ascending order.
func Candidates() []float64 {
	return floats.Span(make([]float64, NumCandidates), -SearchSpan, SearchSpan)
}

// ComputeOffsets finds, for each joint independently, the candidate offset that
// brings sign*(raw-offset) closest to the reference. Ties go to the lowest
// candidate. raw may carry extra trailing channels (e.g. a gripper); they are
// ignored.
func ComputeOffsets(reference, raw []float64, signs []int) ([]float64, error) {
	if len(reference) != len(signs) {
		return nil, fmt.Errorf("%w: reference pose has %d joints, signs have %d", robot.ErrConfiguration, len(reference), len(signs))
	}
	if len(raw) < len(signs) {
		return nil, fmt.Errorf("%w: raw sample has %d joints, need %d", robot.ErrConfiguration, len(raw), len(signs))
	}

	grid := Candidates()
	offsets := make([]float64, len(signs))
	for i, s := range signs {
		offsets[i] = searchOffset(grid, raw[i], reference[i], float64(s))
	}
	return offsets, nil
}

func searchOffset(grid []float64, raw, ref, sign float64) float64 {
	best := 0.0
	bestErr := math.Inf(1)
	for _, o := range grid {
		if e := jointError(o, raw, ref, sign); e < bestErr {
			best, bestErr = o, e
		}
	}
	return best
}

func jointError(offset, raw, ref, sign float64) float64 {
	return math.Abs(sign*(raw-offset) - ref)
}

// Residuals returns, per joint, the angle between the calibrated reading and
// the reference, wrapped to (-π, π].
func Residuals(reference, raw []float64, signs []int, offsets []float64) []float64 {
	res := make([]float64, len(offsets))
	for i := range offsets {
		res[i] = robot.WrapAngle(float64(signs[i])*(raw[i]-offsets[i]) - reference[i])
	}
	return res
}

// Compare checks computed offsets against expected ones. Any joint differing by
// more than tol, or a length difference, yields ErrCalibrationMismatch.
func Compare(computed, expected []float64, tol float64) error {
	if len(computed) != len(expected) {
		return fmt.Errorf("%w: computed %d offsets, configured %d", ErrCalibrationMismatch, len(computed), len(expected))
	}

	var bad []string
	for i := range computed {
		if math.Abs(computed[i]-expected[i]) > tol {
			bad = append(bad, fmt.Sprintf("joint_%d computed %.3f configured %.3f", i+1, computed[i], expected[i]))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrCalibrationMismatch, strings.Join(bad, "; "))
	}
	return nil
}
