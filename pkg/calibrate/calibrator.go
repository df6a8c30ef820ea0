package calibrate

import (
	"context"
	"fmt"

	"github.com/gwillem/isoteleop/pkg/robot"
)

// DefaultWarmupReads is the number of samples discarded before calibrating,
// letting the rig's own filtering settle.
const DefaultWarmupReads = 10

// PoseSource reads a robot's joint angles in radians.
type PoseSource interface {
	ReadJointPositions(ctx context.Context) ([]float64, error)
}

// StaticPose is a PoseSource returning a fixed pose, e.g. a configured start pose.
type StaticPose []float64

// ReadJointPositions returns a copy of the pose.
func (p StaticPose) ReadJointPositions(context.Context) ([]float64, error) {
	return append([]float64(nil), p...), nil
}

// Calibrator samples a leader rig and a reference robot and computes offsets.
type Calibrator struct {
	Driver      robot.Driver
	Reference   PoseSource
	Signs       []int
	WarmupReads int
	Logger      robot.Logger
}

// Result is the outcome of one calibration run.
type Result struct {
	Reference []float64
	Raw       []float64
	Offsets   []float64
	// Residuals are the wrapped per-joint errors left after applying Offsets.
	Residuals []float64
}

// Run reads the reference pose, discards the warm-up burst, takes one raw
// sample and searches the offsets. The leader rig must be held in the
// reference pose throughout.
func (c *Calibrator) Run(ctx context.Context) (Result, error) {
	reference, err := c.Reference.ReadJointPositions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read reference pose: %w", err)
	}
	c.logf("reference pose: %s", formatAngles(reference))

	warmup := c.WarmupReads
	if warmup <= 0 {
		warmup = DefaultWarmupReads
	}
	for i := 0; i < warmup; i++ {
		if _, err := c.Driver.ReadAllAngles(ctx); err != nil {
			return Result{}, fmt.Errorf("warm-up read %d: %w", i+1, err)
		}
	}

	raw, err := c.Driver.ReadAllAngles(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("sample leader: %w", err)
	}

	offsets, err := ComputeOffsets(reference, raw, c.Signs)
	if err != nil {
		return Result{}, err
	}
	c.logf("joint offsets: %s", formatAngles(offsets))

	return Result{
		Reference: reference,
		Raw:       raw,
		Offsets:   offsets,
		Residuals: Residuals(reference, raw, c.Signs, offsets),
	}, nil
}

func (c *Calibrator) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func formatAngles(v []float64) string {
	s := "["
	for i, a := range v {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%.3f", a)
	}
	return s + "]"
}
