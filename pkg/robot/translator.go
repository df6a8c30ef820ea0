package robot

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// SmoothingAlpha is the weight of the fresh sample in the exponential filter.
// It is deliberately close to 1: the filter removes encoder jitter without
// adding noticeable lag.
const SmoothingAlpha = 0.99

var (
	// ErrConfiguration is returned for invalid joint, offset, sign or gripper settings.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrInvariantViolation is returned when a driver breaks its read-length contract.
	ErrInvariantViolation = errors.New("driver contract violated")
	// ErrCommandShape is returned when a command is not an arm-only joint vector.
	ErrCommandShape = errors.New("command must be an arm-only joint vector")
)

// Logger receives informational messages. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// GripperConfig describes the gripper channel of the leader rig.
// ClosedRaw and OpenRaw are the raw positions that map to 0 and 1.
type GripperConfig struct {
	ID        int
	ClosedRaw float64
	OpenRaw   float64
}

// TranslatorConfig holds the calibration for a leader rig.
type TranslatorConfig struct {
	JointIDs   []int
	Offsets    []float64
	Signs      []int
	UseGripper bool
	Gripper    *GripperConfig
	Logger     Logger
}

// Validate checks lengths and values. It never touches hardware.
func (c TranslatorConfig) Validate() error {
	if len(c.JointIDs) != NumArmJoints {
		return fmt.Errorf("%w: joint_ids must have length %d, got %d", ErrConfiguration, NumArmJoints, len(c.JointIDs))
	}
	if len(c.Offsets) != NumArmJoints {
		return fmt.Errorf("%w: joint_offsets must have length %d, got %d", ErrConfiguration, NumArmJoints, len(c.Offsets))
	}
	if len(c.Signs) != NumArmJoints {
		return fmt.Errorf("%w: joint_signs must have length %d, got %d", ErrConfiguration, NumArmJoints, len(c.Signs))
	}
	for i, s := range c.Signs {
		if s != 1 && s != -1 {
			return fmt.Errorf("%w: joint_signs[%d] must be -1 or 1, got %d", ErrConfiguration, i, s)
		}
	}
	if c.UseGripper {
		if c.Gripper == nil {
			return fmt.Errorf("%w: use_gripper is set but gripper_config is missing", ErrConfiguration)
		}
		if c.Gripper.OpenRaw == c.Gripper.ClosedRaw {
			return fmt.Errorf("%w: gripper open and closed positions are both %f", ErrConfiguration, c.Gripper.OpenRaw)
		}
	}
	return nil
}

// ActiveJointIDs returns the joint IDs the driver must serve, with the gripper
// appended when enabled.
func (c TranslatorConfig) ActiveJointIDs() []int {
	ids := append([]int(nil), c.JointIDs...)
	if c.UseGripper && c.Gripper != nil {
		ids = append(ids, c.Gripper.ID)
	}
	return ids
}

// Translator converts raw driver angles into a calibrated, smoothed joint state
// and back. It is not safe for concurrent use.
type Translator struct {
	driver  Driver
	log     Logger
	ids     []int
	offsets []float64
	signs   []float64
	gripper *GripperConfig

	// prev is the last smoothed state; nil until the first read seeds it.
	prev     []float64
	torqueOn bool
}

// NewTranslator validates cfg and binds it to drv. The driver is expected to
// start with torque disabled.
func NewTranslator(cfg TranslatorConfig, drv Driver) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Translator{
		driver:  drv,
		log:     cfg.Logger,
		ids:     cfg.ActiveJointIDs(),
		offsets: append([]float64(nil), cfg.Offsets...),
		signs:   make([]float64, NumArmJoints),
	}
	if t.log == nil {
		t.log = nopLogger{}
	}
	for i, s := range cfg.Signs {
		t.signs[i] = float64(s)
	}
	if cfg.UseGripper {
		g := *cfg.Gripper
		t.gripper = &g
		t.offsets = append(t.offsets, 0)
		t.signs = append(t.signs, 1)
	}
	return t, nil
}

// SetLogger replaces the logger given at construction. A nil l silences it.
func (t *Translator) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	t.log = l
}

// NumDOFs returns 6, or 7 with the gripper enabled.
func (t *Translator) NumDOFs() int {
	return len(t.ids)
}

// JointIDs returns the active joint IDs in order.
func (t *Translator) JointIDs() []int {
	return append([]int(nil), t.ids...)
}

// HasGripper reports whether the gripper channel is enabled.
func (t *Translator) HasGripper() bool {
	return t.gripper != nil
}

// Calibrate applies offsets and signs to a raw reading and normalizes the
// gripper channel to [0, 1]. No smoothing is applied.
func (t *Translator) Calibrate(raw []float64) ([]float64, error) {
	if len(raw) != t.NumDOFs() {
		return nil, fmt.Errorf("%w: read %d angles, expected %d", ErrInvariantViolation, len(raw), t.NumDOFs())
	}

	pos := make([]float64, len(raw))
	floats.SubTo(pos, raw, t.offsets)
	floats.Mul(pos, t.signs)

	if t.gripper != nil {
		last := len(pos) - 1
		pos[last] = t.normalizeGripper(pos[last])
	}
	return pos, nil
}

// Uncalibrate is the inverse of Calibrate for the arm joints.
func (t *Translator) Uncalibrate(state []float64) ([]float64, error) {
	if len(state) != NumArmJoints {
		return nil, fmt.Errorf("%w: got %d values, expected %d", ErrCommandShape, len(state), NumArmJoints)
	}

	raw := make([]float64, NumArmJoints)
	floats.DivTo(raw, state, t.signs[:NumArmJoints])
	floats.Add(raw, t.offsets[:NumArmJoints])
	return raw, nil
}

func (t *Translator) normalizeGripper(pos float64) float64 {
	g := (pos - t.gripper.ClosedRaw) / (t.gripper.OpenRaw - t.gripper.ClosedRaw)
	return Clamp(g, 0, 1)
}

func (t *Translator) denormalizeGripper(g float64) float64 {
	return t.gripper.ClosedRaw + g*(t.gripper.OpenRaw-t.gripper.ClosedRaw)
}

// JointState reads the driver and returns the calibrated state, exponentially
// smoothed against the previous read. The first read seeds the filter.
func (t *Translator) JointState(ctx context.Context) ([]float64, error) {
	raw, err := t.driver.ReadAllAngles(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := t.Calibrate(raw)
	if err != nil {
		return nil, err
	}

	if t.prev == nil {
		t.prev = pos
	} else {
		floats.Scale(1-SmoothingAlpha, t.prev)
		floats.AddScaled(t.prev, SmoothingAlpha, pos)
	}
	return append([]float64(nil), t.prev...), nil
}

// ResetSmoothing discards the filter state; the next read seeds it again.
func (t *Translator) ResetSmoothing() {
	t.prev = nil
}

// CommandJointState writes an arm-only calibrated target to the driver. With the
// gripper enabled, the gripper channel is held at its last observed position
// (closed before any read).
func (t *Translator) CommandJointState(ctx context.Context, target []float64) error {
	raw, err := t.Uncalibrate(target)
	if err != nil {
		return err
	}

	if t.gripper != nil {
		g := 0.0
		if t.prev != nil {
			g = t.prev[len(t.prev)-1]
		}
		raw = append(raw, t.denormalizeGripper(g))
	}
	return t.driver.WriteAllAngles(ctx, raw)
}

// SetTorque switches torque on the rig. Repeating the current mode is a no-op.
func (t *Translator) SetTorque(ctx context.Context, enabled bool) error {
	if enabled == t.torqueOn {
		return nil
	}
	if err := t.driver.SetTorque(ctx, enabled); err != nil {
		return fmt.Errorf("set torque: %w", err)
	}
	t.torqueOn = enabled
	t.log.Printf("leader torque enabled=%t", enabled)
	return nil
}

// Observations reads the joint state and splits it into named arm joints and
// the optional gripper.
func (t *Translator) Observations(ctx context.Context) (Observation, error) {
	state, err := t.JointState(ctx)
	if err != nil {
		return Observation{}, err
	}

	var obs Observation
	copy(obs.Joints[:], state[:NumArmJoints])
	if t.gripper != nil {
		g := state[NumArmJoints]
		obs.Gripper = &g
	}
	return obs, nil
}

// Close releases the driver.
func (t *Translator) Close() error {
	return t.driver.Close()
}
