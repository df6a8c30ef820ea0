package robot

import (
	"context"
	"fmt"
	"sync"
)

// Driver is the capability set the translator needs from a leader rig.
// Angles are radians, one per joint ID the driver was opened with, and may be
// offset from the physical joint angle by any multiple of 2π.
type Driver interface {
	ReadAllAngles(ctx context.Context) ([]float64, error)
	WriteAllAngles(ctx context.Context, angles []float64) error
	SetTorque(ctx context.Context, enabled bool) error
	Close() error
}

// FakeDriver is an in-memory Driver for running without hardware.
type FakeDriver struct {
	mu          sync.Mutex
	angles      []float64
	torque      bool
	torqueCalls int
	readErr     error
	closed      bool
}

// NewFakeDriver creates a simulated driver for the given joint IDs, all at zero.
func NewFakeDriver(ids []int) *FakeDriver {
	return &FakeDriver{angles: make([]float64, len(ids))}
}

// ReadAllAngles returns a copy of the simulated angles.
func (d *FakeDriver) ReadAllAngles(ctx context.Context) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return nil, d.readErr
	}
	out := make([]float64, len(d.angles))
	copy(out, d.angles)
	return out, nil
}

// WriteAllAngles replaces the simulated angles.
func (d *FakeDriver) WriteAllAngles(ctx context.Context, angles []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(angles) != len(d.angles) {
		return fmt.Errorf("expected %d angles, got %d", len(d.angles), len(angles))
	}
	copy(d.angles, angles)
	return nil
}

// SetTorque records the torque mode. Every call counts as one hardware write.
func (d *FakeDriver) SetTorque(ctx context.Context, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.torque = enabled
	d.torqueCalls++
	return nil
}

// Close marks the driver closed.
func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// SetAngles sets the simulated encoder readings, e.g. to emulate moving the rig.
func (d *FakeDriver) SetAngles(angles []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.angles = append(d.angles[:0], angles...)
}

// Angles returns the last written or set angles.
func (d *FakeDriver) Angles() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]float64(nil), d.angles...)
}

// FailReads makes subsequent reads return err. Pass nil to clear.
func (d *FakeDriver) FailReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.readErr = err
}

// TorqueCalls returns how many times SetTorque reached the driver.
func (d *FakeDriver) TorqueCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.torqueCalls
}

// Torque returns the current simulated torque mode.
func (d *FakeDriver) Torque() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.torque
}

// Closed reports whether Close was called.
func (d *FakeDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}
