package robot

import (
	"context"
	"fmt"
	"math"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Feetech STS servos report single-turn positions in 0..4095.
const feetechTicksPerRevolution = 4096

// FeetechDriver is a Driver backed by a Feetech STS serial bus.
type FeetechDriver struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
	ids   []int
}

// NewFeetechDriver opens the bus on port and groups the servos with the given IDs.
// Readings are returned in the order of ids.
func NewFeetechDriver(port string, baudRate int, ids []int) (*FeetechDriver, error) {
	if baudRate <= 0 {
		baudRate = 1_000_000
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return &FeetechDriver{
		bus:   bus,
		group: feetech.NewServoGroupByIDs(bus, ids...),
		ids:   append([]int(nil), ids...),
	}, nil
}

// Close closes the bus connection.
func (d *FeetechDriver) Close() error {
	return d.bus.Close()
}

// SetTorque enables or disables torque on all servos.
func (d *FeetechDriver) SetTorque(ctx context.Context, enabled bool) error {
	if enabled {
		return d.group.EnableAll(ctx)
	}
	return d.group.DisableAll(ctx)
}

// ReadAllAngles reads all servo positions with a sync read.
func (d *FeetechDriver) ReadAllAngles(ctx context.Context) ([]float64, error) {
	rawPositions, err := d.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make([]float64, len(d.ids))
	for i, id := range d.ids {
		raw, ok := rawPositions[id]
		if !ok {
			return nil, fmt.Errorf("read positions: no reply from servo %d", id)
		}
		angles[i] = feetechTicksToRadians(raw)
	}
	return angles, nil
}

// WriteAllAngles writes goal positions with a sync write.
func (d *FeetechDriver) WriteAllAngles(ctx context.Context, angles []float64) error {
	if len(angles) != len(d.ids) {
		return fmt.Errorf("expected %d angles, got %d", len(d.ids), len(angles))
	}

	rawPositions := make(feetech.PositionMap, len(angles))
	for i, id := range d.ids {
		rawPositions[id] = feetechRadiansToTicks(angles[i])
	}

	if err := d.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

func feetechTicksToRadians(ticks int) float64 {
	return float64(ticks) * 2 * math.Pi / feetechTicksPerRevolution
}

func feetechRadiansToTicks(rad float64) int {
	ticks := int(math.Round(rad * feetechTicksPerRevolution / (2 * math.Pi)))
	return ticks & (feetechTicksPerRevolution - 1)
}
