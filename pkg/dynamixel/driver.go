package dynamixel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrNotOpen is returned when operations are attempted on a closed driver.
var ErrNotOpen = errors.New("driver not open")

const replyTimeout = 100 * time.Millisecond

// Driver reads and writes multi-turn joint angles for a fixed list of motor IDs.
type Driver struct {
	port    io.ReadWriteCloser
	handler *Handler
	ids     []int
	mu      sync.Mutex
	isOpen  bool
}

// Open opens the serial port and returns a driver for ids with torque disabled,
// so the rig can be moved by hand.
func Open(portName string, baudRate int, ids []int) (*Driver, error) {
	d, err := OpenBus(portName, baudRate, ids)
	if err != nil {
		return nil, err
	}
	if err := d.SetTorque(context.Background(), false); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// OpenBus opens the serial port without touching the motors.
func OpenBus(portName string, baudRate int, ids []int) (*Driver, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(replyTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return NewDriver(port, ids), nil
}

// NewDriver builds a driver on an already open bus connection.
func NewDriver(port io.ReadWriteCloser, ids []int) *Driver {
	return &Driver{
		port:    port,
		handler: NewHandler(port, replyTimeout),
		ids:     append([]int(nil), ids...),
		isOpen:  true,
	}
}

// Close closes the driver and releases resources.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isOpen {
		return nil
	}

	d.isOpen = false
	return d.port.Close()
}

// checkOpen verifies the driver is open.
func (d *Driver) checkOpen() error {
	if !d.isOpen {
		return ErrNotOpen
	}
	return nil
}

// SetTorque enables or disables torque on every motor.
func (d *Driver) SetTorque(ctx context.Context, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpen(); err != nil {
		return err
	}

	var v byte
	if enabled {
		v = 1
	}
	for _, id := range d.ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.handler.Write(byte(id), AddrTorqueEnable, v); err != nil {
			return fmt.Errorf("failed to set torque on motor %d: %w", id, err)
		}
	}
	return nil
}

// ReadAllAngles reads the present position of every motor in radians.
func (d *Driver) ReadAllAngles(ctx context.Context) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	angles := make([]float64, len(d.ids))
	for i, id := range d.ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := d.handler.Read(byte(id), AddrPresentPosition, 4)
		if err != nil {
			return nil, fmt.Errorf("failed to read position from motor %d: %w", id, err)
		}
		angles[i] = TicksToRadians(int32(binary.LittleEndian.Uint32(data)))
	}
	return angles, nil
}

// WriteAllAngles writes goal positions in radians, one per motor.
func (d *Driver) WriteAllAngles(ctx context.Context, angles []float64) error {
	if len(angles) != len(d.ids) {
		return fmt.Errorf("expected %d positions, got %d", len(d.ids), len(angles))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpen(); err != nil {
		return err
	}

	for i, id := range d.ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := binary.LittleEndian.AppendUint32(nil, uint32(RadiansToTicks(angles[i])))
		if err := d.handler.Write(byte(id), AddrGoalPosition, data...); err != nil {
			return fmt.Errorf("failed to write position to motor %d: %w", id, err)
		}
	}
	return nil
}

// Ping returns the model number of each motor, keyed by ID.
func (d *Driver) Ping() (map[int]uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	models := make(map[int]uint16, len(d.ids))
	for _, id := range d.ids {
		model, err := d.handler.Ping(byte(id))
		if err != nil {
			return nil, fmt.Errorf("failed to ping motor %d: %w", id, err)
		}
		models[id] = model
	}
	return models, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
