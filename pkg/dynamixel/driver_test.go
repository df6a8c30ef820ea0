package dynamixel

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMotor struct {
	table   [256]byte
	errCode byte
}

func (m *fakeMotor) position(addr uint16) int32 {
	return int32(binary.LittleEndian.Uint32(m.table[addr:]))
}

// fakeBus answers instruction packets the way a chain of servos would.
type fakeBus struct {
	motors map[byte]*fakeMotor
	echo   bool
	out    bytes.Buffer
	closed bool
}

func newFakeBus(ids ...byte) *fakeBus {
	b := &fakeBus{motors: make(map[byte]*fakeMotor)}
	for _, id := range ids {
		b.motors[id] = &fakeMotor{}
	}
	return b
}

func (b *fakeBus) Write(p []byte) (int, error) {
	if b.echo {
		b.out.Write(p)
	}
	id, body, err := readPacket(bytes.NewReader(p), time.Second)
	if err != nil {
		return 0, err
	}
	m, ok := b.motors[id]
	if !ok {
		return len(p), nil
	}

	var reply []byte
	params := body[1:]
	switch body[0] {
	case instPing:
		reply = []byte{0x06, 0x04, 0x26}
	case instRead:
		addr := binary.LittleEndian.Uint16(params)
		n := binary.LittleEndian.Uint16(params[2:])
		reply = append(reply, m.table[addr:addr+n]...)
	case instWrite:
		addr := binary.LittleEndian.Uint16(params)
		copy(m.table[addr:], params[2:])
	}
	b.out.Write(encodePacket(id, instStatus, append([]byte{m.errCode}, reply...)))
	return len(p), nil
}

func (b *fakeBus) Read(p []byte) (int, error) {
	return b.out.Read(p)
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBus) setPosition(id byte, ticks int32) {
	binary.LittleEndian.PutUint32(b.motors[id].table[AddrPresentPosition:], uint32(ticks))
}

func TestDriver_ReadAllAngles(t *testing.T) {
	bus := newFakeBus(1, 2, 3)
	bus.setPosition(1, 2048)
	bus.setPosition(2, -1024)
	bus.setPosition(3, 4096*3)
	d := NewDriver(bus, []int{1, 2, 3})

	angles, err := d.ReadAllAngles(context.Background())
	require.NoError(t, err)
	require.Len(t, angles, 3)
	assert.InDelta(t, math.Pi, angles[0], 1e-12)
	assert.InDelta(t, -math.Pi/2, angles[1], 1e-12)
	assert.InDelta(t, 6*math.Pi, angles[2], 1e-12)
}

func TestDriver_ReadOrderFollowsIDs(t *testing.T) {
	bus := newFakeBus(1, 2)
	bus.setPosition(1, 1024)
	bus.setPosition(2, 2048)
	d := NewDriver(bus, []int{2, 1})

	angles, err := d.ReadAllAngles(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, angles[0], 1e-12)
	assert.InDelta(t, math.Pi/2, angles[1], 1e-12)
}

func TestDriver_WriteAllAngles(t *testing.T) {
	bus := newFakeBus(1, 2)
	d := NewDriver(bus, []int{1, 2})

	require.NoError(t, d.WriteAllAngles(context.Background(), []float64{math.Pi, -3 * math.Pi}))
	assert.Equal(t, int32(2048), bus.motors[1].position(AddrGoalPosition))
	assert.Equal(t, int32(-6144), bus.motors[2].position(AddrGoalPosition))

	err := d.WriteAllAngles(context.Background(), []float64{0})
	assert.Error(t, err)
}

func TestDriver_SetTorque(t *testing.T) {
	bus := newFakeBus(1, 2)
	d := NewDriver(bus, []int{1, 2})

	require.NoError(t, d.SetTorque(context.Background(), true))
	assert.Equal(t, byte(1), bus.motors[1].table[AddrTorqueEnable])
	assert.Equal(t, byte(1), bus.motors[2].table[AddrTorqueEnable])

	require.NoError(t, d.SetTorque(context.Background(), false))
	assert.Equal(t, byte(0), bus.motors[1].table[AddrTorqueEnable])
}

func TestDriver_EchoIgnored(t *testing.T) {
	bus := newFakeBus(1)
	bus.echo = true
	bus.setPosition(1, 512)
	d := NewDriver(bus, []int{1})

	angles, err := d.ReadAllAngles(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, angles[0], 1e-12)
}

func TestDriver_MissingMotorTimesOut(t *testing.T) {
	bus := newFakeBus(1)
	d := NewDriver(bus, []int{1, 9})

	_, err := d.ReadAllAngles(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDriver_StatusError(t *testing.T) {
	bus := newFakeBus(1)
	bus.motors[1].errCode = 0x80 | 6
	d := NewDriver(bus, []int{1})

	_, err := d.ReadAllAngles(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, byte(6), se.Code)
	assert.True(t, se.Alert)
}

func TestDriver_Ping(t *testing.T) {
	bus := newFakeBus(1, 2)
	d := NewDriver(bus, []int{1, 2})

	models, err := d.Ping()
	require.NoError(t, err)
	assert.Equal(t, map[int]uint16{1: 1030, 2: 1030}, models)
}

func TestDriver_Close(t *testing.T) {
	bus := newFakeBus(1)
	d := NewDriver(bus, []int{1})

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.True(t, bus.closed)

	_, err := d.ReadAllAngles(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, d.SetTorque(context.Background(), true), ErrNotOpen)
}

func TestDriver_CanceledContext(t *testing.T) {
	bus := newFakeBus(1)
	d := NewDriver(bus, []int{1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.ReadAllAngles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
