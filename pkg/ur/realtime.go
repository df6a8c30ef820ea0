// Package ur reads the actual joint positions of a Universal Robots arm.
package ur

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"time"
)

const (
	// RealtimePort streams the controller state at the control rate.
	RealtimePort = 30003

	// NumJoints is the number of arm joints reported.
	NumJoints = 6

	// Byte offset of q_actual inside a real-time packet: message size (4),
	// time (8), then five 6-vectors (target q, qd, qdd, current, moment).
	qActualOffset = 4 + 8 + 5*NumJoints*8

	maxPacketSize = 4096
)

// Client reads joint positions from the controller's real-time interface.
type Client struct {
	Addr    string
	Timeout time.Duration
}

// NewClient returns a client for the controller at ip.
func NewClient(ip string) *Client {
	return &Client{
		Addr:    net.JoinHostPort(ip, strconv.Itoa(RealtimePort)),
		Timeout: 2 * time.Second,
	}
}

// ReadJointPositions connects, reads one state packet and returns q_actual in radians.
func (c *Client) ReadJointPositions(ctx context.Context) ([]float64, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("connect to robot: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	q, err := ReadPacket(conn)
	if err != nil {
		return nil, fmt.Errorf("read robot state: %w", err)
	}
	return q, nil
}

// ReadPacket reads one real-time packet from r and decodes q_actual.
func ReadPacket(r io.Reader) ([]float64, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(size[:]))
	if n < qActualOffset+NumJoints*8 || n > maxPacketSize {
		return nil, fmt.Errorf("unexpected packet size %d", n)
	}

	pkt := make([]byte, n)
	copy(pkt, size[:])
	if _, err := io.ReadFull(r, pkt[4:]); err != nil {
		return nil, err
	}

	q := make([]float64, NumJoints)
	for i := range q {
		off := qActualOffset + i*8
		q[i] = math.Float64frombits(binary.BigEndian.Uint64(pkt[off:]))
	}
	return q, nil
}
