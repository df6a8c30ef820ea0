package dynamixel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrChecksum is returned when a status packet fails its CRC.
	ErrChecksum = errors.New("status packet checksum mismatch")
	// ErrTimeout is returned when no complete status packet arrives in time.
	ErrTimeout = errors.New("status packet timeout")
)

var header = []byte{0xFF, 0xFF, 0xFD, 0x00}

// StatusError is a non-zero error field in a status packet.
type StatusError struct {
	ID    byte
	Code  byte
	Alert bool
}

func (e *StatusError) Error() string {
	msg := "unknown error"
	switch e.Code {
	case 0:
		msg = "hardware alert"
	case 1:
		msg = "result fail"
	case 2:
		msg = "instruction error"
	case 3:
		msg = "crc error"
	case 4:
		msg = "data range error"
	case 5:
		msg = "data length error"
	case 6:
		msg = "data limit error"
	case 7:
		msg = "access error"
	}
	return fmt.Sprintf("motor %d: %s", e.ID, msg)
}

// crc16 is CRC-16/BUYPASS as used by Protocol 2.0.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// stuff inserts 0xFD after every FF FF FD in body so it cannot be mistaken for a header.
func stuff(body []byte) []byte {
	out := make([]byte, 0, len(body)+2)
	for i, b := range body {
		out = append(out, b)
		if b == 0xFD && i >= 2 && body[i-1] == 0xFF && body[i-2] == 0xFF {
			out = append(out, 0xFD)
		}
	}
	return out
}

// unstuff reverses stuff.
func unstuff(body []byte) []byte {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		out = append(out, body[i])
		if body[i] == 0xFD && i >= 2 && body[i-1] == 0xFF && body[i-2] == 0xFF && i+1 < len(body) && body[i+1] == 0xFD {
			i++
		}
	}
	return out
}

// encodePacket frames an instruction (or status) byte and its parameters for id.
func encodePacket(id, inst byte, params []byte) []byte {
	body := stuff(append([]byte{inst}, params...))
	pkt := make([]byte, 0, len(header)+3+len(body)+2)
	pkt = append(pkt, header...)
	pkt = append(pkt, id)
	pkt = binary.LittleEndian.AppendUint16(pkt, uint16(len(body)+2))
	pkt = append(pkt, body...)
	return binary.LittleEndian.AppendUint16(pkt, crc16(pkt))
}

// readPacket reads one packet from r, skipping bytes until a header is found.
// It returns the id and the unstuffed instruction byte plus parameters.
func readPacket(r io.Reader, timeout time.Duration) (byte, []byte, error) {
	deadline := time.Now().Add(timeout)
	one := make([]byte, 1)
	var window []byte
	for !bytes.Equal(window, header) {
		if err := readFull(r, one, deadline); err != nil {
			return 0, nil, err
		}
		window = append(window, one[0])
		if len(window) > len(header) {
			window = window[1:]
		}
	}

	idLen := make([]byte, 3)
	if err := readFull(r, idLen, deadline); err != nil {
		return 0, nil, err
	}
	n := int(binary.LittleEndian.Uint16(idLen[1:]))
	if n < 3 {
		return 0, nil, fmt.Errorf("bad packet length %d", n)
	}
	rest := make([]byte, n)
	if err := readFull(r, rest, deadline); err != nil {
		return 0, nil, err
	}

	pkt := append(append(append([]byte{}, header...), idLen...), rest[:n-2]...)
	if got := binary.LittleEndian.Uint16(rest[n-2:]); got != crc16(pkt) {
		return 0, nil, ErrChecksum
	}
	return idLen[0], unstuff(rest[:n-2]), nil
}

// readFull fills buf, treating an empty read as "no data yet" the way serial
// ports with a read timeout report it.
func readFull(r io.Reader, buf []byte, deadline time.Time) error {
	for off := 0; off < len(buf); {
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		n, err := r.Read(buf[off:])
		off += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrTimeout
			}
			return err
		}
	}
	return nil
}

// Handler sends instructions and decodes status replies over one half-duplex bus.
type Handler struct {
	rw      io.ReadWriter
	timeout time.Duration
}

// NewHandler wraps a bus connection. timeout bounds each status read.
func NewHandler(rw io.ReadWriter, timeout time.Duration) *Handler {
	return &Handler{rw: rw, timeout: timeout}
}

func (h *Handler) transact(id, inst byte, params []byte) ([]byte, error) {
	if _, err := h.rw.Write(encodePacket(id, inst, params)); err != nil {
		return nil, fmt.Errorf("write instruction: %w", err)
	}

	for {
		rid, body, err := readPacket(h.rw, h.timeout)
		if err != nil {
			return nil, err
		}
		// Our own echo on some adapters, or a stale reply from another id.
		if rid != id || len(body) < 2 || body[0] != instStatus {
			continue
		}
		if code := body[1]; code != 0 {
			return nil, &StatusError{ID: id, Code: code & 0x7F, Alert: code&0x80 != 0}
		}
		return body[2:], nil
	}
}

// Ping returns the model number of the servo with the given id.
func (h *Handler) Ping(id byte) (uint16, error) {
	params, err := h.transact(id, instPing, nil)
	if err != nil {
		return 0, err
	}
	if len(params) < 2 {
		return 0, fmt.Errorf("short ping reply from motor %d", id)
	}
	return binary.LittleEndian.Uint16(params), nil
}

// Read reads length bytes from the control table at addr.
func (h *Handler) Read(id byte, addr uint16, length uint16) ([]byte, error) {
	params := binary.LittleEndian.AppendUint16(nil, addr)
	params = binary.LittleEndian.AppendUint16(params, length)
	data, err := h.transact(id, instRead, params)
	if err != nil {
		return nil, err
	}
	if len(data) != int(length) {
		return nil, fmt.Errorf("motor %d returned %d bytes, want %d", id, len(data), length)
	}
	return data, nil
}

// Write writes data to the control table at addr.
func (h *Handler) Write(id byte, addr uint16, data ...byte) error {
	params := binary.LittleEndian.AppendUint16(nil, addr)
	_, err := h.transact(id, instWrite, append(params, data...))
	return err
}
