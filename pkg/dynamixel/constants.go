// Package dynamixel talks Dynamixel Protocol 2.0 to the leader rig's servos.
package dynamixel

import "math"

// Protocol and communication constants.
const (
	DefaultBaudRate = 57600

	// Control table addresses (X series, Protocol 2.0)
	AddrTorqueEnable    uint16 = 64
	AddrGoalPosition    uint16 = 116
	AddrPresentPosition uint16 = 132

	// Position resolution
	TicksPerRevolution = 4096
)

// Instructions
const (
	instPing   byte = 0x01
	instRead   byte = 0x02
	instWrite  byte = 0x03
	instStatus byte = 0x55
)

// TicksToRadians converts a multi-turn position to radians. Zero ticks is zero radians.
func TicksToRadians(ticks int32) float64 {
	return float64(ticks) * 2 * math.Pi / TicksPerRevolution
}

// RadiansToTicks converts radians to a multi-turn goal position.
func RadiansToTicks(rad float64) int32 {
	return int32(math.Round(rad * TicksPerRevolution / (2 * math.Pi)))
}
