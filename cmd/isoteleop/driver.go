package main

import (
	"context"
	"fmt"

	"github.com/gwillem/isoteleop/pkg/dynamixel"
	"github.com/gwillem/isoteleop/pkg/robot"
)

// openDriver opens the configured leader backend for ids, torque off.
func openDriver(dxl robot.DynamixelConfig, ids []int) (robot.Driver, error) {
	switch dxl.Backend {
	case robot.BackendDynamixel:
		d, err := dynamixel.Open(dxl.Port, dxl.BaudRate, ids)
		if err != nil {
			return nil, err
		}
		return d, nil
	case robot.BackendFeetech:
		d, err := robot.NewFeetechDriver(dxl.Port, dxl.BaudRate, ids)
		if err != nil {
			return nil, err
		}
		if err := d.SetTorque(context.Background(), false); err != nil {
			d.Close()
			return nil, fmt.Errorf("disable torque: %w", err)
		}
		return d, nil
	case robot.BackendSim:
		return robot.NewFakeDriver(ids), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", robot.ErrConfiguration, dxl.Backend)
	}
}
