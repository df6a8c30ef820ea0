package main

import (
	"fmt"
	"strings"

	"github.com/gwillem/isoteleop/pkg/dynamixel"
	"github.com/gwillem/isoteleop/pkg/robot"
)

type PortsCommand struct {
	BaudRate int `long:"baudrate" description:"Override the configured baud rate"`
}

func (c *PortsCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return err
	}
	dxl := cfg.Record.Teleop.DynamixelConfig
	if c.BaudRate > 0 {
		dxl.BaudRate = c.BaudRate
	}
	tc, err := cfg.TranslatorConfig()
	if err != nil {
		return err
	}
	ids := tc.ActiveJointIDs()

	ports, err := dynamixel.ListPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}

	fmt.Printf("Scanning for motors %v at %d baud...\n\n", ids, dxl.BaudRate)

	found := 0
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		models, err := pingPort(port, dxl.BaudRate, ids)
		if err != nil {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  %s: %v", port, err)))
			continue
		}
		found++
		marker := ""
		if port == dxl.Port {
			marker = " (configured)"
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("  %s%s", port, marker)))
		for _, id := range ids {
			fmt.Printf("    motor %d: model %d\n", id, models[id])
		}
	}

	fmt.Println()
	if found == 0 {
		return fmt.Errorf("no port answered for all of %v", ids)
	}
	return nil
}

func pingPort(port string, baudRate int, ids []int) (map[int]uint16, error) {
	d, err := dynamixel.OpenBus(port, baudRate, ids)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.Ping()
}
