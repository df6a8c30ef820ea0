package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"cfg.yaml" description:"Recorder configuration file"`
	LogFile string `long:"log-file" description:"Write logs to a rotated file instead of stderr"`

	Offsets     OffsetsCommand     `command:"offsets" description:"Compute leader joint offsets against the robot's current pose"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Stream the calibrated leader joint state"`
	Ports       PortsCommand       `command:"ports" description:"Find serial ports where Dynamixel motors answer for the configured joint IDs"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "isoteleop - joint-space bridge between a Dynamixel leader rig and a UR5e"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		setupLogging(opts.LogFile)
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
