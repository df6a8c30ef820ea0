package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/isoteleop/pkg/calibrate"
	"github.com/gwillem/isoteleop/pkg/robot"
	"github.com/gwillem/isoteleop/pkg/ur"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type OffsetsCommand struct {
	RobotIP    string  `long:"robot-ip" description:"Override the robot address from the config"`
	FromConfig bool    `long:"from-config" description:"Use start_joints from the config instead of reading the robot"`
	Warmup     int     `long:"warmup" default:"10" description:"Leader reads discarded before sampling"`
	Tolerance  float64 `long:"tolerance" default:"0.01" description:"Allowed difference (rad) between computed and configured offsets"`
	Write      bool    `long:"write" description:"Save the computed offsets to the config file"`
	Yes        bool    `short:"y" long:"yes" description:"Do not wait for confirmation before sampling"`
}

func (c *OffsetsCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return err
	}
	dxl := cfg.Record.Teleop.DynamixelConfig

	fmt.Println(headerStyle.Render("Leader joint offsets"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	reference, err := c.referenceSource(cfg)
	if err != nil {
		return err
	}

	if !c.Yes {
		waitForUser("Hold the leader arm in the same pose as the robot.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	drv, err := openDriver(dxl, dxl.JointIDs)
	if err != nil {
		return fmt.Errorf("open leader: %w", err)
	}
	defer drv.Close()

	cal := &calibrate.Calibrator{
		Driver:      drv,
		Reference:   reference,
		Signs:       dxl.JointSigns,
		WarmupReads: c.Warmup,
		Logger:      log.Default(),
	}
	res, err := cal.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(renderResult(res, dxl.JointOffsets))
	fmt.Println()

	cmpErr := calibrate.Compare(res.Offsets, dxl.JointOffsets, c.Tolerance)
	switch {
	case cmpErr == nil:
		fmt.Println(successStyle.Render("Configured offsets match."))
		return nil
	case c.Write:
		cfg.Record.Teleop.DynamixelConfig.JointOffsets = res.Offsets
		if err := cfg.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Offsets saved to %s\n", opts.Config)
		return nil
	default:
		fmt.Println(warnStyle.Render("Configured offsets do not match. Re-run with --write to save the computed ones."))
		return cmpErr
	}
}

func (c *OffsetsCommand) referenceSource(cfg *robot.Config) (calibrate.PoseSource, error) {
	if c.FromConfig {
		start := cfg.Record.Teleop.StartJoints
		if len(start) != robot.NumArmJoints {
			return nil, fmt.Errorf("%w: start_joints must have length %d, got %d", robot.ErrConfiguration, robot.NumArmJoints, len(start))
		}
		return calibrate.StaticPose(start), nil
	}

	ip := cfg.Record.Robot.IP
	if c.RobotIP != "" {
		ip = c.RobotIP
	}
	if ip == "" {
		return nil, errors.New("no robot address: set record.robot.ip, pass --robot-ip or use --from-config")
	}
	return ur.NewClient(ip), nil
}

func renderResult(res calibrate.Result, configured []float64) string {
	rows := make([][]string, 0, len(res.Offsets))
	for i := range res.Offsets {
		conf := "-"
		if i < len(configured) {
			conf = strconv.FormatFloat(configured[i], 'f', 3, 64)
		}
		rows = append(rows, []string{
			robot.JointKey(i),
			strconv.FormatFloat(res.Reference[i], 'f', 3, 64),
			strconv.FormatFloat(res.Raw[i], 'f', 3, 64),
			strconv.FormatFloat(res.Offsets[i], 'f', 3, 64),
			conf,
			strconv.FormatFloat(res.Residuals[i], 'f', 3, 64),
		})
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Robot", "Raw", "Offset", "Configured", "Residual").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Render()
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}
