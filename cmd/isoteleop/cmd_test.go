package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/isoteleop/pkg/calibrate"
	"github.com/gwillem/isoteleop/pkg/robot"
	"github.com/gwillem/isoteleop/pkg/ur"
)

func TestSeriesNames(t *testing.T) {
	assert.Len(t, seriesNames(false), 6)
	names := seriesNames(true)
	require.Len(t, names, 7)
	assert.Equal(t, robot.GripperKey, names[6])
	assert.LessOrEqual(t, len(names), len(seriesColors))
}

func TestHasMovement(t *testing.T) {
	m := &teleopModel{}
	obs := robot.Observation{Joints: [6]float64{1, 2, 3, 4, 5, 6}}
	assert.True(t, m.hasMovement(obs))

	m.last = &obs
	assert.False(t, m.hasMovement(obs))

	moved := obs
	moved.Joints[3] = 4.5
	assert.True(t, m.hasMovement(moved))

	g := 0.5
	withGripper := obs
	withGripper.Gripper = &g
	assert.True(t, m.hasMovement(withGripper))

	m.last = &withGripper
	g2 := 0.5
	same := obs
	same.Gripper = &g2
	assert.False(t, m.hasMovement(same))
}

func TestTeleopModel_QuitsWhenControllerStops(t *testing.T) {
	m := teleopModel{}
	stopErr := fmt.Errorf("%w: read 3 angles, expected 6", robot.ErrInvariantViolation)

	next, cmd := m.Update(stoppedMsg{err: stopErr})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	final := next.(teleopModel)
	assert.True(t, final.quitting)
	assert.ErrorIs(t, final.err, robot.ErrInvariantViolation)
	assert.Contains(t, final.View(), "read 3 angles")
}

func TestReferenceSource(t *testing.T) {
	cfg := &robot.Config{}
	cfg.Record.Robot.IP = "10.0.0.2"

	src, err := (&OffsetsCommand{}).referenceSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:30003", src.(*ur.Client).Addr)

	src, err = (&OffsetsCommand{RobotIP: "10.0.0.3"}).referenceSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3:30003", src.(*ur.Client).Addr)

	_, err = (&OffsetsCommand{FromConfig: true}).referenceSource(cfg)
	assert.True(t, errors.Is(err, robot.ErrConfiguration))

	cfg.Record.Teleop.StartJoints = []float64{0, 1, 2, 3, 4, 5}
	src, err = (&OffsetsCommand{FromConfig: true}).referenceSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, calibrate.StaticPose{0, 1, 2, 3, 4, 5}, src)

	_, err = (&OffsetsCommand{}).referenceSource(&robot.Config{})
	assert.Error(t, err)
}

func TestRenderResult(t *testing.T) {
	res := calibrate.Result{
		Reference: []float64{0, 0, 0, 0, 0, 0},
		Raw:       []float64{math.Pi, 0, 0, 0, 0, 0},
		Offsets:   []float64{math.Pi, 0, 0, 0, 0, 0},
		Residuals: []float64{0, 0, 0, 0, 0, 0},
	}

	out := renderResult(res, nil)
	assert.Contains(t, out, "joint_1.pos")
	assert.Contains(t, out, "3.142")
	assert.True(t, strings.Contains(out, "-"))
}

func TestOpenDriver(t *testing.T) {
	drv, err := openDriver(robot.DynamixelConfig{Backend: robot.BackendSim}, []int{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	angles, err := drv.ReadAllAngles(t.Context())
	require.NoError(t, err)
	assert.Len(t, angles, 7)

	_, err = openDriver(robot.DynamixelConfig{Backend: "can"}, nil)
	assert.ErrorIs(t, err, robot.ErrConfiguration)
}
