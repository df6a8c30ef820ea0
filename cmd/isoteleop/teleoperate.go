package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/isoteleop/pkg/robot"
	"github.com/gwillem/isoteleop/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz  int  `long:"hz" default:"30" description:"Control loop frequency"`
	Sim bool `long:"sim" description:"Use the simulated leader driver instead of hardware"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Series colors, one per arm joint plus the gripper
var seriesColors = []string{"196", "208", "226", "46", "51", "33", "201"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func seriesNames(gripper bool) []string {
	names := robot.AllJointKeys()
	if gripper {
		names = append(names, robot.GripperKey)
	}
	return names
}

type teleopModel struct {
	ctrl     *teleop.Controller
	chart    *streamlinechart.Model
	series   []string
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
	err      error
	last     *robot.Observation // previous observation, to freeze the chart when idle
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if the observation changed since the last state
func (m *teleopModel) hasMovement(obs robot.Observation) bool {
	if m.last == nil {
		return true // first reading, consider it movement
	}
	if obs.Joints != m.last.Joints {
		return true
	}
	if (obs.Gripper == nil) != (m.last.Gripper == nil) {
		return true
	}
	return obs.Gripper != nil && *obs.Gripper != *m.last.Gripper
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

// stoppedMsg reports that the control loop gave up.
type stoppedMsg struct{ err error }

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller, gripper bool) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-2*math.Pi, 2*math.Pi),
	)

	series := seriesNames(gripper)
	for i, name := range series {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[i]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:   ctrl,
		chart:  &chart,
		series: series,
	}
}

func (m teleopModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.State(msg)
		if state.Error == nil && m.hasMovement(state.Observation) {
			obs := state.Observation
			for i, v := range obs.Joints {
				m.chart.PushDataSet(robot.JointKey(i), v)
			}
			if obs.Gripper != nil {
				m.chart.PushDataSet(robot.GripperKey, *obs.Gripper)
			}
			m.chart.DrawAll()
			m.last = &obs
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case stoppedMsg:
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		if m.err != nil {
			return fmt.Sprintf("Teleoperation aborted: %v\n", m.err)
		}
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("isoteleop"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.series))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(series []string) string {
	var items []string
	for i, name := range series {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[i])).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return fmt.Errorf("no configuration found at %s: %w", opts.Config, err)
	}

	tc, err := cfg.TranslatorConfig()
	if err != nil {
		return err
	}
	// Until the controller takes over the translator's logging.
	tc.Logger = log.Default()

	dxl := cfg.Record.Teleop.DynamixelConfig
	if c.Sim {
		dxl.Backend = robot.BackendSim
	}
	drv, err := openDriver(dxl, tc.ActiveJointIDs())
	if err != nil {
		return fmt.Errorf("open leader: %w", err)
	}

	leader, err := robot.NewTranslator(tc, drv)
	if err != nil {
		drv.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connection check, as the recorder does before its first episode
	state, err := leader.JointState(ctx)
	if err != nil {
		leader.Close()
		return fmt.Errorf("read leader: %w", err)
	}
	log.Printf("leader connected, joint state %.3f", state)

	ctrl, err := teleop.NewController(teleop.Config{
		Leader: leader,
		Hz:     c.Hz,
	})
	if err != nil {
		leader.Close()
		return err
	}

	quietLogs()
	p := tea.NewProgram(initialTeleopModel(ctrl, leader.HasGripper()), tea.WithAltScreen())

	var ctrlErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Controller error: %v", err)
			ctrlErr = err
			p.Send(stoppedMsg{err: err})
		}
	}()

	_, runErr := p.Run()

	cancel()
	<-done
	if err := ctrl.Close(); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run program: %w", runErr)
	}
	if ctrlErr != nil {
		return fmt.Errorf("teleoperation: %w", ctrlErr)
	}
	return nil
}
