// Package teleop runs the fixed-rate loop that turns leader rig readings into
// teleoperation actions.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/isoteleop/pkg/robot"
)

// State represents the current state of teleoperation.
type State struct {
	Observation robot.Observation
	Timestamp   time.Time
	Error       error
}

// Commander accepts an arm-only calibrated joint vector.
type Commander interface {
	CommandJointState(ctx context.Context, target []float64) error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	leader   *robot.Translator
	follower Commander
	hz       int

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Leader *robot.Translator
	// Follower, when set, receives the leader's arm joints every tick.
	Follower Commander
	Hz       int
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Leader == nil {
		return nil, fmt.Errorf("leader translator is required")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 30
	}

	c := &Controller{
		leader:   cfg.Leader,
		follower: cfg.Follower,
		hz:       cfg.Hz,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
	cfg.Leader.SetLogger(c)
	return c, nil
}

// Close releases the leader rig.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.leader.Close(); err != nil {
		return fmt.Errorf("close leader: %w", err)
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Printf formats a log line onto the log channel. NewController installs the
// controller as the leader translator's Logger.
func (c *Controller) Printf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the teleoperation control loop and blocks until ctx is done.
// A leader that returns the wrong number of angles stops the loop and Start
// returns an error wrapping robot.ErrInvariantViolation. Other read and write
// errors are logged and the loop keeps going.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	// The leader rig is moved by hand.
	if err := c.leader.SetTorque(ctx, false); err != nil {
		c.Printf("Warning: failed to disable leader torque: %v", err)
	}

	c.Printf("Teleoperation started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Printf("Teleoperation stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := c.step(ctx); err != nil {
				c.Printf("Teleoperation aborted: %v", err)
				return err
			}
		}
	}
}

// step runs one tick. It only returns an error when the loop must stop.
func (c *Controller) step(ctx context.Context) error {
	obs, err := c.leader.Observations(ctx)
	if err != nil {
		c.sendState(State{Error: err, Timestamp: time.Now()})
		if errors.Is(err, robot.ErrInvariantViolation) {
			return err
		}
		c.Printf("Read error: %v", err)
		return nil
	}

	if c.follower != nil {
		if err := c.follower.CommandJointState(ctx, obs.Arm()); err != nil {
			c.Printf("Write error: %v", err)
		}
	}

	c.sendState(State{
		Observation: obs,
		Timestamp:   time.Now(),
	})
	return nil
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}
