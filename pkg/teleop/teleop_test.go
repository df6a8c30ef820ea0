package teleop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/isoteleop/pkg/robot"
)

type recordingFollower struct {
	mu      sync.Mutex
	targets [][]float64
}

func (f *recordingFollower) CommandJointState(_ context.Context, target []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	return nil
}

func (f *recordingFollower) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

func newLeader(t *testing.T) (*robot.Translator, *robot.FakeDriver) {
	t.Helper()
	cfg := robot.TranslatorConfig{
		JointIDs: []int{1, 2, 3, 4, 5, 6},
		Offsets:  []float64{0, 0, 0, 0, 0, 0},
		Signs:    []int{1, 1, 1, 1, 1, 1},
	}
	drv := robot.NewFakeDriver(cfg.JointIDs)
	drv.SetAngles([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	tr, err := robot.NewTranslator(cfg, drv)
	require.NoError(t, err)
	return tr, drv
}

func TestNewController_RequiresLeader(t *testing.T) {
	_, err := NewController(Config{})
	assert.Error(t, err)
}

func TestNewController_DefaultHz(t *testing.T) {
	tr, _ := newLeader(t)
	ctrl, err := NewController(Config{Leader: tr})
	require.NoError(t, err)
	assert.Equal(t, 30, ctrl.Hz())
}

func TestController_PublishesStates(t *testing.T) {
	tr, _ := newLeader(t)
	follower := &recordingFollower{}
	ctrl, err := NewController(Config{Leader: tr, Follower: follower, Hz: 200})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	select {
	case s := <-ctrl.States():
		require.NoError(t, s.Error)
		assert.InDelta(t, 0.1, s.Observation.Joints[0], 1e-9)
		assert.InDelta(t, 0.6, s.Observation.Joints[5], 1e-9)
		assert.Nil(t, s.Observation.Gripper)
	case <-time.After(2 * time.Second):
		t.Fatal("no state received")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Positive(t, follower.count())
}

func TestController_ReadErrorState(t *testing.T) {
	tr, drv := newLeader(t)
	ioErr := errors.New("bus unplugged")
	drv.FailReads(ioErr)
	ctrl, err := NewController(Config{Leader: tr, Hz: 200})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Start(ctx)

	select {
	case s := <-ctrl.States():
		assert.ErrorIs(t, s.Error, ioErr)
	case <-time.After(2 * time.Second):
		t.Fatal("no state received")
	}
}

func TestController_ReadErrorKeepsRunning(t *testing.T) {
	tr, drv := newLeader(t)
	drv.FailReads(errors.New("bus unplugged"))
	ctrl, err := NewController(Config{Leader: tr, Hz: 200})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ctrl.Start(ctx), context.DeadlineExceeded)
}

func TestController_StopsOnWrongAngleCount(t *testing.T) {
	tr, drv := newLeader(t)
	drv.SetAngles([]float64{1, 2, 3})
	ctrl, err := NewController(Config{Leader: tr, Hz: 200})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = ctrl.Start(ctx)
	require.ErrorIs(t, err, robot.ErrInvariantViolation)
	assert.NoError(t, ctx.Err(), "loop should stop before the deadline")

	s := <-ctrl.States()
	assert.ErrorIs(t, s.Error, robot.ErrInvariantViolation)
}

func TestController_ForwardsLeaderLogs(t *testing.T) {
	tr, _ := newLeader(t)
	ctrl, err := NewController(Config{Leader: tr})
	require.NoError(t, err)

	require.NoError(t, tr.SetTorque(context.Background(), true))
	select {
	case line := <-ctrl.Logs():
		assert.Contains(t, line, "leader torque enabled=true")
	default:
		t.Fatal("no log line forwarded")
	}
}

func TestController_AlreadyRunning(t *testing.T) {
	tr, _ := newLeader(t)
	ctrl, err := NewController(Config{Leader: tr, Hz: 200})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Start(ctx)
	<-ctrl.States()

	assert.Error(t, ctrl.Start(ctx))
}

func TestController_SendStateKeepsLatest(t *testing.T) {
	tr, _ := newLeader(t)
	ctrl, err := NewController(Config{Leader: tr})
	require.NoError(t, err)

	first := time.Unix(1, 0)
	second := time.Unix(2, 0)
	ctrl.sendState(State{Timestamp: first})
	ctrl.sendState(State{Timestamp: second})

	s := <-ctrl.States()
	assert.Equal(t, second, s.Timestamp)
}

func TestController_LogsDropWhenFull(t *testing.T) {
	tr, _ := newLeader(t)
	ctrl, err := NewController(Config{Leader: tr})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		ctrl.Printf("line %d", i)
	}
	assert.Len(t, ctrl.logCh, cap(ctrl.logCh))
	assert.Contains(t, <-ctrl.Logs(), "line 0")
}

func TestController_Close(t *testing.T) {
	tr, drv := newLeader(t)
	ctrl, err := NewController(Config{Leader: tr})
	require.NoError(t, err)

	require.NoError(t, ctrl.Close())
	assert.True(t, drv.Closed())
}
