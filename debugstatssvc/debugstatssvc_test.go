package debugstatssvc

import (
	"context"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"testing"
	"time"
)

const timeout = 3 * time.Second

// snapshotterStub mocks Snapshotter.
type snapshotterStub struct {
	mock.Mock
}

func (s *snapshotterStub) Snapshots(ctx context.Context) ([]arena.Snapshot, error) {
	args := s.Called(ctx)
	var snapshots []arena.Snapshot
	snapshots, _ = args.Get(0).([]arena.Snapshot)
	return snapshots, args.Error(1)
}

func TestDisabled(t *testing.T) {
	s := NewService(zap.New(zapcore.NewNopCore()), Config{IsEnabled: false}, &snapshotterStub{})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	assert.NoError(t, s.Run(ctx), "should not fail")
	assert.NoError(t, ctx.Err(), "should return immediately")
}

func TestInvalidInterval(t *testing.T) {
	s := NewService(zap.New(zapcore.NewNopCore()), Config{IsEnabled: true}, &snapshotterStub{})
	err := s.Run(context.Background())
	assert.True(t, errors.Is(err, errors.KindInvalidConfig), "should fail with invalid config")
}

func TestArenaStats(t *testing.T) {
	got := arenaStats([]arena.Snapshot{
		{
			Name:       "castle",
			State:      arena.StateRunning,
			MaxPlayers: 8,
			Participants: []arena.ParticipantSnapshot{
				{ID: "a", Kind: arena.KindHuman},
				{ID: "b", Kind: arena.KindBot},
			},
			ScheduledTasks: 5,
		},
	})
	assert.Contains(t, got, "castle", "should include name")
	assert.Contains(t, got, "RUNNING", "should include state")
	assert.Contains(t, got, "participants: 2/8 (bots: 1)", "should include roster")
	assert.Contains(t, got, "tasks: 5", "should include tasks")
}

// TestLogs assures that stats are logged periodically.
func TestLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	snapshotter := &snapshotterStub{}
	snapshotter.On("Snapshots", mock.Anything).Return([]arena.Snapshot{{Name: "castle", State: arena.StateWaiting}}, nil)
	s := NewService(zap.New(core), Config{IsEnabled: true, Interval: time.Millisecond}, snapshotter)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	go func() {
		_ = s.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("BEGIN OF ARENAS").Len() >= 2
	}, timeout, 10*time.Millisecond, "should log stats periodically")
	assert.Contains(t, logs.FilterMessageSnippet("BEGIN OF ARENAS").All()[0].Message, "castle",
		"should include arenas")
}
