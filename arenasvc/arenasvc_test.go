package arenasvc

import (
	"context"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/director"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/event"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"sync"
	"testing"
	"time"
)

const timeout = 3 * time.Second

// directorStub mocks Director.
type directorStub struct {
	mock.Mock
}

func (d *directorStub) RequestJoin(ctx context.Context, arenaName string, human director.Human) (arena.Color, error) {
	args := d.Called(ctx, arenaName, human)
	return args.Get(0).(arena.Color), args.Error(1)
}

func (d *directorStub) RequestLeave(ctx context.Context, arenaName string, participant arena.ParticipantID) error {
	return d.Called(ctx, arenaName, participant).Error(0)
}

func (d *directorStub) ForceStart(ctx context.Context, arenaName string) error {
	return d.Called(ctx, arenaName).Error(0)
}

func (d *directorStub) ForceEnd(ctx context.Context, arenaName string) error {
	return d.Called(ctx, arenaName).Error(0)
}

func (d *directorStub) ReportBedDestroyed(ctx context.Context, arenaName string, team arena.Color, actor arena.ParticipantID) error {
	return d.Called(ctx, arenaName, team, actor).Error(0)
}

func (d *directorStub) ReportDeath(ctx context.Context, arenaName string, victim arena.ParticipantID, killer *arena.ParticipantID) error {
	return d.Called(ctx, arenaName, victim, killer).Error(0)
}

func (d *directorStub) ReportBotKilled(ctx context.Context, arenaName string, botID arena.ParticipantID, actor *arena.ParticipantID) error {
	return d.Called(ctx, arenaName, botID, actor).Error(0)
}

func (d *directorStub) ReportBlockPlaced(ctx context.Context, arenaName string, pos arena.BlockPos) error {
	return d.Called(ctx, arenaName, pos).Error(0)
}

func (d *directorStub) ReportBlockBroken(ctx context.Context, arenaName string, actor arena.ParticipantID, pos arena.BlockPos) error {
	return d.Called(ctx, arenaName, actor, pos).Error(0)
}

func (d *directorStub) AddBots(ctx context.Context, arenaName string, n int) (int, error) {
	args := d.Called(ctx, arenaName, n)
	return args.Int(0), args.Error(1)
}

func (d *directorStub) Snapshots(ctx context.Context) ([]arena.Snapshot, error) {
	args := d.Called(ctx)
	return args.Get(0).([]arena.Snapshot), args.Error(1)
}

func TestNewArenaService(t *testing.T) {
	logger := zap.New(zapcore.NewNopCore())
	portalStub := &portal.Stub{}
	directorStub := &directorStub{}
	notifier := NewNotifier(logger)
	s := NewArenaService(logger, portalStub, directorStub, notifier).(*arenaService)
	require.NotNil(t, s, "should not be nil")
	assert.Equal(t, logger, s.logger, "should set correct logger")
	assert.Equal(t, portalStub, s.portal, "should set correct portal")
	assert.Equal(t, directorStub, s.director, "should set correct director")
	assert.Equal(t, notifier, s.notifier, "should set correct notifier")
}

// arenaServiceSuite tests arenaService.
type arenaServiceSuite struct {
	suite.Suite
	portalStub   *portal.Stub
	directorStub *directorStub
	notifier     *Notifier
	service      *arenaService
}

func (suite *arenaServiceSuite) SetupTest() {
	logger := zap.New(zapcore.NewNopCore())
	suite.portalStub = &portal.Stub{}
	suite.directorStub = &directorStub{}
	suite.notifier = NewNotifier(logger)
	suite.service = NewArenaService(logger, suite.portalStub, suite.directorStub, suite.notifier).(*arenaService)
}

// serve runs the service and feeds the given payload to the topic. All other
// subscriptions stay empty. Publishing to topicResults cancels the context.
func (suite *arenaServiceSuite) serve(topic portal.Topic, payload interface{}, expectResult func(result event.CommandResultEvent)) {
	var wg sync.WaitGroup
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	suite.portalStub.On("Subscribe", mock.Anything, topic).Return(portal.Feed(payload)).Once()
	suite.portalStub.On("Subscribe", mock.Anything, mock.Anything).Return(portal.Idle())
	suite.portalStub.On("Publish", mock.Anything, topicResults, mock.Anything).
		Run(func(args mock.Arguments) {
			expectResult(args.Get(2).(event.CommandResultEvent))
			cancel()
		}).Once()
	defer suite.portalStub.AssertExpectations(suite.T())
	defer suite.directorStub.AssertExpectations(suite.T())
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := suite.service.Run(timeout)
		suite.NoError(err, "should not fail")
	}()
	wg.Wait()
	suite.Equal(context.Canceled, timeout.Err(), "should not time out")
}

func (suite *arenaServiceSuite) TestJoin() {
	suite.directorStub.On("RequestJoin", mock.Anything, "castle", director.Human{
		ID:     "steve",
		Name:   "Steve",
		Visual: host.VisualHandle("v-1"),
	}).Return(arena.Color("RED"), nil).Once()
	suite.serve(commandTopic(commandJoin), event.JoinCommand{
		RequestID:   nulls.NewString("r-1"),
		Arena:       "castle",
		Participant: "steve",
		Name:        "Steve",
		Visual:      "v-1",
	}, func(result event.CommandResultEvent) {
		suite.True(result.OK, "should succeed")
		suite.Equal(nulls.NewString("r-1"), result.RequestID, "should echo request id")
		suite.Equal(commandJoin, result.Command, "should set command")
		suite.Equal(nulls.NewString("RED"), result.Team, "should set team")
		suite.Nil(result.Error, "should not set error")
	})
}

func (suite *arenaServiceSuite) TestJoinMissingParticipant() {
	suite.serve(commandTopic(commandJoin), event.JoinCommand{Arena: "castle"}, func(result event.CommandResultEvent) {
		suite.False(result.OK, "should fail")
		suite.Require().NotNil(result.Error, "should set error")
		suite.Equal(string(errors.KindUnknownParticipant), result.Error.Kind, "should set error kind")
	})
}

func (suite *arenaServiceSuite) TestJoinRejected() {
	suite.directorStub.On("RequestJoin", mock.Anything, "castle", mock.Anything).
		Return(arena.Color(""), errors.NewBadRequestError(errors.KindArenaFull, "arena full", nil)).Once()
	suite.serve(commandTopic(commandJoin), event.JoinCommand{Arena: "castle", Participant: "steve"},
		func(result event.CommandResultEvent) {
			suite.False(result.OK, "should fail")
			suite.Require().NotNil(result.Error, "should set error")
			suite.Equal(string(errors.ErrBadRequest), result.Error.Code, "should set error code")
			suite.Equal(string(errors.KindArenaFull), result.Error.Kind, "should set error kind")
			suite.False(result.Team.Valid, "should not set team")
		})
}

func (suite *arenaServiceSuite) TestDeathWithKiller() {
	killer := arena.ParticipantID("alex")
	suite.directorStub.On("ReportDeath", mock.Anything, "castle", arena.ParticipantID("steve"), &killer).
		Return(nil).Once()
	suite.serve(commandTopic(commandDeath), event.DeathCommand{
		Arena:  "castle",
		Victim: "steve",
		Killer: nulls.NewString("alex"),
	}, func(result event.CommandResultEvent) {
		suite.True(result.OK, "should succeed")
	})
}

func (suite *arenaServiceSuite) TestBotKilledWithoutActor() {
	suite.directorStub.On("ReportBotKilled", mock.Anything, "castle", arena.ParticipantID("bot-1"),
		(*arena.ParticipantID)(nil)).Return(nil).Once()
	suite.serve(commandTopic(commandBotKilled), event.BotKilledCommand{
		Arena: "castle",
		Bot:   "bot-1",
	}, func(result event.CommandResultEvent) {
		suite.True(result.OK, "should succeed")
	})
}

func (suite *arenaServiceSuite) TestBlockBroken() {
	pos := arena.BlockPos{X: 1, Y: 64, Z: -3}
	suite.directorStub.On("ReportBlockBroken", mock.Anything, "castle", arena.ParticipantID("steve"), pos).
		Return(errors.NewBadRequestError(errors.KindBlockProtected, "protected", nil)).Once()
	suite.serve(commandTopic(commandBlockBroken), event.BlockCommand{
		Arena: "castle",
		Actor: "steve",
		Pos:   pos,
	}, func(result event.CommandResultEvent) {
		suite.False(result.OK, "should fail")
		suite.Require().NotNil(result.Error, "should set error")
		suite.Equal(string(errors.KindBlockProtected), result.Error.Kind, "should set error kind")
	})
}

func (suite *arenaServiceSuite) TestAddBots() {
	suite.directorStub.On("AddBots", mock.Anything, "castle", 3).Return(2, nil).Once()
	suite.serve(commandTopic(commandAddBots), event.AddBotsCommand{Arena: "castle", Count: 3},
		func(result event.CommandResultEvent) {
			suite.True(result.OK, "should succeed")
			suite.Equal(nulls.NewInt(2), result.Added, "should set added bots")
		})
}

func (suite *arenaServiceSuite) TestForceEndInternalError() {
	suite.directorStub.On("ForceEnd", mock.Anything, "castle").
		Return(errors.NewInternalError("sad life", errors.Details{"secret": true})).Once()
	suite.serve(commandTopic(commandForceEnd), event.ArenaCommand{Arena: "castle"},
		func(result event.CommandResultEvent) {
			suite.False(result.OK, "should fail")
			suite.Require().NotNil(result.Error, "should set error")
			suite.Equal("internal server error", result.Error.Message, "should hide internal message")
			suite.Nil(result.Error.Details, "should hide details")
		})
}

// TestPublishNotifications assures that queued notifications are published
// to the arena's event topic.
func (suite *arenaServiceSuite) TestPublishNotifications() {
	var wg sync.WaitGroup
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	winner := arena.Color("BLUE")
	suite.portalStub.On("Subscribe", mock.Anything, mock.Anything).Return(portal.Idle())
	suite.portalStub.On("Publish", mock.Anything, portal.Topic("bedwars/arenas/castle/events/match-ended"),
		event.MatchEndedEvent{
			Arena:  "castle",
			Winner: nulls.NewString("BLUE"),
			Results: []event.MatchResultEntry{
				{Participant: "steve", Name: "Steve", Kills: 2, Won: true},
			},
		}).Run(func(_ mock.Arguments) {
		cancel()
	}).Once()
	defer suite.portalStub.AssertExpectations(suite.T())
	suite.notifier.Notify(director.Notification{
		Arena: "castle",
		Type:  director.NotifyMatchEnded,
		Payload: director.MatchEnded{
			Winner: &winner,
			Results: []host.MatchResult{
				{ParticipantID: "steve", Name: "Steve", Counters: host.Counters{Kills: 2}, Won: true},
			},
		},
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := suite.service.Run(timeout)
		suite.NoError(err, "should not fail")
	}()
	wg.Wait()
	suite.Equal(context.Canceled, timeout.Err(), "should not time out")
}

// TestReport assures that snapshots are published on report requests.
func (suite *arenaServiceSuite) TestReport() {
	var wg sync.WaitGroup
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	snapshots := []arena.Snapshot{{Name: "castle", State: arena.StateWaiting}}
	suite.portalStub.On("Subscribe", mock.Anything, topicReport).Return(portal.Feed(event.EmptyEvent{})).Once()
	suite.portalStub.On("Subscribe", mock.Anything, mock.Anything).Return(portal.Idle())
	suite.directorStub.On("Snapshots", mock.Anything).Return(snapshots, nil).Once()
	suite.portalStub.On("Publish", mock.Anything, topicSnapshots, event.ArenaSnapshotsEvent{Arenas: snapshots}).
		Run(func(_ mock.Arguments) {
			cancel()
		}).Once()
	defer suite.portalStub.AssertExpectations(suite.T())
	defer suite.directorStub.AssertExpectations(suite.T())
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := suite.service.Run(timeout)
		suite.NoError(err, "should not fail")
	}()
	wg.Wait()
	suite.Equal(context.Canceled, timeout.Err(), "should not time out")
}

func TestArenaService(t *testing.T) {
	suite.Run(t, new(arenaServiceSuite))
}

func TestNotifierDoesNotBlock(t *testing.T) {
	n := NewNotifier(zap.New(zapcore.NewNopCore()))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < notificationBuffer+10; i++ {
			n.Notify(director.Notification{Arena: "castle", Type: director.NotifyCountdown,
				Payload: director.Countdown{Seconds: i}})
		}
	}()
	select {
	case <-time.After(timeout):
		require.Fail(t, "timeout", "notify should not block")
	case <-done:
	}
	assert.Len(t, n.notifications, notificationBuffer, "should drop notifications when full")
}

func TestEventFromNotification(t *testing.T) {
	killer := arena.ParticipantID("alex")
	tests := []struct {
		name         string
		notification director.Notification
		want         interface{}
		ok           bool
	}{
		{
			name: "state changed",
			notification: director.Notification{Arena: "castle", Payload: director.StateChanged{
				From: arena.StateWaiting, To: arena.StateStarting}},
			want: event.StateChangedEvent{Arena: "castle", From: "WAITING", To: "STARTING"},
			ok:   true,
		},
		{
			name: "died without killer",
			notification: director.Notification{Arena: "castle", Payload: director.ParticipantDied{
				Victim: "steve", Final: true}},
			want: event.ParticipantDiedEvent{Arena: "castle", Victim: "steve", Final: true},
			ok:   true,
		},
		{
			name: "died with killer",
			notification: director.Notification{Arena: "castle", Payload: director.ParticipantDied{
				Victim: "steve", Killer: &killer}},
			want: event.ParticipantDiedEvent{Arena: "castle", Victim: "steve", Killer: nulls.NewString("alex")},
			ok:   true,
		},
		{
			name: "respawned",
			notification: director.Notification{Arena: "castle", Payload: director.ParticipantRespawned{
				Participant: "steve"}},
			want: event.ParticipantEvent{Arena: "castle", Participant: "steve"},
			ok:   true,
		},
		{
			name:         "unknown",
			notification: director.Notification{Arena: "castle", Payload: 42},
			ok:           false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventFromNotification(tt.notification)
			assert.Equal(t, tt.ok, ok, "should return expected ok")
			if tt.ok {
				assert.Equal(t, tt.want, got, "should return expected event")
			}
		})
	}
}
