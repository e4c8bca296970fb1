package statussvc

import (
	"context"
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"net/http"
	"net/http/httptest"
	"strings"
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

// statusServiceSuite tests statusService.
type statusServiceSuite struct {
	suite.Suite
	snapshotter *snapshotterStub
	service     *statusService
	server      *httptest.Server
	ctx         context.Context
	cancel      context.CancelFunc
}

func (suite *statusServiceSuite) SetupTest() {
	suite.snapshotter = &snapshotterStub{}
	suite.service = NewStatusService(zap.New(zapcore.NewNopCore()), Config{}, suite.snapshotter).(*statusService)
	suite.ctx, suite.cancel = context.WithTimeout(context.Background(), timeout)
	go suite.service.hub.run(suite.ctx)
	suite.server = httptest.NewServer(suite.service.handler())
}

func (suite *statusServiceSuite) TearDownTest() {
	suite.cancel()
	suite.server.Close()
}

func (suite *statusServiceSuite) TestDefaults() {
	suite.Equal(DefaultServeAddr, suite.service.config.ServeAddr, "should set default addr")
	suite.Equal(DefaultInterval, suite.service.config.Interval, "should set default interval")
}

func (suite *statusServiceSuite) TestStatus() {
	suite.snapshotter.On("Snapshots", mock.Anything).
		Return([]arena.Snapshot{{Name: "castle", State: arena.StateRunning}}, nil).Once()
	defer suite.snapshotter.AssertExpectations(suite.T())
	res, err := http.Get(suite.server.URL + "/status")
	suite.Require().NoError(err, "request should not fail")
	defer func() { _ = res.Body.Close() }()
	suite.Equal(http.StatusOK, res.StatusCode, "should respond with ok")
	var got statusMessage
	suite.Require().NoError(json.NewDecoder(res.Body).Decode(&got), "should decode response")
	suite.Require().Len(got.Arenas, 1, "should include all arenas")
	suite.Equal("castle", got.Arenas[0].Name, "should include arena name")
	suite.Equal(arena.StateRunning, got.Arenas[0].State, "should include state")
}

func (suite *statusServiceSuite) TestStatusFail() {
	suite.snapshotter.On("Snapshots", mock.Anything).Return(nil, errors.NewInternalError("sad life", nil)).Once()
	defer suite.snapshotter.AssertExpectations(suite.T())
	res, err := http.Get(suite.server.URL + "/status")
	suite.Require().NoError(err, "request should not fail")
	defer func() { _ = res.Body.Close() }()
	suite.Equal(http.StatusInternalServerError, res.StatusCode, "should respond with internal server error")
}

func (suite *statusServiceSuite) TestStatusMethodNotAllowed() {
	res, err := http.Post(suite.server.URL+"/status", "application/json", strings.NewReader("{}"))
	suite.Require().NoError(err, "request should not fail")
	defer func() { _ = res.Body.Close() }()
	suite.Equal(http.StatusMethodNotAllowed, res.StatusCode, "should reject post")
}

// TestFeed assures that websocket clients receive the latest published status
// as well as following ones.
func (suite *statusServiceSuite) TestFeed() {
	suite.snapshotter.On("Snapshots", mock.Anything).
		Return([]arena.Snapshot{{Name: "castle", State: arena.StateWaiting}}, nil).Once()
	suite.snapshotter.On("Snapshots", mock.Anything).
		Return([]arena.Snapshot{{Name: "castle", State: arena.StateStarting}}, nil).Once()
	defer suite.snapshotter.AssertExpectations(suite.T())
	suite.service.publishSnapshots(suite.ctx)
	conn, res, err := websocket.DefaultDialer.DialContext(suite.ctx,
		"ws"+strings.TrimPrefix(suite.server.URL, "http")+"/ws", nil)
	suite.Require().NoError(err, "dial should not fail")
	defer func() { _ = res.Body.Close() }()
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var got statusMessage
	suite.Require().NoError(conn.ReadJSON(&got), "should read latest status")
	suite.Require().Len(got.Arenas, 1, "should include all arenas")
	suite.Equal(arena.StateWaiting, got.Arenas[0].State, "should receive latest status on connect")
	suite.service.publishSnapshots(suite.ctx)
	suite.Require().NoError(conn.ReadJSON(&got), "should read next status")
	suite.Equal(arena.StateStarting, got.Arenas[0].State, "should receive published status")
}

// TestHubShutdown assures that clients are disconnected when the hub stops.
func (suite *statusServiceSuite) TestHubShutdown() {
	conn, res, err := websocket.DefaultDialer.DialContext(suite.ctx,
		"ws"+strings.TrimPrefix(suite.server.URL, "http")+"/ws", nil)
	suite.Require().NoError(err, "dial should not fail")
	defer func() { _ = res.Body.Close() }()
	defer func() { _ = conn.Close() }()
	suite.cancel()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, _, err = conn.ReadMessage()
	suite.Error(err, "should be closed")
}

func TestStatusService(t *testing.T) {
	suite.Run(t, new(statusServiceSuite))
}
