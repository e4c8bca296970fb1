package logpublishsvc

import (
	"context"
	"github.com/lefinal/bedwars-server/event"
	"github.com/lefinal/bedwars-server/logging"
	"github.com/lefinal/bedwars-server/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
	"time"
)

const timeout = 3 * time.Second

func TestNew(t *testing.T) {
	logger := zap.New(zapcore.NewNopCore())
	portalStub := &portal.Stub{}
	entries := make(chan logging.LogEntry)
	s := New(logger, portalStub, entries).(*logPublishService)
	require.NotNil(t, s, "should not be nil")
	assert.Equal(t, logger, s.logger, "should set correct logger")
	assert.Equal(t, portalStub, s.portal, "should set correct portal")
}

// TestPublishCollected assures that all entries are published in order.
func TestPublishCollected(t *testing.T) {
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	entries := make(chan logging.LogEntry, 8)
	now := time.Now()
	for i, msg := range []string{"first", "second", "third"} {
		entries <- logging.LogEntry{
			Time:       now.Add(time.Duration(i) * time.Millisecond),
			Level:      zapcore.InfoLevel,
			LoggerName: "castle",
			Message:    msg,
			Fields:     map[string]interface{}{"n": i},
		}
	}
	portalStub := &portal.Stub{}
	published := atomic.NewInt32(0)
	var messages []string
	portalStub.On("Publish", mock.Anything, topicLogPublish, mock.Anything).Run(func(args mock.Arguments) {
		e := args.Get(2).(event.NextLogEntryEvent)
		assert.Equal(t, "info", e.Level, "should set level")
		assert.Equal(t, "castle", e.LoggerName, "should set logger name")
		messages = append(messages, e.Message)
		if published.Inc() == 3 {
			cancel()
		}
	})
	s := New(zap.New(zapcore.NewNopCore()), portalStub, entries)
	err := s.Run(timeout)
	require.NoError(t, err, "should not fail")
	assert.Equal(t, context.Canceled, timeout.Err(), "should not time out")
	assert.Equal(t, []string{"first", "second", "third"}, messages, "should publish all entries in order")
}

// TestClosedInput assures that the service stops when the input is closed.
func TestClosedInput(t *testing.T) {
	entries := make(chan logging.LogEntry)
	close(entries)
	s := New(zap.New(zapcore.NewNopCore()), &portal.Stub{}, entries)
	done := make(chan error)
	go func() {
		done <- s.Run(context.Background())
	}()
	select {
	case <-time.After(timeout):
		require.Fail(t, "timeout", "should stop")
	case err := <-done:
		assert.NoError(t, err, "should not fail")
	}
}
