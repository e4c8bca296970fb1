package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/bedwars-server/event"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stub mocks Portal. Expectations for Subscribe return a NewsletterFactory,
// for example Idle or Feed.
type Stub struct {
	mock.Mock
}

// NewsletterFactory creates the Newsletter for a subscription. The Newsletter
// is closed when the subscriber's lifetime is done or it unsubscribes.
type NewsletterFactory func(lifetime context.Context, topic Topic) *Newsletter[any]

// Subscribe calls mock.Mock and creates the Newsletter using the returned
// NewsletterFactory.
func (s *Stub) Subscribe(ctx context.Context, topic Topic) *Newsletter[any] {
	factory := s.Called(ctx, topic).Get(0).(NewsletterFactory)
	return factory(ctx, topic)
}

// Publish calls mock.Mock.
func (s *Stub) Publish(ctx context.Context, topic Topic, payload interface{}) {
	s.Called(ctx, topic, payload)
}

// Logger returns a nop logger.
func (s *Stub) Logger() *zap.Logger {
	return zap.New(zapcore.NewNopCore())
}

// Idle is a NewsletterFactory for subscriptions that never receive.
func Idle() NewsletterFactory {
	return Feed()
}

// Feed is a NewsletterFactory for subscriptions that receive the given
// payloads in order, encoded as JSON like messages from game hosts.
func Feed(payloads ...interface{}) NewsletterFactory {
	raw := make([][]byte, 0, len(payloads))
	for _, payload := range payloads {
		b, err := json.Marshal(payload)
		if err != nil {
			panic(fmt.Sprintf("marshal payload: %v", err))
		}
		raw = append(raw, b)
	}
	return func(lifetime context.Context, topic Topic) *Newsletter[any] {
		lifetime, cancel := context.WithCancel(lifetime)
		receive := make(chan event.Event[any])
		go func() {
			defer close(receive)
			for _, b := range raw {
				select {
				case <-lifetime.Done():
					return
				case receive <- event.Event[any]{Publish: &paho.Publish{Topic: string(topic), Payload: b}}:
				}
			}
			<-lifetime.Done()
		}()
		return &Newsletter[any]{
			unregisterFn: cancel,
			Receive:      receive,
		}
	}
}
