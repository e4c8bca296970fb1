package portal

import (
	"context"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/event"
	"go.uber.org/zap"
	"strings"
	"sync"
	"time"
)

// defaultDeliveryTimeout is the time a message waits for a listener to accept
// it. The MQTT client dispatches messages one after another, so one stuck
// arena command handler must not stall reports for all other arenas.
const defaultDeliveryTimeout = 2 * time.Second

// handlerRegistry is the part of paho.Router that the router registers its
// topic handlers with.
type handlerRegistry interface {
	RegisterHandler(topic string, handler paho.MessageHandler)
	UnregisterHandler(topic string)
}

// listener receives messages for one topic until its lifetime is done.
type listener struct {
	lifetime context.Context
	forward  chan<- event.Event[any]
}

// topicListeners are all listeners of one topic. As long as there is at least
// one, a handler for the topic is registered.
type topicListeners struct {
	topic     Topic
	listeners map[*listener]struct{}
	// m locks listeners.
	m sync.RWMutex
}

// router multiplexes MQTT messages to all portals listening for a topic.
type router struct {
	logger   *zap.Logger
	registry handlerRegistry
	// deliveryTimeout is the time after which a message is dropped for a
	// listener that does not accept it.
	deliveryTimeout time.Duration
	// topics holds the listeners by topic.
	topics map[Topic]*topicListeners
	// topicsMutex locks topics.
	topicsMutex sync.Mutex
}

func newRouter(logger *zap.Logger, registry handlerRegistry) *router {
	return &router{
		logger:          logger,
		registry:        registry,
		deliveryTimeout: defaultDeliveryTimeout,
		topics:          make(map[Topic]*topicListeners),
	}
}

// handlerFor creates the paho.MessageHandler that delivers to the listeners of
// the topic.
func (router *router) handlerFor(tl *topicListeners) paho.MessageHandler {
	return func(publish *paho.Publish) {
		tl.m.RLock()
		listeners := make([]*listener, 0, len(tl.listeners))
		for l := range tl.listeners {
			listeners = append(listeners, l)
		}
		tl.m.RUnlock()
		var delivered sync.WaitGroup
		for _, l := range listeners {
			delivered.Add(1)
			go func(l *listener) {
				defer delivered.Done()
				router.deliver(l, publish)
			}(l)
		}
		delivered.Wait()
	}
}

// deliver forwards the message to the listener or drops it after the delivery
// timeout.
func (router *router) deliver(l *listener, publish *paho.Publish) {
	timer := time.NewTimer(router.deliveryTimeout)
	defer timer.Stop()
	select {
	case <-l.lifetime.Done():
	case l.forward <- event.Event[any]{Publish: publish}:
	case <-timer.C:
		router.logger.Warn("dropped message for busy listener",
			zap.String("topic", publish.Topic),
			zap.Duration("timeout", router.deliveryTimeout))
	}
}

// subscribe forwards messages for the Topic to the given channel until the
// lifetime is done.
func (router *router) subscribe(lifetime context.Context, topic Topic, forward chan<- event.Event[any]) {
	if !strings.HasPrefix(string(topic), BaseTopic+"/") {
		router.logger.Warn("subscribed to topic outside of base topic which will never receive",
			zap.Any("topic", topic), zap.String("base_topic", BaseTopic))
	}
	router.topicsMutex.Lock()
	defer router.topicsMutex.Unlock()
	tl, ok := router.topics[topic]
	if !ok {
		tl = &topicListeners{
			topic:     topic,
			listeners: make(map[*listener]struct{}),
		}
		router.topics[topic] = tl
		router.registry.RegisterHandler(string(topic), router.handlerFor(tl))
		router.logger.Debug("registered topic handler", zap.Any("topic", topic))
	}
	l := &listener{
		lifetime: lifetime,
		forward:  forward,
	}
	tl.m.Lock()
	tl.listeners[l] = struct{}{}
	tl.m.Unlock()
	go func() {
		<-lifetime.Done()
		router.unsubscribe(tl, l)
	}()
}

// unsubscribe removes the listener and unregisters the topic handler if it was
// the last one.
func (router *router) unsubscribe(tl *topicListeners, l *listener) {
	router.topicsMutex.Lock()
	defer router.topicsMutex.Unlock()
	if router.topics[tl.topic] != tl {
		errors.Log(router.logger, errors.NewInternalError("unsubscribe from unregistered topic",
			errors.Details{"topic": tl.topic}))
		return
	}
	tl.m.Lock()
	defer tl.m.Unlock()
	if _, ok := tl.listeners[l]; !ok {
		errors.Log(router.logger, errors.NewInternalError("unsubscribe unknown listener",
			errors.Details{"topic": tl.topic}))
		return
	}
	delete(tl.listeners, l)
	if len(tl.listeners) > 0 {
		return
	}
	delete(router.topics, tl.topic)
	router.registry.UnregisterHandler(string(tl.topic))
	router.logger.Debug("unregistered topic handler", zap.Any("topic", tl.topic))
}
