package statussvc

import (
	"context"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/bedwars-server/errors"
	"go.uber.org/zap"
	"time"
)

const (
	// writeTimeout is the timeout for writing a message to the peer.
	writeTimeout = 10 * time.Second
	// pingInterval is the interval in which pings are sent to the peer. Must be
	// less than pongTimeout.
	pingInterval = (pongTimeout * 9) / 10
	// pongTimeout is the timeout for waiting for the next pong message from the
	// peer. Must be greater than pingInterval.
	pongTimeout = 60 * time.Second
	// maxMessageSize is the maximum message size allowed from peer. The feed is
	// read-only, so we expect only control messages.
	maxMessageSize = 512
	// sendBuffer is the amount of messages to buffer per client. Slow clients
	// miss updates instead of blocking the hub.
	sendBuffer = 16
)

// client holds the websocket connection of one status feed subscriber.
type client struct {
	id     uuid.UUID
	logger *zap.Logger
	// hub is used for unregistering.
	hub *hub
	// connection is the actual websocket connection.
	connection *websocket.Conn
	// send receives messages to write to the connection. It is closed by the hub
	// when unregistering.
	send chan []byte
}

// readPump discards incoming messages and unregisters the client when the
// connection is closed.
func (c *client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		err := c.connection.Close()
		if err != nil {
			c.logger.Debug("close connection", zap.Error(err))
		}
	}()
	c.connection.SetReadLimit(maxMessageSize)
	_ = c.connection.SetReadDeadline(time.Now().Add(pongTimeout))
	// Handle received pong.
	c.connection.SetPongHandler(func(string) error {
		_ = c.connection.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		_, _, err := c.connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
	}
}

// writePump forwards outgoing messages from the hub to the websocket
// connection. We do not pass a context.Context here because the hub will close
// the send-channel which will lead to termination, anyways.
func (c *client) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer func() {
		// Stop ping ticker in order to avoid ticker leak.
		pingTicker.Stop()
		err := c.connection.Close()
		if err != nil {
			c.logger.Debug("close connection", zap.Error(err))
		}
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeTimeout))
			// Check if connection close is requested from hub.
			if !ok {
				err := c.connection.WriteMessage(websocket.CloseMessage, []byte{})
				if err != nil {
					c.logger.Debug("write close message", zap.Error(err))
				}
				return
			}
			err := c.connection.WriteMessage(websocket.TextMessage, message)
			if err != nil {
				// We expect the read pump to fail as well.
				c.logger.Debug("write text message", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("write ping", zap.Error(err))
				return
			}
		}
	}
}

// hub holds all connected clients and broadcasts status messages to them.
type hub struct {
	logger *zap.Logger
	// clients holds all connected clients. Only accessed by run.
	clients map[*client]struct{}
	// register receives when a client connected.
	register chan *client
	// unregister receives when a client wants to unregister itself.
	unregister chan *client
	// broadcast receives messages to send to all clients.
	broadcast chan []byte
	// last is the last broadcast message which is sent to newly connected
	// clients.
	last []byte
	// done is closed when run returns.
	done chan struct{}
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

// run the hub until the context is done. All clients are disconnected
// afterwards.
func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.last != nil {
				c.send <- h.last
			}
			h.logger.Debug("client connected", zap.String("client", c.id.String()))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				// Close the send-channel which leads to stopping the write-pump.
				close(c.send)
				h.logger.Debug("client disconnected", zap.String("client", c.id.String()))
			}
		case message := <-h.broadcast:
			h.last = message
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Debug("client too slow. dropping status message.", zap.String("client", c.id.String()))
				}
			}
		}
	}
}

// registerClient registers the client. It reports false if the hub is not
// running anymore.
func (h *hub) registerClient(c *client) bool {
	select {
	case <-h.done:
		return false
	case h.register <- c:
		return true
	}
}

func (h *hub) unregisterClient(c *client) {
	select {
	case <-h.done:
	case h.unregister <- c:
	}
}

// publish the message to all clients.
func (h *hub) publish(ctx context.Context, message []byte) error {
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("publish status")
	case <-h.done:
		return errors.NewContextAbortedError("publish status")
	case h.broadcast <- message:
		return nil
	}
}
