// Package statussvc serves a read-only status feed of all arenas via HTTP and
// websocket.
package statussvc

import (
	"context"
	"encoding/json"
	nativeerrors "errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/service"
	"go.uber.org/zap"
	"net/http"
	"time"
)

const (
	// DefaultServeAddr is the default address to serve on.
	DefaultServeAddr = ":8080"
	// DefaultInterval is the default interval for publishing snapshots.
	DefaultInterval = time.Second
	// shutdownTimeout is the timeout for gracefully shutting down the HTTP
	// server.
	shutdownTimeout = 15 * time.Second
	// readTimeout is the timeout for reading requests.
	readTimeout = 15 * time.Second
)

// Config is the configuration for NewStatusService.
type Config struct {
	// ServeAddr is the address for the web server to listen to.
	ServeAddr string
	// Interval in which snapshots are published to websocket clients.
	Interval time.Duration
}

// Snapshotter provides the snapshots to serve.
type Snapshotter interface {
	Snapshots(ctx context.Context) ([]arena.Snapshot, error)
}

// statusMessage is the message sent to clients.
type statusMessage struct {
	Time   time.Time        `json:"time"`
	Arenas []arena.Snapshot `json:"arenas"`
}

type statusService struct {
	logger      *zap.Logger
	config      Config
	snapshotter Snapshotter
	hub         *hub
	upgrader    websocket.Upgrader
}

// NewStatusService creates a new service.Service that serves arena snapshots
// at /status and as websocket feed at /ws.
func NewStatusService(logger *zap.Logger, config Config, snapshotter Snapshotter) service.Service {
	if config.ServeAddr == "" {
		config.ServeAddr = DefaultServeAddr
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &statusService{
		logger:      logger,
		config:      config,
		snapshotter: snapshotter,
		hub:         newHub(logger.Named("hub")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// handler returns the http.Handler with all routes.
func (s *statusService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run the web server and publish snapshots until the context is done.
func (s *statusService) Run(ctx context.Context) error {
	go s.hub.run(ctx)
	httpServer := &http.Server{
		Addr:        s.config.ServeAddr,
		Handler:     s.handler(),
		ReadTimeout: readTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("status server running", zap.String("addr", s.config.ServeAddr))
		err := httpServer.ListenAndServe()
		if err != nil && !nativeerrors.Is(err, http.ErrServerClosed) {
			serveErr <- errors.NewInternalErrorFromErr(err, "listen and serve", errors.Details{"addr": s.config.ServeAddr})
		}
		close(serveErr)
	}()
	publishTicker := time.NewTicker(s.config.Interval)
	defer publishTicker.Stop()
publish:
	for {
		select {
		case err := <-serveErr:
			// Closed without error only after shutdown.
			return err
		case <-publishTicker.C:
			s.publishSnapshots(ctx)
		case <-ctx.Done():
			break publish
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "shutdown status server", nil)
	}
	return nil
}

// status creates the current status message.
func (s *statusService) status(ctx context.Context) ([]byte, error) {
	snapshots, err := s.snapshotter.Snapshots(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "snapshots", nil)
	}
	raw, err := json.Marshal(statusMessage{Time: time.Now(), Arenas: snapshots})
	if err != nil {
		return nil, errors.NewInternalErrorFromErr(err, "marshal status", nil)
	}
	return raw, nil
}

func (s *statusService) publishSnapshots(ctx context.Context) {
	raw, err := s.status(ctx)
	if err != nil {
		errors.Log(s.logger, err)
		return
	}
	err = s.hub.publish(ctx, raw)
	if err != nil {
		s.logger.Debug("publish status", zap.Error(err))
	}
}

// handleStatus responds with the current status.
func (s *statusService) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, err := s.status(r.Context())
	if err != nil {
		errors.Log(s.logger, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, err = w.Write(raw)
	if err != nil {
		s.logger.Debug("write status response", zap.Error(err))
	}
}

// handleWS upgrades the connection and registers the client at the hub.
func (s *statusService) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade connection", zap.Error(err))
		return
	}
	id := uuid.New()
	c := &client{
		id:         id,
		logger:     s.logger.With(zap.String("client", id.String())),
		hub:        s.hub,
		connection: conn,
		send:       make(chan []byte, sendBuffer),
	}
	if !s.hub.registerClient(c) {
		_ = conn.Close()
		return
	}
	// Power the pumps.
	go c.writePump()
	go c.readPump()
}
