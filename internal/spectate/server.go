// Package spectate streams game snapshots to read-only websocket observers.
package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/ohhell/internal/game"
)

// Source is the part of the engine the feed observes
type Source interface {
	Snapshot() game.GameState
	Subscribe(subscriber game.EventSubscriber)
	Unsubscribe(subscriber game.EventSubscriber)
}

// Server fans engine events out to every connected spectator
type Server struct {
	source   Source
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	httpServer *http.Server
}

// NewServer creates a feed over source and subscribes it to the engine
func NewServer(source Source, logger *log.Logger) *Server {
	s := &Server{
		source: source,
		upgrader: websocket.Upgrader{
			// Spectators are read-only, so any origin may watch
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:  logger.WithPrefix("spectate"),
		clients: make(map[*client]struct{}),
	}
	source.Subscribe(s)
	return s
}

// Handler serves /ws and /health
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe serves the feed on addr until Close
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("spectate listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves the feed on ln until Close
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ln.Close()
	}
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Serving spectator feed", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close unsubscribes from the engine, disconnects every spectator and stops
// the HTTP server if one is running.
func (s *Server) Close(ctx context.Context) error {
	s.source.Unsubscribe(s)

	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// Clients returns the number of connected spectators
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// OnEvent broadcasts an engine event. It never blocks the engine.
func (s *Server) OnEvent(ev game.Event) {
	frame, err := json.Marshal(eventMessage(ev))
	if err != nil {
		s.logger.Error("Failed to encode event", "type", ev.Type(), "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.enqueue(frame)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	c := newClient(conn, s.logger)

	// The snapshot is taken outside s.mu: the engine may be waiting to
	// publish to OnEvent while holding its own lock. Events committed just
	// before the connect can therefore still follow the initial frame.
	frame, err := json.Marshal(Message{
		Type:      MessageTypeSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.source.Snapshot(),
	})
	if err != nil {
		s.logger.Error("Failed to encode snapshot", "error", err)
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	c.enqueue(frame)
	total := len(s.clients)
	s.mu.Unlock()

	c.start()
	s.logger.Info("Spectator connected", "total", total)

	go func() {
		<-c.ctx.Done()
		s.mu.Lock()
		delete(s.clients, c)
		total := len(s.clients)
		s.mu.Unlock()
		s.logger.Info("Spectator disconnected", "total", total)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}
