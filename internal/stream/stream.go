// Package stream fans control-mode notifications out to WebSocket
// subscribers. One pump goroutine drains the control client's
// notification channel and broadcasts each event to every connected
// subscriber as a JSON envelope; subscribers that fall behind are
// skipped rather than allowed to stall the pump.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/protocol"
)

const (
	pingInterval    = 30 * time.Second
	readDeadline    = 60 * time.Second
	writeDeadline   = 10 * time.Second
	shutdownTimeout = 5 * time.Second

	// sendBuffer bounds each subscriber's outbound queue. A full
	// buffer means the subscriber is too slow and loses events.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON envelope for one notification. Kind is the bare
// tag name ("output", "window-add"), Raw the original wire line, and
// Data the named fields parsed from it.
type Event struct {
	Kind string            `json:"kind"`
	When time.Time         `json:"when"`
	Raw  string            `json:"raw"`
	Data map[string]string `json:"data,omitempty"`
}

// Server serves the notification stream over HTTP. The caller retains
// ownership of the control client; Serve connects it but never closes
// it.
type Server struct {
	client *control.Client
	logger *log.Logger

	clientsMu sync.RWMutex
	clients   map[*wsClient]bool

	done     chan struct{}
	stopOnce sync.Once
}

type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// NewServer wraps a control client in a broadcast server. A nil logger
// discards output.
func NewServer(client *control.Client, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		client:  client,
		logger:  logger,
		clients: make(map[*wsClient]bool),
		done:    make(chan struct{}),
	}
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stream: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve connects the control client, starts the notification pump, and
// serves HTTP on ln until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.client.Connect(); err != nil {
		ln.Close()
		return err
	}
	go s.pumpNotifications()

	srv := &http.Server{Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Printf("stream: listening on %s", ln.Addr())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.Stop()
		return err
	}

	s.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Stop disconnects every subscriber and stops the notification pump.
// Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.clientsMu.Lock()
		for c := range s.clients {
			c.conn.Close()
		}
		s.clientsMu.Unlock()
	})
}

// Handler returns the HTTP handler: /ws upgrades to the notification
// stream, /healthz reports liveness, /stats dumps client counters.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades an HTTP connection and registers it as a
// subscriber.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("stream: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("stream: subscriber %s connected (%d active)", c.id, n)

	go c.writePump()
	go c.readPump()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats := s.client.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"alive":       stats.Alive,
		"subscribers": s.subscribers(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(s.client.Stats())
}

func (s *Server) subscribers() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// pumpNotifications drains the control client's notification channel
// until Stop.
func (s *Server) pumpNotifications() {
	ch := s.client.Notifications()
	for {
		select {
		case n := <-ch:
			s.broadcast(n)
		case <-s.done:
			return
		}
	}
}

// broadcast sends one notification to all connected subscribers.
func (s *Server) broadcast(n protocol.Notification) {
	data, err := json.Marshal(NewEvent(n))
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Subscriber buffer full, skip.
		}
	}
}

// NewEvent wraps a notification in its wire envelope.
func NewEvent(n protocol.Notification) Event {
	return Event{
		Kind: n.Kind.Name(),
		When: n.When,
		Raw:  n.Raw,
		Data: n.Data,
	}
}

// readPump reads from the WebSocket connection until it closes.
// Subscribers are read-only; inbound frames are discarded.
func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Printf("stream: subscriber %s read error: %v", c.id, err)
			}
			return
		}
	}
}

// writePump writes queued events to the WebSocket connection and keeps
// it alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected subscriber. Called exactly
// once per subscriber, from its readPump.
func (s *Server) removeClient(c *wsClient) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	n := len(s.clients)
	s.clientsMu.Unlock()

	close(c.send)
	s.logger.Printf("stream: subscriber %s disconnected (%d active)", c.id, n)
}
