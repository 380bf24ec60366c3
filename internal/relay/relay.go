// Package relay is the peer hub that sync channels connect to.
//
// Every peer connects to "/". An AUTH frame is recorded and logged but
// never checked. A SYNC_STATE frame is forwarded byte for byte to every
// other connected peer. The relay keeps no state of its own.
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/roach88/modpack/internal/livesync"
)

const writeWait = 10 * time.Second

// Server fans SYNC_STATE frames out between peers.
type Server struct {
	upgrader websocket.Upgrader
	peers    cmap.ConcurrentMap[string, *peer]
	newID    func() string

	mu     sync.Mutex
	closed bool
}

// Option configures a Server.
type Option func(*Server)

// WithPeerIDs replaces the random peer id generator.
func WithPeerIDs(next func() string) Option {
	return func(s *Server) {
		s.newID = next
	}
}

// New creates a relay with no peers.
func New(opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Editors connect from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: cmap.New[*peer](),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type peer struct {
	id   string
	conn *websocket.Conn

	mu   sync.Mutex
	user string
}

// write sends a frame guarded by the peer's mutex and a write deadline.
func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) setUser(user string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = user
}

func (p *peer) username() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// ServeHTTP upgrades the request and serves the peer until it leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("peer upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := &peer{id: s.newID(), conn: conn}
	s.peers.Set(p.id, p)
	slog.Info("peer connected", "peer", p.id, "remote", r.RemoteAddr, "peers", s.peers.Count())

	defer func() {
		s.peers.Remove(p.id)
		conn.Close()
		slog.Info("peer disconnected", "peer", p.id, "user", p.username(), "peers", s.peers.Count())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handle(p, data)
	}
}

func (s *Server) handle(from *peer, data []byte) {
	var env livesync.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("frame dropped: malformed json", "peer", from.id, "error", err)
		return
	}

	switch env.Type {
	case livesync.TypeAuth:
		from.setUser(env.Username)
		slog.Info("peer authenticated", "peer", from.id, "user", env.Username)
	case livesync.TypeSyncState:
		delivered := s.fanout(from.id, data)
		slog.Debug("sync state relayed", "peer", from.id, "sender", env.Sender, "delivered", delivered)
	default:
		slog.Warn("frame dropped: unknown type", "peer", from.id, "type", env.Type)
	}
}

// fanout writes data to every peer except the sender and returns how
// many writes succeeded.
func (s *Server) fanout(senderID string, data []byte) int {
	delivered := 0
	for item := range s.peers.IterBuffered() {
		if item.Key == senderID {
			continue
		}
		if err := item.Val.write(data); err != nil {
			slog.Warn("relay write failed", "peer", item.Key, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Peers returns the number of connected peers.
func (s *Server) Peers() int {
	return s.peers.Count()
}

// Close disconnects every peer and refuses new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for item := range s.peers.IterBuffered() {
		item.Val.mu.Lock()
		_ = item.Val.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
			time.Now().Add(time.Second))
		item.Val.mu.Unlock()
		item.Val.conn.Close()
	}
}
