package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/modpack/internal/config"
	"github.com/roach88/modpack/internal/model"
)

// writeWait bounds every frame write.
const writeWait = 10 * time.Second

var errNotOpen = errors.New("socket not open")

// Target is the state a Channel reads from and applies into.
// Implemented by *state.Manager.
type Target interface {
	Snapshot() model.Snapshot
	ApplyInbound(snap model.Snapshot)
}

// Option configures a Channel.
type Option func(*Channel)

// WithNotifier sets where connection events are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Channel) {
		c.notifier = n
	}
}

// WithStatusListener registers a callback for every status change.
func WithStatusListener(fn func(Status)) Option {
	return func(c *Channel) {
		c.onStatus = fn
	}
}

// WithClock sets the clock used for SYNC_STATE timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) {
		c.now = now
	}
}

// Channel is one client's connection to the sync relay.
//
// At most one connection is current. Configure and Close supersede it;
// events arriving afterwards from the superseded connection are ignored.
type Channel struct {
	target   Target
	notifier Notifier
	onStatus func(Status)
	now      func() time.Time

	mu      sync.Mutex
	current *session
	status  Status
	sender  string
}

// New creates an idle Channel for target.
func New(target Target, opts ...Option) *Channel {
	c := &Channel{
		target:   target,
		notifier: nopNotifier{},
		now:      time.Now,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Configure tears down the current connection and, when cfg is enabled
// with a URL, starts dialing a new one in the background.
func (c *Channel) Configure(cfg config.Sync) {
	url := socketURL(cfg.APIURL)

	c.mu.Lock()
	old := c.current
	c.current = nil
	c.sender = cfg.Username

	if !cfg.Enabled || url == "" {
		c.status = StatusIdle
		c.mu.Unlock()
		old.close()
		c.emit(StatusIdle)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{url: url, cancel: cancel}
	c.current = sess
	c.status = StatusSyncing
	c.mu.Unlock()

	old.close()
	c.emit(StatusSyncing)

	go c.run(ctx, sess, cfg)
}

// socketURL rewrites http(s) URLs to ws(s).
func socketURL(raw string) string {
	url := strings.TrimSpace(raw)
	if strings.HasPrefix(url, "http") {
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	return url
}

func (c *Channel) run(ctx context.Context, sess *session, cfg config.Sync) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, sess.url, nil)
	if err != nil {
		c.fail(sess, err)
		return
	}

	auth := AuthMessage{Type: TypeAuth, Username: cfg.Username, Password: cfg.Password}
	switch err := sess.open(ws, auth); {
	case errors.Is(err, errNotOpen):
		ws.Close()
		return
	case err != nil:
		ws.Close()
		c.fail(sess, err)
		return
	}

	if !c.transition(sess, StatusSuccess) {
		sess.close()
		return
	}

	slog.Info("sync connected", "url", sess.url, "user", cfg.Username)
	c.notifier.Notify(LevelSuccess, "Real-time Sync Active", "Connected to sync server.")

	c.readLoop(sess, ws)
}

func (c *Channel) readLoop(sess *session, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.closed(sess)
			} else {
				c.fail(sess, err)
			}
			return
		}
		if !c.isCurrent(sess) {
			return
		}
		c.handleFrame(data)
	}
}

func (c *Channel) handleFrame(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("sync frame dropped: malformed json", "error", err)
		return
	}

	switch env.Type {
	case TypeSyncState:
		if !env.HasData() {
			slog.Warn("sync frame dropped: no data", "sender", env.Sender)
			return
		}
		var snap model.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			slog.Warn("sync frame dropped: bad snapshot", "sender", env.Sender, "error", err)
			return
		}
		slog.Debug("sync state received", "sender", env.Sender)
		c.target.ApplyInbound(snap)
	default:
		slog.Warn("sync frame dropped: unknown type", "type", env.Type)
	}
}

// Broadcast sends snap to peers. It is a no-op unless the socket is open.
func (c *Channel) Broadcast(snap model.Snapshot) {
	c.mu.Lock()
	sess := c.current
	sender := c.sender
	c.mu.Unlock()

	if sess == nil {
		return
	}

	err := sess.writeJSON(NewSyncState(snap, sender, c.now()))
	switch {
	case err == nil:
		slog.Debug("sync state sent", "sender", sender)
	case errors.Is(err, errNotOpen):
	default:
		slog.Warn("sync state not sent", "error", err)
	}
}

// ForceSync broadcasts the target's current snapshot.
func (c *Channel) ForceSync() {
	c.Broadcast(c.target.Snapshot())
}

// Close tears down the current connection and leaves the channel idle.
func (c *Channel) Close() {
	c.mu.Lock()
	old := c.current
	c.current = nil
	changed := c.status != StatusIdle
	c.status = StatusIdle
	c.mu.Unlock()

	old.close()
	if changed {
		c.emit(StatusIdle)
	}
}

func (c *Channel) isCurrent(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == sess
}

// transition sets the status if sess is still current.
func (c *Channel) transition(sess *session, st Status) bool {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return false
	}
	c.status = st
	c.mu.Unlock()

	c.emit(st)
	return true
}

// fail reports a connection error, then drops the connection to idle.
func (c *Channel) fail(sess *session, err error) {
	if !c.transition(sess, StatusError) {
		return
	}
	slog.Warn("sync connection failed", "url", sess.url, "error", err)
	c.notifier.Notify(LevelError, "Connection Failed", "Could not reach the synchronization server.")
	c.closed(sess)
}

func (c *Channel) closed(sess *session) {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.status = StatusIdle
	c.mu.Unlock()

	sess.close()
	slog.Info("sync disconnected", "url", sess.url)
	c.emit(StatusIdle)
}

func (c *Channel) emit(st Status) {
	if c.onStatus != nil {
		c.onStatus(st)
	}
}

// session is one dial attempt and, once open, its socket.
type session struct {
	url    string
	cancel context.CancelFunc

	wmu    sync.Mutex
	ws     *websocket.Conn
	closed bool
}

// open writes the AUTH frame on ws and only then makes ws the session's
// socket, so no other frame can precede AUTH.
func (s *session) open(ws *websocket.Conn, auth AuthMessage) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return errNotOpen
	}
	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := ws.WriteJSON(auth); err != nil {
		return err
	}
	s.ws = ws
	return nil
}

func (s *session) writeJSON(v any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.ws == nil || s.closed {
		return errNotOpen
	}
	if err := s.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.ws.WriteJSON(v)
}

// close is safe on a nil session and idempotent.
func (s *session) close() {
	if s == nil {
		return
	}
	s.cancel()

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.ws != nil {
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.ws.Close()
	}
}
