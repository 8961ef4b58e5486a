package devserve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livebud/mux"
	"github.com/livebud/sse"
	"github.com/matthewmueller/socket"
)

// ReloadSignal is the message sent to browsers when the target changes
const ReloadSignal = "RELOAD"

// Event is a server-sent event mirrored to EventSource clients
type Event = sse.Event

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	// Pages are served from a different port than the socket
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscriber is one browser tab's reload socket
type subscriber struct {
	conn   *websocket.Conn
	remote string
	open   atomic.Bool
	mu     sync.Mutex // serializes writes
}

func (s *subscriber) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (s *subscriber) close() {
	s.open.Store(false)
	s.mu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
	s.mu.Unlock()
	s.conn.Close()
}

// NewBroadcaster creates a reload broadcaster that will listen on addr
func NewBroadcaster(addr string, log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		addr: addr,
		log:  log,
		sse:  sse.New(log),
	}
}

// Broadcaster accepts reload sockets and signals them when the target changes.
type Broadcaster struct {
	addr string
	log  *slog.Logger
	sse  *sse.Handler
	subs registry

	ln     net.Listener
	server *http.Server
	once   sync.Once
}

// Listen binds the broadcaster's address. The broadcaster is ready once
// Listen returns without an error.
func (b *Broadcaster) Listen() error {
	ln, err := socket.Listen(b.addr)
	if err != nil {
		return fmt.Errorf("devserve: unable to listen for reload sockets on %q: %w", b.addr, err)
	}
	b.ln = ln
	router := mux.New()
	router.Get("/", b.serveSocket)
	router.Get("/events", b.sse.ServeHTTP)
	b.server = &http.Server{Handler: router}
	return nil
}

// Serve blocks until the broadcaster is closed
func (b *Broadcaster) Serve() error {
	if b.ln == nil {
		return fmt.Errorf("devserve: broadcaster is not listening")
	}
	if err := b.server.Serve(b.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr is the bound address, or the configured one before Listen
func (b *Broadcaster) Addr() string {
	if b.ln == nil {
		return b.addr
	}
	return b.ln.Addr().String()
}

// URL is the socket URL browsers connect to
func (b *Broadcaster) URL() string {
	return "ws://" + b.Addr()
}

// Subscribers returns the number of connected sockets
func (b *Broadcaster) Subscribers() int {
	return b.subs.len()
}

func (b *Broadcaster) serveSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Expected a websocket upgrade.", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Error("devserve: unable to upgrade socket", "remote", r.RemoteAddr, "error", err)
		return
	}
	sub := &subscriber{conn: conn, remote: r.RemoteAddr}
	sub.open.Store(true)
	if !b.subs.add(sub) {
		sub.close()
		return
	}
	b.log.Info("devserve: socket opened", "remote", sub.remote)
	go b.readUntilClosed(sub)
}

// readUntilClosed discards client messages and removes the subscriber once
// the connection closes.
func (b *Broadcaster) readUntilClosed(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				b.log.Debug("devserve: socket error", "remote", sub.remote, "error", err)
			}
			break
		}
	}
	sub.open.Store(false)
	if b.subs.remove(sub) {
		b.log.Info("devserve: socket closed", "remote", sub.remote)
	}
	sub.conn.Close()
}

// Reload sends the reload signal to every subscriber that is still open.
// Subscribers that closed in the meantime are skipped.
func (b *Broadcaster) Reload(ctx context.Context) {
	for _, sub := range b.subs.snapshot() {
		if !sub.open.Load() {
			continue
		}
		if err := sub.send(ReloadSignal); err != nil {
			b.log.Debug("devserve: unable to send reload", "remote", sub.remote, "error", err)
		}
	}
	if err := b.sse.Publish(ctx, &Event{Type: "reload", Data: []byte(ReloadSignal)}); err != nil {
		b.log.Error("devserve: unable to publish reload event", "error", err)
	}
}

// Close disconnects every subscriber and stops listening. Calling Close
// more than once is fine.
func (b *Broadcaster) Close() (err error) {
	b.once.Do(func() {
		for _, sub := range b.subs.clear() {
			sub.close()
		}
		if b.server != nil {
			// Close rather than Shutdown: event streams never go idle
			err = b.server.Close()
		}
		if b.ln != nil {
			// Serve may not have taken ownership of the listener yet
			b.ln.Close()
		}
	})
	return err
}
