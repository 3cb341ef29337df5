package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/roomkit/roomd/config"
	"github.com/roomkit/roomd/internal/room"

	"github.com/gorilla/websocket"
)

type Server struct {
	upgrader websocket.Upgrader
	core     *room.Server
	cfg      *config.Watcher

	pingEvery time.Duration
}

func NewServer(core *room.Server, cfg *config.Watcher) *Server {
	return &Server{
		core: core,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?key=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key != s.cfg.Current().Auth.Key {
		http.Error(w, "invalid key", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(conn)
	sess := s.core.OnConnect(c)

	go s.writeLoop(c)
	s.readLoop(sess, c)

	s.core.OnDisconnect(sess)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "peer", c.RemoteAddr(), "err", err)
	}
}

// readLoop feeds inbound frames to the core one at a time, in arrival
// order. It returns on the first read error (close, timeout, broken
// pipe), which is the session's only termination path.
func (s *Server) readLoop(sess *room.Session, c *wsConn) {
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		s.core.OnMessage(sess, data)
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// wsConn adapts a gorilla connection to room.Conn. Sends are serialized
// by a one-slot semaphore so concurrent broadcasts never interleave
// frames.
type wsConn struct {
	conn      *websocket.Conn
	sendMu    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(data []byte) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close is safe under concurrent termination triggers (broadcast
// failure and handler teardown may race).
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
