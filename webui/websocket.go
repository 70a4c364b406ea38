package webui

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"img2img/logging"
)

// BroadcasterConfig tunes websocket keepalive and buffering.
type BroadcasterConfig struct {
	PingInterval         time.Duration
	PongWait             time.Duration
	WriteWait            time.Duration
	MaxMessageSize       int64
	ClientSendBufferSize int
}

// DefaultBroadcasterConfig returns production settings.
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		PingInterval:         30 * time.Second,
		PongWait:             60 * time.Second,
		WriteWait:            10 * time.Second,
		MaxMessageSize:       512,
		ClientSendBufferSize: 16,
	}
}

// Broadcaster pushes output and state changes to every connected page.
// Clients are read-only; anything they send is discarded.
type Broadcaster struct {
	cfg      BroadcasterConfig
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool

	// greeting returns the messages a new client receives first.
	greeting func() []WSMessage
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// NewBroadcaster returns a broadcaster with no clients.
func NewBroadcaster(cfg BroadcasterConfig, logger *logging.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broadcaster{
		cfg:     cfg,
		logger:  logger.Named("ws"),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// SetGreeting installs the function producing the initial messages for new
// clients.
func (b *Broadcaster) SetGreeting(fn func() []WSMessage) {
	b.mu.Lock()
	b.greeting = fn
	b.mu.Unlock()
}

// HandleConnection upgrades the request and registers the client.
func (b *Broadcaster) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("websocket upgrade failed",
			zap.String("remote", r.RemoteAddr),
			zap.Error(err))
		return
	}

	c := &wsClient{
		conn:   conn,
		send:   make(chan []byte, b.cfg.ClientSendBufferSize),
		remote: r.RemoteAddr,
	}

	// Queue the greeting before registering so it precedes any broadcast.
	b.mu.RLock()
	greeting := b.greeting
	b.mu.RUnlock()
	if greeting != nil {
		for _, msg := range greeting() {
			if data, err := json.Marshal(msg); err == nil {
				select {
				case c.send <- data:
				default:
				}
			}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.Debug("client connected", zap.String("remote", c.remote), zap.Int("clients", count))

	go b.writePump(c)
	go b.readPump(c)
}

// Broadcast queues msg for every client. A client whose buffer is full is
// disconnected.
func (b *Broadcaster) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshal websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	var slow []*wsClient
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.Warn("client too slow, disconnecting", zap.String("remote", c.remote))
		b.drop(c)
	}
}

// BroadcastState is a convenience for state changes.
func (b *Broadcaster) BroadcastState(state string, busy bool) {
	b.Broadcast(NewStateMessage(StateData{State: state, Busy: busy}))
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client and refuses new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		b.drop(c)
	}
}

// drop unregisters c and closes its send queue; the write pump then closes
// the connection.
func (b *Broadcaster) drop(c *wsClient) {
	b.mu.Lock()
	_, ok := b.clients[c]
	if ok {
		delete(b.clients, c)
		close(c.send)
	}
	count := len(b.clients)
	b.mu.Unlock()

	if ok {
		b.logger.Debug("client disconnected", zap.String("remote", c.remote), zap.Int("clients", count))
	}
}

func (b *Broadcaster) readPump(c *wsClient) {
	defer b.drop(c)

	c.conn.SetReadLimit(b.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Debug("websocket read error", zap.String("remote", c.remote), zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (b *Broadcaster) writePump(c *wsClient) {
	ticker := time.NewTicker(b.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.drop(c)
				return
			}
		}
	}
}
