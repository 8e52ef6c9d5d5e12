package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/realtime"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBuffer   = 64
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

type hubClient struct {
	userID string
	conn   *websocket.Conn
	send   chan realtime.Frame

	mu      sync.Mutex
	threads map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func (c *hubClient) subscribed(threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.threads[threadID]
	return ok
}

func (c *hubClient) setSubscribed(threadID string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.threads[threadID] = struct{}{}
	} else {
		delete(c.threads, threadID)
	}
}

func (c *hubClient) enqueue(f realtime.Frame) {
	select {
	case c.send <- f:
	default:
		// Full buffer; the client refetches history on reconnect.
	}
}

// Hub fans message.created frames out to connected clients subscribed to
// the message's thread.
type Hub struct {
	store  *Store
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	subs    chan string
}

// NewHub creates a hub that authorises subscriptions against store.
func NewHub(store *Store, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		store:   store,
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
		subs:    make(chan string, 64),
	}
}

// Serve runs a websocket session for userID until the peer disconnects.
func (h *Hub) Serve(ctx context.Context, userID string, conn *websocket.Conn) {
	c := h.add(userID, conn)
	defer h.remove(c)

	for {
		var f realtime.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.logger.Debug("ws read ended", zap.String("user", userID), zap.Error(err))
			}
			return
		}
		h.handleFrame(c, f)
	}
}

func (h *Hub) handleFrame(c *hubClient, f realtime.Frame) {
	switch f.Type {
	case realtime.FrameSubscribe, realtime.FrameUnsubscribe:
		var data realtime.SubscribeData
		if err := json.Unmarshal(f.Data, &data); err != nil || data.ThreadID == "" {
			h.sendError(c, "subscribe needs a thread_id")
			return
		}
		if f.Type == realtime.FrameUnsubscribe {
			c.setSubscribed(data.ThreadID, false)
			return
		}
		if !h.store.CanSubscribe(c.userID, data.ThreadID) {
			h.sendError(c, "not a participant of "+data.ThreadID)
			return
		}
		c.setSubscribed(data.ThreadID, true)
		h.logger.Debug("ws subscribed", zap.String("user", c.userID), zap.String("thread", data.ThreadID))
		select {
		case h.subs <- data.ThreadID:
		default:
		}
	default:
		h.sendError(c, "unknown frame type "+f.Type)
	}
}

// Subscriptions yields thread ids as clients subscribe to them. Tests use
// it to wait until a push can be delivered.
func (h *Hub) Subscriptions() <-chan string { return h.subs }

// Publish pushes m to every client subscribed to its thread.
func (h *Hub) Publish(m api.Message) {
	f, err := realtime.NewFrame(realtime.FrameMessageCreated, m)
	if err != nil {
		h.logger.Error("encode frame", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.subscribed(m.ThreadID) {
			c.enqueue(f)
		}
	}
}

// Clients returns the number of connected sockets.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connected client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) add(userID string, conn *websocket.Conn) *hubClient {
	ctx, cancel := context.WithCancel(context.Background())
	c := &hubClient{
		userID:  userID,
		conn:    conn,
		send:    make(chan realtime.Frame, sendBuffer),
		threads: make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.keepAliveLoop()
	return c
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (h *Hub) sendError(c *hubClient, msg string) {
	f, err := realtime.NewFrame(realtime.FrameError, realtime.ErrorData{Message: msg})
	if err == nil {
		c.enqueue(f)
	}
}

func (c *hubClient) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case f := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			_ = wsjson.Write(ctx, c.conn, f)
			cancel()
		}
	}
}

func (c *hubClient) keepAliveLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
			_ = c.conn.Ping(ctx)
			cancel()
		}
	}
}
