package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/status"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ErrNotConnected is returned by Subscribe while the link is down. The
// thread is still recorded and subscribed on the next connect.
var ErrNotConnected = errors.New("realtime not connected")

const (
	writeTimeout = 5 * time.Second
	// degradeAfter is the number of consecutive failed dials after which the
	// link is reported as degraded instead of reconnecting.
	degradeAfter = 5
)

// Backoff computes the wait before reconnect attempt n (1-based).
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff doubles from 500ms up to 30s.
var DefaultBackoff = Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second}

// Delay returns the wait before attempt n.
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := b.Initial
	for i := 1; i < n && d < b.Max; i++ {
		d *= 2
	}
	return min(d, b.Max)
}

// Client keeps a websocket to the chat push endpoint open, subscribes the
// threads the session asks for and publishes pushed messages on the bus as
// bus.KindRealtimeMessage with an api.Message payload.
type Client struct {
	endpoint string
	bus      *bus.Bus
	machine  *status.Machine
	logger   *zap.Logger
	backoff  Backoff

	mu      sync.Mutex
	conn    *websocket.Conn
	threads map[string]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a client for endpoint, authenticating with token as the
// "token" query parameter.
func New(endpoint, token string, b *bus.Bus, m *status.Machine, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return nil, fmt.Errorf("realtime url %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: u.String(),
		bus:      b,
		machine:  m,
		logger:   logger,
		backoff:  DefaultBackoff,
		threads:  make(map[string]struct{}),
	}, nil
}

// SetBackoff overrides the reconnect schedule.
func (c *Client) SetBackoff(b Backoff) { c.backoff = b }

// Start begins the connect/read loop in the background.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()
	go c.loop(ctx, done)
}

// Stop closes the connection and waits for the loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.transition(status.Closed)
}

// Subscribe asks for pushes on threadID. It is remembered across reconnects.
func (c *Client) Subscribe(ctx context.Context, threadID string) error {
	if threadID == "" {
		return nil
	}
	c.mu.Lock()
	c.threads[threadID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.sendSubscribe(ctx, conn, threadID)
}

// Subscribed returns the remembered thread ids, sorted.
func (c *Client) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.threads))
	for id := range c.threads {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (c *Client) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	failures := 0
	for {
		c.transition(status.Connecting)
		conn, _, err := websocket.Dial(ctx, c.endpoint, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			c.logger.Warn("realtime dial failed", zap.Error(err), zap.Int("attempt", failures))
			if failures >= degradeAfter {
				c.transition(status.Degraded)
			} else {
				c.transition(status.Reconnecting)
			}
			if !sleep(ctx, c.backoff.Delay(failures)) {
				return
			}
			continue
		}

		failures = 0
		c.setConn(conn)
		c.transition(status.Connected)
		c.logger.Info("realtime connected")
		c.resubscribe(ctx, conn)

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("realtime connection lost", zap.Error(err))
		c.transition(status.Reconnecting)
		if !sleep(ctx, c.backoff.Delay(1)) {
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var f Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}
		switch f.Type {
		case FrameMessageCreated:
			var m api.Message
			if err := json.Unmarshal(f.Data, &m); err != nil || m.ID == "" || m.ThreadID == "" {
				c.logger.Warn("dropping malformed realtime message", zap.Error(err), zap.ByteString("data", f.Data))
				continue
			}
			c.bus.Emit(bus.KindRealtimeMessage, m)
		case FrameError:
			var e ErrorData
			_ = json.Unmarshal(f.Data, &e)
			c.logger.Warn("realtime server error", zap.String("message", e.Message))
		default:
			c.logger.Debug("ignoring realtime frame", zap.String("type", f.Type))
		}
	}
}

func (c *Client) resubscribe(ctx context.Context, conn *websocket.Conn) {
	for _, id := range c.Subscribed() {
		if err := c.sendSubscribe(ctx, conn, id); err != nil {
			c.logger.Warn("realtime resubscribe failed", zap.String("thread_id", id), zap.Error(err))
			return
		}
	}
}

func (c *Client) sendSubscribe(ctx context.Context, conn *websocket.Conn, threadID string) error {
	f, err := NewFrame(FrameSubscribe, SubscribeData{ThreadID: threadID})
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, f); err != nil {
		return fmt.Errorf("subscribe %s: %w", threadID, err)
	}
	return nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) transition(to status.State) {
	if c.machine == nil || c.machine.Current() == to {
		return
	}
	if err := c.machine.Transition(to); err != nil {
		c.logger.Debug("realtime state change rejected", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
