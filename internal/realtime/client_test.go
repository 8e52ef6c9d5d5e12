package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/status"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// pushServer accepts websocket clients, records subscribe frames and pushes
// one message per subscribed thread. With dropFirst it closes the first
// connection right after the subscription arrives.
type pushServer struct {
	mu         sync.Mutex
	tokens     []string
	subscribed []string
	conns      int
	dropFirst  bool
}

func (s *pushServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns++
	n := s.conns
	s.tokens = append(s.tokens, r.URL.Query().Get("token"))
	s.mu.Unlock()

	ctx := r.Context()
	for {
		var f Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return
		}
		if f.Type != FrameSubscribe {
			continue
		}
		var sub SubscribeData
		_ = json.Unmarshal(f.Data, &sub)
		s.mu.Lock()
		s.subscribed = append(s.subscribed, sub.ThreadID)
		s.mu.Unlock()

		if s.dropFirst && n == 1 {
			return
		}
		_ = wsjson.Write(ctx, conn, Frame{Type: FrameMessageCreated, Data: []byte(`{"id":"bad"}`)})
		push, _ := NewFrame(FrameMessageCreated, api.Message{
			ID: "m-" + sub.ThreadID, ThreadID: sub.ThreadID, SenderID: "p1", Content: "ping",
			CreatedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		})
		_ = wsjson.Write(ctx, conn, push)
	}
}

func (s *pushServer) snapshot() (conns int, subs []string, tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns, append([]string(nil), s.subscribed...), append([]string(nil), s.tokens...)
}

func startClient(t *testing.T, srv *pushServer) (*Client, *bus.Bus, *status.Machine) {
	t.Helper()
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	b := bus.New()
	m := status.NewMachine(b)
	c, err := New("ws"+strings.TrimPrefix(hs.URL, "http")+"/api/chat/ws", "tok", b, m, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	c.SetBackoff(Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond})
	return c, b, m
}

func waitMessage(t *testing.T, ch <-chan bus.Event) api.Message {
	t.Helper()
	select {
	case evt := <-ch:
		m, ok := evt.Payload.(api.Message)
		if !ok {
			t.Fatalf("payload = %T, want api.Message", evt.Payload)
		}
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for realtime message")
	}
	return api.Message{}
}

func TestSubscribeBeforeConnectIsReplayed(t *testing.T) {
	srv := &pushServer{}
	c, b, m := startClient(t, srv)
	msgs, unsub := b.Subscribe(bus.KindRealtimeMessage, 8)
	defer unsub()

	if err := c.Subscribe(context.Background(), "t1"); err != ErrNotConnected {
		t.Errorf("Subscribe before start = %v, want ErrNotConnected", err)
	}

	c.Start(context.Background())
	got := waitMessage(t, msgs)
	if got.ID != "m-t1" || got.ThreadID != "t1" {
		t.Errorf("message = %+v", got)
	}
	if m.Current() != status.Connected {
		t.Errorf("state = %s, want CONNECTED", m.Current())
	}

	c.Stop()
	if m.Current() != status.Closed {
		t.Errorf("state after stop = %s, want CLOSED", m.Current())
	}
	_, subs, tokens := srv.snapshot()
	if len(subs) != 1 || subs[0] != "t1" || tokens[0] != "tok" {
		t.Errorf("subs = %v tokens = %v", subs, tokens)
	}
}

func TestSubscribeWhileConnected(t *testing.T) {
	srv := &pushServer{}
	c, b, _ := startClient(t, srv)
	msgs, unsub := b.Subscribe(bus.KindRealtimeMessage, 8)
	defer unsub()

	c.Start(context.Background())
	defer c.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for {
		err := c.Subscribe(context.Background(), "t2")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Subscribe never succeeded: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := waitMessage(t, msgs); got.ThreadID != "t2" {
		t.Errorf("message = %+v", got)
	}
}

func TestReconnectResubscribes(t *testing.T) {
	srv := &pushServer{dropFirst: true}
	c, b, _ := startClient(t, srv)
	msgs, unsub := b.Subscribe(bus.KindRealtimeMessage, 8)
	defer unsub()
	_ = c.Subscribe(context.Background(), "t1")

	c.Start(context.Background())
	defer c.Stop()

	if got := waitMessage(t, msgs); got.ThreadID != "t1" {
		t.Errorf("message = %+v", got)
	}
	conns, subs, _ := srv.snapshot()
	if conns < 2 || len(subs) < 2 {
		t.Errorf("conns = %d subs = %v, want a reconnect with resubscribe", conns, subs)
	}
}

func TestDialFailureDegrades(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	changes, unsub := b.Subscribe(bus.KindRealtimeStatus, 256)
	defer unsub()

	c, err := New("ws://127.0.0.1:1/api/chat/ws", "", b, m, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	c.SetBackoff(Backoff{Initial: time.Millisecond, Max: time.Millisecond})
	c.Start(context.Background())
	defer c.Stop()

	reconnects := 0
	timeout := time.After(3 * time.Second)
	for {
		select {
		case evt := <-changes:
			ch := evt.Payload.(status.Change)
			switch ch.To {
			case status.Reconnecting:
				reconnects++
			case status.Degraded:
				if reconnects != degradeAfter-1 {
					t.Errorf("degraded after %d reconnects, want %d", reconnects, degradeAfter-1)
				}
				return
			}
		case <-timeout:
			t.Fatalf("never degraded, state = %s", m.Current())
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second}
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{50, time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	if _, err := New("ftp://example.com/ws", "", nil, nil, nil); err == nil {
		t.Error("New accepted ftp scheme")
	}
}
