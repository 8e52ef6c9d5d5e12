package sync

import (
	"context"
	"testing"
	"time"

	stdsync "sync"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/status"
	"go.uber.org/zap"
)

// mockIngester records ingested messages and thread reloads.
type mockIngester struct {
	mu      stdsync.Mutex
	known   map[string]bool
	msgs    []chat.Message
	reloads int
}

func (m *mockIngester) Identity() chat.Identity { return chat.Identity{UserID: "me", Token: "tok"} }

func (m *mockIngester) Ingest(msg chat.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.known[msg.ThreadID]
}

func (m *mockIngester) ReloadThreads(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
}

func (m *mockIngester) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs), m.reloads
}

func waitCounts(t *testing.T, m *mockIngester, wantMsgs, wantReloads int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, reloads := m.counts()
		if msgs == wantMsgs && reloads == wantReloads {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("msgs = %d reloads = %d, want %d and %d", msgs, reloads, wantMsgs, wantReloads)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEngineIngestsRealtimeMessages(t *testing.T) {
	b := bus.New()
	target := &mockIngester{known: map[string]bool{"t1": true}}
	e := NewEngine(target, b, zap.NewNop())
	e.Start(context.Background())
	defer e.Stop()

	b.Emit(bus.KindRealtimeMessage, api.Message{ID: "m1", ThreadID: "t1", SenderID: "me", Content: "hi"})
	waitCounts(t, target, 1, 0)

	target.mu.Lock()
	got := target.msgs[0]
	target.mu.Unlock()
	if got.ID != "m1" || !got.IsOwn || got.Status != chat.StatusSent {
		t.Errorf("ingested = %+v", got)
	}
}

func TestEngineReloadsOnUnknownThread(t *testing.T) {
	b := bus.New()
	target := &mockIngester{known: map[string]bool{}}
	e := NewEngine(target, b, zap.NewNop())
	e.Start(context.Background())
	defer e.Stop()

	b.Emit(bus.KindRealtimeMessage, api.Message{ID: "m1", ThreadID: "new", SenderID: "p1"})
	waitCounts(t, target, 1, 1)
}

func TestEngineReloadsAfterReconnect(t *testing.T) {
	b := bus.New()
	target := &mockIngester{}
	e := NewEngine(target, b, zap.NewNop())
	e.Start(context.Background())
	defer e.Stop()

	b.Emit(bus.KindRealtimeStatus, status.Change{From: status.Disconnected, To: status.Connecting})
	b.Emit(bus.KindRealtimeStatus, status.Change{From: status.Connecting, To: status.Connected})
	b.Emit(bus.KindRealtimeStatus, status.Change{From: status.Reconnecting, To: status.Connecting})
	b.Emit(bus.KindRealtimeStatus, status.Change{From: status.Connecting, To: status.Connected})
	waitCounts(t, target, 0, 1)
}

func TestEngineIgnoresForeignPayloads(t *testing.T) {
	b := bus.New()
	target := &mockIngester{}
	e := NewEngine(target, b, zap.NewNop())
	e.Start(context.Background())

	b.Emit(bus.KindRealtimeMessage, "not a message")
	b.Emit(bus.KindSendAck, api.Message{ID: "x", ThreadID: "t1"})
	e.Stop()

	if msgs, reloads := target.counts(); msgs != 0 || reloads != 0 {
		t.Errorf("msgs = %d reloads = %d, want 0", msgs, reloads)
	}
}
