package sync

import (
	"context"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/status"
	"go.uber.org/zap"
)

// Ingester is the chat session side of the engine.
type Ingester interface {
	Identity() chat.Identity
	Ingest(m chat.Message) bool
	ReloadThreads(ctx context.Context)
}

// Engine feeds realtime pushes into the open chat session. Ingestion is
// idempotent: the session keys messages by server id.
// It subscribes to "realtime." events on the bus.
type Engine struct {
	target Ingester
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}

	// connected is owned by the event loop goroutine.
	connected bool
}

// NewEngine creates a new sync engine.
func NewEngine(target Ingester, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		target: target,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to realtime events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe("realtime.", 256)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the event loop to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case bus.KindRealtimeMessage:
		m, ok := evt.Payload.(api.Message)
		if !ok {
			return
		}
		e.IngestMessage(ctx, m)
	case bus.KindRealtimeStatus:
		change, ok := evt.Payload.(status.Change)
		if !ok {
			return
		}
		if change.To != status.Connected {
			return
		}
		// Pushes sent while the link was down are lost; the thread list
		// carries the latest message of each thread.
		if e.connected {
			e.logger.Info("realtime reconnected, refreshing threads")
			e.target.ReloadThreads(ctx)
		}
		e.connected = true
	}
}

// IngestMessage applies one pushed message. A message for a thread the
// session does not know yet triggers a thread list reload.
func (e *Engine) IngestMessage(ctx context.Context, m api.Message) {
	msg := chat.MessageFromAPI(m, e.target.Identity().UserID)
	if e.target.Ingest(msg) {
		return
	}
	e.logger.Debug("message for unknown thread, reloading threads",
		zap.String("thread_id", m.ThreadID),
		zap.String("msg_id", m.ID),
	)
	e.target.ReloadThreads(ctx)
}
