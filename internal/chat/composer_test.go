package chat

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"go.uber.org/zap"
)

func TestSendIgnoresInvalidInput(t *testing.T) {
	ctx := context.Background()

	t.Run("blank text", func(t *testing.T) {
		env := loadedEnv(t)
		if err := env.session.Open(ctx, "p1"); err != nil {
			t.Fatal(err)
		}
		env.session.SetDraft("  ")
		calls, before := env.chats.total(), env.session.Snapshot()

		for _, text := range []string{"", "   ", "\n\t "} {
			if err := env.session.Send(ctx, text); err != nil {
				t.Errorf("Send(%q) = %v, want nil", text, err)
			}
		}
		if env.chats.total() != calls {
			t.Errorf("network calls %d -> %d", calls, env.chats.total())
		}
		if after := env.session.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Errorf("state mutated:\nbefore %+v\nafter  %+v", before, after)
		}
	})

	t.Run("no active contact", func(t *testing.T) {
		env := loadedEnv(t)
		calls, before := env.chats.total(), env.session.Snapshot()

		if err := env.session.Send(ctx, "hello"); err != nil {
			t.Errorf("Send = %v, want nil", err)
		}
		if env.chats.total() != calls {
			t.Errorf("network calls %d -> %d", calls, env.chats.total())
		}
		if after := env.session.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Error("state mutated")
		}
	})

	t.Run("no token", func(t *testing.T) {
		linked, threads := schoolData()
		chats := newFakeChats()
		chats.threads = threads
		s := NewSession(Deps{
			Identity: Identity{UserID: "me"},
			Users:    &fakeUsers{resp: linked},
			Chats:    chats,
			Logger:   zap.NewNop(),
			Now:      func() time.Time { return testNow },
		})
		defer s.Close()
		s.Load(ctx)
		if err := s.Open(ctx, "p1"); err != nil {
			t.Fatal(err)
		}
		calls := chats.total()
		if err := s.Send(ctx, "hello"); err != nil {
			t.Errorf("Send = %v, want nil", err)
		}
		if chats.total() != calls {
			t.Errorf("network calls %d -> %d", calls, chats.total())
		}
	})
}

func newParentWithoutThread(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, &fakeUsers{resp: &api.LinkedParentsResponse{
		LinkedParents: []api.LinkedParent{{ParentID: "p9", FullName: "Nia"}},
	}}, nil)
	env.session.Load(context.Background())
	if err := env.session.Open(context.Background(), "p9"); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestSendWithoutThreadStartsConversation(t *testing.T) {
	env := newParentWithoutThread(t)
	ctx := context.Background()
	acks, unsub := env.bus.Subscribe(bus.KindSendAck, 4)
	defer unsub()

	env.session.SetDraft("hello")
	if err := env.session.Send(ctx, "hello"); err != nil {
		t.Fatal(err)
	}

	if n := env.chats.count("CheckExistingThread"); n != 1 {
		t.Errorf("check-existing calls = %d, want 1", n)
	}
	if n := env.chats.count("StartConversation"); n != 1 {
		t.Errorf("start-conversation calls = %d, want 1", n)
	}
	if n := env.chats.count("SendMessage"); n != 0 {
		t.Errorf("send calls = %d, want 0 after start-conversation seeded the message", n)
	}
	if env.chats.checked[0] != "p9" {
		t.Errorf("checked %q, want p9", env.chats.checked[0])
	}
	req := env.chats.started[0]
	if req.MessageContent != "hello" || !slices.Equal(req.Participants, []string{"p9"}) || req.ThreadType != api.ThreadDirect {
		t.Errorf("start request = %+v", req)
	}

	snap := env.session.Snapshot()
	if snap.ThreadID != "new-thread" {
		t.Errorf("thread = %q, want new-thread", snap.ThreadID)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "hello" || !snap.Messages[0].IsOwn {
		t.Errorf("messages = %+v, want the seed message", snap.Messages)
	}
	if snap.Draft != "" {
		t.Errorf("draft = %q, want cleared", snap.Draft)
	}
	if snap.Active.LinkedThreadID != "new-thread" || snap.Active.LastMessagePreview != "hello" {
		t.Errorf("contact = %+v", snap.Active)
	}
	if got := env.rt.subscribed(); !slices.Contains(got, "new-thread") {
		t.Errorf("subscriptions = %v, want new-thread", got)
	}
	if got := drain(acks); len(got) != 1 {
		t.Errorf("got %d acks, want 1", len(got))
	}

	// The thread is now known: the next send goes straight out.
	if err := env.session.Send(ctx, "again"); err != nil {
		t.Fatal(err)
	}
	if env.chats.count("CheckExistingThread") != 1 || env.chats.count("StartConversation") != 1 {
		t.Error("thread resolution repeated for a known thread")
	}
	if env.chats.count("SendMessage") != 1 || env.chats.sent[0].ThreadID != "new-thread" {
		t.Errorf("sent = %+v", env.chats.sent)
	}
}

func TestSendAdoptsExistingThread(t *testing.T) {
	env := newParentWithoutThread(t)
	env.chats.existing = &api.Thread{ID: "t-old", ThreadType: "direct", Participants: []api.Participant{
		{UserID: "me", Role: "teacher"}, {UserID: "p9", Role: "parent"},
	}}
	env.chats.messages["t-old"] = []api.Message{{ID: "old-1", SenderID: "p9", Content: "earlier", CreatedAt: at(1, 8, 0)}}

	if err := env.session.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	if env.chats.count("CheckExistingThread") != 1 || env.chats.count("StartConversation") != 0 || env.chats.count("SendMessage") != 1 {
		t.Errorf("calls = %v", env.chats.calls)
	}
	if env.chats.sent[0].ThreadID != "t-old" || env.chats.sent[0].Content != "hello" {
		t.Errorf("sent = %+v", env.chats.sent)
	}
	snap := env.session.Snapshot()
	if snap.ThreadID != "t-old" {
		t.Errorf("thread = %q, want t-old", snap.ThreadID)
	}
	if len(snap.Messages) != 2 || snap.Messages[0].ID != "old-1" {
		t.Errorf("messages = %+v, want history plus sent message", snap.Messages)
	}
	if got := env.rt.subscribed(); !slices.Contains(got, "t-old") {
		t.Errorf("subscriptions = %v, want t-old", got)
	}
}

func TestSendWithKnownThreadSkipsResolution(t *testing.T) {
	env := loadedEnv(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "g1"} {
		if err := env.session.Open(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := env.session.Send(ctx, "note for "+id); err != nil {
			t.Fatal(err)
		}
	}
	if env.chats.count("CheckExistingThread") != 0 || env.chats.count("StartConversation") != 0 {
		t.Errorf("calls = %v, want no thread resolution", env.chats.calls)
	}
	want := []sendCall{{ThreadID: "t1", Content: "note for p1"}, {ThreadID: "g1", Content: "note for g1"}}
	if !slices.Equal(env.chats.sent, want) {
		t.Errorf("sent = %+v, want %+v", env.chats.sent, want)
	}
}

func TestSendFailureKeepsDraftAndNotifies(t *testing.T) {
	env := loadedEnv(t)
	ctx := context.Background()
	if err := env.session.Open(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	cause := errors.New("service unavailable")
	env.chats.sendErr = cause
	toasts, unsub := env.bus.Subscribe(bus.KindSendFailed, 4)
	defer unsub()

	err := env.session.Send(ctx, "  please call me ")
	if !errors.Is(err, ErrSendFailed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrSendFailed wrapping cause", err)
	}
	snap := env.session.Snapshot()
	if snap.Draft != "  please call me " {
		t.Errorf("draft = %q, want the typed text", snap.Draft)
	}
	if len(snap.Messages) != 1 {
		t.Errorf("got %d messages, want only the existing one", len(snap.Messages))
	}

	got := drain(toasts)
	if len(got) != 1 {
		t.Fatalf("got %d toasts, want 1", len(got))
	}
	if f := got[0].Payload.(SendFailure); f.ContactID != "p1" || !errors.Is(f.Err, cause) {
		t.Errorf("toast = %+v", f)
	}
}

func TestStartConversationFailureKeepsDraft(t *testing.T) {
	env := newParentWithoutThread(t)
	env.chats.startErr = errors.New("forbidden")

	err := env.session.Send(context.Background(), "hello")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("err = %v, want ErrSendFailed", err)
	}
	snap := env.session.Snapshot()
	if snap.Draft != "hello" || snap.ThreadID != "" {
		t.Errorf("draft = %q thread = %q", snap.Draft, snap.ThreadID)
	}
	if env.chats.count("SendMessage") != 0 {
		t.Error("send called after start-conversation failed")
	}
}

func TestRealtimeEchoOfSentMessageIsNoop(t *testing.T) {
	env := loadedEnv(t)
	ctx := context.Background()
	if err := env.session.Open(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := env.session.Send(ctx, "hi"); err != nil {
		t.Fatal(err)
	}
	snap := env.session.Snapshot()
	sent := snap.Messages[len(snap.Messages)-1]

	env.session.Ingest(Message{ID: sent.ID, ThreadID: "t1", SenderID: "me", Content: "hi", CreatedAt: sent.CreatedAt, Status: StatusDelivered})

	after := env.session.Snapshot()
	if len(after.Messages) != len(snap.Messages) {
		t.Errorf("got %d messages after echo, want %d", len(after.Messages), len(snap.Messages))
	}
	if last := after.Messages[len(after.Messages)-1]; last.Status != StatusDelivered || !last.IsOwn {
		t.Errorf("last = %+v, want overwritten delivered own message", last)
	}
}

func TestSendAfterCloseIsNoop(t *testing.T) {
	env := loadedEnv(t)
	ctx := context.Background()
	if err := env.session.Open(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	env.session.Close()
	calls := env.chats.total()
	if err := env.session.Send(ctx, "hello"); err != nil {
		t.Errorf("Send = %v, want nil", err)
	}
	if env.chats.total() != calls {
		t.Error("network call after close")
	}
}

func TestSentMessageWithoutSenderIsOwn(t *testing.T) {
	ctx := context.Background()

	check := func(t *testing.T, snap Snapshot, id string) {
		t.Helper()
		for _, m := range snap.Messages {
			if m.ID != id {
				continue
			}
			if m.SenderID != "me" || !m.IsOwn || m.SenderName != "Me" {
				t.Errorf("message %s = %+v, want own message from Me", id, m)
			}
			return
		}
		t.Errorf("message %s missing from %+v", id, snap.Messages)
	}

	t.Run("start conversation seed", func(t *testing.T) {
		env := newParentWithoutThread(t)
		env.chats.anonymousSends = true
		if err := env.session.Send(ctx, "hello"); err != nil {
			t.Fatal(err)
		}
		check(t, env.session.Snapshot(), "srv-1")
	})

	t.Run("send into known thread", func(t *testing.T) {
		env := loadedEnv(t)
		if err := env.session.Open(ctx, "p1"); err != nil {
			t.Fatal(err)
		}
		env.chats.anonymousSends = true
		if err := env.session.Send(ctx, "hello"); err != nil {
			t.Fatal(err)
		}
		check(t, env.session.Snapshot(), "srv-1")
	})
}

func TestSubscribeFailureDoesNotBlockSend(t *testing.T) {
	ctx := context.Background()

	t.Run("adopted existing thread", func(t *testing.T) {
		env := newParentWithoutThread(t)
		env.rt.err = errors.New("realtime down")
		env.chats.existing = &api.Thread{ID: "t-old", ThreadType: "direct", Participants: []api.Participant{
			{UserID: "me", Role: "teacher"}, {UserID: "p9", Role: "parent"},
		}}
		env.chats.messages["t-old"] = []api.Message{{ID: "old-1", SenderID: "p9", Content: "earlier", CreatedAt: at(1, 8, 0)}}

		if err := env.session.Send(ctx, "hello"); err != nil {
			t.Fatalf("Send = %v", err)
		}
		if !slices.Contains(env.rt.subscribed(), "t-old") {
			t.Errorf("subscribe not attempted: %v", env.rt.subscribed())
		}
		if n := env.chats.count("SendMessage"); n != 1 {
			t.Errorf("send calls = %d, want 1", n)
		}
		if n := env.chats.count("ListMessages:t-old"); n != 1 {
			t.Errorf("history fetches = %d, want 1", n)
		}
		snap := env.session.Snapshot()
		if snap.ThreadID != "t-old" || len(snap.Messages) != 2 || snap.Draft != "" {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("started conversation", func(t *testing.T) {
		env := newParentWithoutThread(t)
		env.rt.err = errors.New("realtime down")
		env.session.SetDraft("hello")

		if err := env.session.Send(ctx, "hello"); err != nil {
			t.Fatalf("Send = %v", err)
		}
		if !slices.Contains(env.rt.subscribed(), "new-thread") {
			t.Errorf("subscribe not attempted: %v", env.rt.subscribed())
		}
		if n := env.chats.count("StartConversation"); n != 1 {
			t.Errorf("start calls = %d, want 1", n)
		}
		snap := env.session.Snapshot()
		if snap.ThreadID != "new-thread" || len(snap.Messages) != 1 || snap.Draft != "" {
			t.Errorf("snapshot = %+v", snap)
		}

		if err := env.session.Send(ctx, "again"); err != nil {
			t.Fatalf("second Send = %v", err)
		}
		if n := env.chats.count("SendMessage"); n != 1 {
			t.Errorf("send calls = %d, want 1", n)
		}
	})
}
