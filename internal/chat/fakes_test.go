package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

// fakeUsers serves a canned linked-parents payload.
type fakeUsers struct {
	mu    sync.Mutex
	resp  *api.LinkedParentsResponse
	err   error
	gate  chan struct{}
	calls int
}

func (f *fakeUsers) TeacherLinkedParents(ctx context.Context, _ string) (*api.LinkedParentsResponse, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

type sendCall struct {
	ThreadID string
	Content  string
}

// fakeChats records every call by name and returns configurable results.
type fakeChats struct {
	mu sync.Mutex

	threads      []api.Thread
	threadsErr   error
	threadsGate  chan struct{}
	existing     *api.Thread
	checkErr     error
	startErr     error
	sendErr      error
	messages     map[string][]api.Message
	messagesErr  error
	messagesGate chan struct{}
	// anonymousSends drops sender_id from send and start responses.
	anonymousSends bool

	calls   map[string]int
	checked []string
	started []api.StartConversationRequest
	sent    []sendCall
	seq     int
}

func newFakeChats() *fakeChats {
	return &fakeChats{calls: make(map[string]int), messages: make(map[string][]api.Message)}
}

func (f *fakeChats) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeChats) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeChats) ListThreads(ctx context.Context) ([]api.Thread, error) {
	f.mu.Lock()
	f.calls["ListThreads"]++
	gate, threads, err := f.threadsGate, f.threads, f.threadsErr
	f.mu.Unlock()
	if werr := wait(ctx, gate); werr != nil {
		return nil, werr
	}
	return threads, err
}

func (f *fakeChats) CheckExistingThread(_ context.Context, userID string) (*api.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CheckExistingThread"]++
	f.checked = append(f.checked, userID)
	return f.existing, f.checkErr
}

func (f *fakeChats) StartConversation(_ context.Context, req api.StartConversationRequest) (*api.StartConversationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["StartConversation"]++
	f.started = append(f.started, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.seq++
	resp := &api.StartConversationResponse{
		Thread: api.Thread{ID: "new-thread", ThreadType: api.ThreadDirect},
		Message: api.Message{
			ID:        fmt.Sprintf("srv-%d", f.seq),
			SenderID:  "me",
			Sender:    &api.UserRef{FullName: "Me"},
			Content:   req.MessageContent,
			CreatedAt: testNow.Add(time.Duration(f.seq) * time.Minute),
			Status:    "sent",
		},
	}
	if f.anonymousSends {
		resp.Message.SenderID = ""
		resp.Message.Sender = nil
	}
	return resp, nil
}

func (f *fakeChats) SendMessage(_ context.Context, threadID, content string) (*api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SendMessage"]++
	f.sent = append(f.sent, sendCall{ThreadID: threadID, Content: content})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.seq++
	m := &api.Message{
		ID:        fmt.Sprintf("srv-%d", f.seq),
		ThreadID:  threadID,
		SenderID:  "me",
		Content:   content,
		CreatedAt: testNow.Add(time.Duration(f.seq) * time.Minute),
		Status:    "sent",
	}
	if f.anonymousSends {
		m.SenderID = ""
	}
	return m, nil
}

func (f *fakeChats) ListMessages(ctx context.Context, threadID string) ([]api.Message, error) {
	f.mu.Lock()
	f.calls["ListMessages"]++
	f.calls["ListMessages:"+threadID]++
	gate := f.messagesGate
	msgs := append([]api.Message(nil), f.messages[threadID]...)
	err := f.messagesErr
	f.mu.Unlock()
	if werr := wait(ctx, gate); werr != nil {
		return nil, werr
	}
	return msgs, err
}

// recordingSubscriber records realtime subscriptions.
type recordingSubscriber struct {
	mu      sync.Mutex
	threads []string
	err     error
}

func (r *recordingSubscriber) Subscribe(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads = append(r.threads, threadID)
	return r.err
}

func (r *recordingSubscriber) subscribed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.threads...)
}

func me() Identity {
	return Identity{UserID: "me", Role: "teacher", Name: "Me", Token: "tok"}
}

type testEnv struct {
	session *Session
	users   *fakeUsers
	chats   *fakeChats
	rt      *recordingSubscriber
	bus     *bus.Bus
}

func newTestEnv(t *testing.T, users *fakeUsers, chats *fakeChats) *testEnv {
	t.Helper()
	if users == nil {
		users = &fakeUsers{resp: &api.LinkedParentsResponse{}}
	}
	if chats == nil {
		chats = newFakeChats()
	}
	env := &testEnv{users: users, chats: chats, rt: &recordingSubscriber{}, bus: bus.New()}
	env.session = NewSession(Deps{
		Identity: me(),
		Users:    users,
		Chats:    chats,
		Realtime: env.rt,
		Bus:      env.bus,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return testNow },
		Location: time.UTC,
	})
	t.Cleanup(env.session.Close)
	return env
}

// schoolData is a small dataset: a principal, two parents (p1 without an
// embedded thread, p2 with thread t2), and threads t1 (direct with p1),
// t2 (direct with p2) and g1 (group).
func schoolData() (*api.LinkedParentsResponse, []api.Thread) {
	linked := &api.LinkedParentsResponse{
		Principal: &api.Principal{ID: "u-head", FullName: "Head", Role: "principal"},
		LinkedParents: []api.LinkedParent{
			{ParentID: "p1", FullName: "Ann", LinkedStudents: []api.LinkedStudent{{FullName: "Kid A", ClassName: "5A"}}},
			{ParentID: "p2", FullName: "Bob", ChatInfo: api.ChatInfo{HasThread: true, ThreadID: "t2", MessageCount: 1}},
		},
	}
	threads := []api.Thread{
		{
			ID: "t1", ThreadType: "direct",
			Participants: []api.Participant{
				{UserID: "me", Role: "teacher", User: &api.UserRef{FullName: "Me"}},
				{UserID: "p1", Role: "parent", User: &api.UserRef{FullName: "Ann"}},
			},
			LastMessage: []api.Message{{ID: "m1", SenderID: "p1", Content: "hi teacher", CreatedAt: at(2, 9, 0)}},
		},
		{
			ID: "t2", ThreadType: "direct",
			Participants: []api.Participant{
				{UserID: "me", Role: "teacher"},
				{UserID: "p2", Role: "parent", User: &api.UserRef{FullName: "Bob"}},
			},
		},
		{
			ID: "g1", ThreadType: "group", Title: "5A parents",
			Participants: []api.Participant{
				{UserID: "me", Role: "teacher"},
				{UserID: "p1", Role: "parent"},
				{UserID: "p2", Role: "parent"},
			},
		},
	}
	return linked, threads
}

func ids(contacts []Contact) []string {
	out := make([]string, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

// drain returns the events currently buffered on ch.
func drain(ch <-chan bus.Event) []bus.Event {
	var out []bus.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (f *fakeUsers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for call to return")
	}
}
