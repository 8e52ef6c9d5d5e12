package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("chat session closed")
	// ErrUnknownContact is returned when opening an id that is not in the list.
	ErrUnknownContact = errors.New("unknown contact")
)

// ContactSource lists the linked parents and the principal record.
type ContactSource interface {
	TeacherLinkedParents(ctx context.Context, teacherID string) (*api.LinkedParentsResponse, error)
}

// ThreadService is the chat API the session and composer depend on.
type ThreadService interface {
	ListThreads(ctx context.Context) ([]api.Thread, error)
	CheckExistingThread(ctx context.Context, userID string) (*api.Thread, error)
	StartConversation(ctx context.Context, req api.StartConversationRequest) (*api.StartConversationResponse, error)
	SendMessage(ctx context.Context, threadID, content string) (*api.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]api.Message, error)
}

// Subscriber asks the realtime channel for pushes on a thread. Failures are
// tolerated: history and sending work without it.
type Subscriber interface {
	Subscribe(ctx context.Context, threadID string) error
}

// Deps are the collaborators of a Session. Users and Chats are required.
type Deps struct {
	Identity  Identity
	TeacherID string
	Users     ContactSource
	Chats     ThreadService
	Realtime  Subscriber
	Bus       *bus.Bus
	Logger    *zap.Logger
	Now       func() time.Time
	Location  *time.Location
}

// ResolutionChange is the payload of bus.KindResolutionChanged.
type ResolutionChange struct {
	ContactID string
	ThreadID  string
	Rule      Rule
	Pending   PendingState
}

// Snapshot is a consistent copy of the session state for rendering.
type Snapshot struct {
	Contacts  []Contact
	Active    *Contact
	ThreadID  string
	Messages  []Message
	Draft     string
	Resolving bool
	Pending   PendingState
	Loading   bool
}

// Session is the state of one open chat screen: the contact list, the
// active contact and its thread, the message list and the draft. All state
// is mutated under mu; network calls run outside it and their results are
// dropped when the session was closed or the selection changed meanwhile.
type Session struct {
	me        Identity
	teacherID string
	users     ContactSource
	chats     ThreadService
	realtime  Subscriber
	bus       *bus.Bus
	logger    *zap.Logger
	now       func() time.Time
	loc       *time.Location

	mu        sync.Mutex
	closed    bool
	gen       uint64
	dir       *Directory
	threads   *ThreadIndex
	active    *Contact
	threadID  string
	messages  *MessageList
	draft     string
	resolving bool
	pending   pendingResolution
	inflight  int
	loaded    bool
}

type activation struct {
	gen       uint64
	contactID string
	threadID  string
	rule      Rule
}

// NewSession creates a session. Nothing is fetched until Load.
func NewSession(d Deps) *Session {
	s := &Session{
		me:        d.Identity,
		teacherID: d.TeacherID,
		users:     d.Users,
		chats:     d.Chats,
		realtime:  d.Realtime,
		bus:       d.Bus,
		logger:    d.Logger,
		now:       d.Now,
		loc:       d.Location,
		dir:       NewDirectory(),
		threads:   NewThreadIndex(),
		messages:  NewMessageList(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Identity returns the signed-in user the session acts for.
func (s *Session) Identity() Identity { return s.me }

// Location returns the time zone used for labels.
func (s *Session) Location() *time.Location { return s.loc }

// Load fetches the linked parents (with the principal) and the thread list
// in parallel and merges each as it arrives. A failed source is logged and
// does not hold back the other. Load returns when both have completed.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight += 2
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loadContacts(ctx)
	}()
	go func() {
		defer wg.Done()
		s.loadThreads(ctx)
	}()
	wg.Wait()
}

// ReloadThreads refetches only the thread list.
func (s *Session) ReloadThreads(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight++
	s.mu.Unlock()
	s.loadThreads(ctx)
}

func (s *Session) loadContacts(ctx context.Context) {
	resp, err := s.users.TeacherLinkedParents(ctx, s.teacherID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.logger.Error("failed to load linked parents", zap.Error(err))
	} else {
		added := s.dir.Merge(ContactsFromLinked(resp))
		s.logger.Debug("linked parents merged", zap.Int("added", added), zap.Int("contacts", s.dir.Len()))
	}
	act := s.sourceDoneLocked()
	s.mu.Unlock()

	s.finishActivation(ctx, act)
}

func (s *Session) loadThreads(ctx context.Context) {
	raw, err := s.chats.ListThreads(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.logger.Error("failed to load threads", zap.Error(err))
	} else {
		threads := make([]Thread, 0, len(raw))
		for _, t := range raw {
			threads = append(threads, ThreadFromAPI(t, s.me.UserID))
		}
		s.threads.UpsertAll(threads)
		for uid, ids := range s.threads.DuplicateDirect(s.me.UserID) {
			s.logger.Warn("several direct threads with one counterpart, using the first",
				zap.String("user_id", uid), zap.Strings("thread_ids", ids))
		}
		added := s.dir.Merge(ContactsFromThreads(threads, s.me.UserID, s.now(), s.loc))
		s.logger.Debug("threads merged", zap.Int("threads", len(threads)), zap.Int("added", added))
	}
	act := s.sourceDoneLocked()
	s.mu.Unlock()

	s.finishActivation(ctx, act)
}

// sourceDoneLocked records a finished source and reacts to the new data:
// a pending external request may now resolve, or the active contact may
// now have a thread.
func (s *Session) sourceDoneLocked() *activation {
	s.inflight--
	if s.inflight <= 0 {
		s.inflight = 0
		s.loaded = true
	}
	s.bus.Emit(bus.KindContactsUpdated, s.dir.Len())

	if act := s.tryPendingLocked(); act != nil {
		return act
	}
	return s.reresolveLocked()
}

// Open activates a contact picked from the list. It cancels any pending
// external request.
func (s *Session) Open(ctx context.Context, contactID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	c, ok := s.dir.Get(contactID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownContact
	}
	s.pending = pendingResolution{}
	act := s.activateLocked(c)
	s.mu.Unlock()

	s.finishActivation(ctx, &act)
	return nil
}

// RequestContact selects a contact by id on behalf of another screen. The
// contact list may still be loading: the view is cleared at once and the
// request is resolved as data arrives.
func (s *Session) RequestContact(ctx context.Context, contactID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.active = nil
	s.threadID = ""
	s.messages = NewMessageList()
	s.draft = ""
	s.resolving = true
	s.pending = pendingResolution{state: PendingAwaiting, contactID: contactID}
	s.bus.Emit(bus.KindResolutionChanged, ResolutionChange{ContactID: contactID, Pending: PendingAwaiting})
	act := s.tryPendingLocked()
	s.mu.Unlock()

	s.finishActivation(ctx, act)
}

func (s *Session) tryPendingLocked() *activation {
	if s.pending.state != PendingAwaiting || s.active != nil {
		return nil
	}
	if c, ok := s.dir.Get(s.pending.contactID); ok {
		s.pending.state = PendingResolved
		act := s.activateLocked(c)
		return &act
	}
	if s.loaded && s.inflight == 0 && s.dir.Len() > 0 {
		s.pending.state = PendingUnresolvable
		s.resolving = false
		s.logger.Warn("requested contact not found", zap.String("contact_id", s.pending.contactID))
		s.bus.Emit(bus.KindResolutionChanged, ResolutionChange{ContactID: s.pending.contactID, Pending: PendingUnresolvable})
	}
	return nil
}

func (s *Session) activateLocked(c Contact) activation {
	s.gen++
	res := ResolveThread(c, s.threads)

	s.dir.Update(c.ID, func(x *Contact) { x.UnreadCount = 0 })
	c.UnreadCount = 0
	s.active = &c
	s.threadID = res.ThreadID
	s.messages = NewMessageList()
	s.draft = ""
	s.resolving = false
	s.seedFromIndexLocked(res.ThreadID)

	if res.ThreadID == "" {
		s.logger.Info("contact has no thread yet", zap.String("contact_id", c.ID))
	} else {
		s.logger.Debug("thread resolved",
			zap.String("contact_id", c.ID),
			zap.String("thread_id", res.ThreadID),
			zap.Stringer("rule", res.Rule),
		)
	}
	s.bus.Emit(bus.KindResolutionChanged, ResolutionChange{
		ContactID: c.ID, ThreadID: res.ThreadID, Rule: res.Rule, Pending: s.pending.state,
	})
	return activation{gen: s.gen, contactID: c.ID, threadID: res.ThreadID, rule: res.Rule}
}

// reresolveLocked retries resolution for an active contact that had no
// thread, after new threads arrived.
func (s *Session) reresolveLocked() *activation {
	if s.active == nil || s.threadID != "" {
		return nil
	}
	c, ok := s.dir.Get(s.active.ID)
	if !ok {
		return nil
	}
	res := ResolveThread(c, s.threads)
	if res.ThreadID == "" {
		return nil
	}
	s.threadID = res.ThreadID
	s.seedFromIndexLocked(res.ThreadID)
	s.bus.Emit(bus.KindResolutionChanged, ResolutionChange{ContactID: c.ID, ThreadID: res.ThreadID, Rule: res.Rule, Pending: s.pending.state})
	return &activation{gen: s.gen, contactID: c.ID, threadID: res.ThreadID, rule: res.Rule}
}

func (s *Session) seedFromIndexLocked(threadID string) {
	if t, ok := s.threads.Lookup(threadID); ok {
		for _, m := range t.LastMessages {
			s.messages.Upsert(m)
		}
	}
}

func (s *Session) finishActivation(ctx context.Context, act *activation) {
	if act == nil || act.threadID == "" {
		return
	}
	s.subscribe(ctx, act.threadID)
	s.fetchHistory(ctx, act.gen, act.threadID)
}

func (s *Session) fetchHistory(ctx context.Context, gen uint64, threadID string) {
	raw, err := s.chats.ListMessages(ctx, threadID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen || s.threadID != threadID {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load messages", zap.String("thread_id", threadID), zap.Error(err))
		return
	}
	for _, m := range raw {
		if m.ThreadID == "" {
			m.ThreadID = threadID
		}
		s.messages.Upsert(MessageFromAPI(m, s.me.UserID))
	}
	s.bus.Emit(bus.KindMessagesUpdated, threadID)
}

func (s *Session) subscribe(ctx context.Context, threadID string) {
	if s.realtime == nil {
		return
	}
	if err := s.realtime.Subscribe(ctx, threadID); err != nil {
		s.logger.Debug("realtime subscribe failed", zap.String("thread_id", threadID), zap.Error(err))
	}
}

// Ingest applies a message pushed by the realtime channel. Messages of the
// open thread are upserted by id; for other threads the contact preview is
// refreshed and its unread counter bumped. It reports whether the thread is
// known; unknown threads call for a thread reload.
func (s *Session) Ingest(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || m.ThreadID == "" || m.ID == "" {
		return false
	}
	m.IsOwn = m.SenderID != "" && m.SenderID == s.me.UserID

	known := s.noteMessageLocked(m)
	if m.ThreadID == s.threadID {
		s.messages.Upsert(m)
		s.bus.Emit(bus.KindMessagesUpdated, m.ThreadID)
		known = true
	}
	s.bus.Emit(bus.KindContactsUpdated, s.dir.Len())
	return known
}

// noteMessageLocked records m in the thread index and refreshes the preview
// of the contact backing its thread.
func (s *Session) noteMessageLocked(m Message) bool {
	known, added := s.threads.AppendMessage(m)
	c, ok := s.contactForThreadLocked(m.ThreadID)
	if !ok {
		return known
	}
	isActive := s.active != nil && s.active.ID == c.ID
	s.dir.Update(c.ID, func(x *Contact) {
		if !m.CreatedAt.Before(x.LastMessageAt) {
			applyPreview(x, m, s.now(), s.loc)
		}
		if added && !isActive && !m.IsOwn {
			x.UnreadCount++
		}
	})
	return known
}

func (s *Session) contactForThreadLocked(threadID string) (Contact, bool) {
	if c, ok := s.dir.FindByThread(threadID); ok {
		return c, true
	}
	if t, ok := s.threads.Lookup(threadID); ok {
		if derived, ok := contactFromThread(t, s.me.UserID); ok {
			if c, ok := s.dir.Get(derived.ID); ok {
				return c, true
			}
		}
	}
	if s.active != nil && threadID == s.threadID {
		return s.dir.Get(s.active.ID)
	}
	return Contact{}, false
}

// SetDraft stores the composer text.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.draft = text
}

// Close tears the session down. Results of requests still in flight are
// discarded when they complete.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	s.resolving = false
	s.pending = pendingResolution{}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Contacts:  s.dir.Contacts(),
		ThreadID:  s.threadID,
		Messages:  s.messages.Sorted(),
		Draft:     s.draft,
		Resolving: s.resolving,
		Pending:   s.pending.state,
		Loading:   s.inflight > 0,
	}
	if s.active != nil {
		c := *s.active
		if fresh, ok := s.dir.Get(c.ID); ok {
			c = fresh
		}
		snap.Active = &c
	}
	return snap
}

// Rows renders the open thread with day separators.
func (s *Session) Rows() []Row {
	snap := s.Snapshot()
	return Render(snap.Messages, s.now(), s.loc)
}
