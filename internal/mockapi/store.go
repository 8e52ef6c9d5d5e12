package mockapi

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/schoolchat/internal/api"
)

// User is a school account known to the fake backend.
type User struct {
	ID       string
	FullName string
	Role     string
	Email    string
}

// Link ties a parent to a teacher through the parent's students.
type Link struct {
	TeacherID string
	ParentID  string
	Students  []api.LinkedStudent
}

// Dataset seeds a Store.
type Dataset struct {
	Users       []User
	Links       []Link
	PrincipalID string
	Threads     []api.Thread
	Messages    []api.Message
}

type threadRecord struct {
	thread   api.Thread
	messages []api.Message
}

// Store is the in-memory state behind the fake endpoints.
type Store struct {
	mu          sync.RWMutex
	users       map[string]User
	links       []Link
	principalID string
	threads     map[string]*threadRecord
	order       []string
	now         func() time.Time
}

// NewStore loads ds into a fresh store.
func NewStore(ds Dataset, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		users:       make(map[string]User),
		links:       slices.Clone(ds.Links),
		principalID: ds.PrincipalID,
		threads:     make(map[string]*threadRecord),
		now:         now,
	}
	for _, u := range ds.Users {
		s.users[u.ID] = u
	}
	for _, t := range ds.Threads {
		t.LastMessage = nil
		s.threads[t.ID] = &threadRecord{thread: t}
		s.order = append(s.order, t.ID)
	}
	for _, m := range ds.Messages {
		if rec, ok := s.threads[m.ThreadID]; ok {
			rec.messages = append(rec.messages, m)
		}
	}
	return s
}

// User returns the account with the given id.
func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// LinkedParents builds the linked-parents payload for a teacher, as seen
// by the caller.
func (s *Store) LinkedParents(teacherID, caller string) api.LinkedParentsResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := api.LinkedParentsResponse{LinkedParents: []api.LinkedParent{}}
	seen := make(map[string]int)
	for _, l := range s.links {
		if l.TeacherID != teacherID {
			continue
		}
		if i, ok := seen[l.ParentID]; ok {
			out.LinkedParents[i].LinkedStudents = append(out.LinkedParents[i].LinkedStudents, l.Students...)
			continue
		}
		u := s.users[l.ParentID]
		lp := api.LinkedParent{
			ParentID:       l.ParentID,
			FullName:       u.FullName,
			Email:          u.Email,
			LinkedStudents: slices.Clone(l.Students),
		}
		if rec := s.directLocked(caller, l.ParentID); rec != nil {
			lp.ChatInfo = api.ChatInfo{HasThread: true, ThreadID: rec.thread.ID, MessageCount: len(rec.messages)}
		}
		seen[l.ParentID] = len(out.LinkedParents)
		out.LinkedParents = append(out.LinkedParents, lp)
	}
	if p, ok := s.users[s.principalID]; ok && s.principalID != caller {
		out.Principal = &api.Principal{ID: p.ID, FullName: p.FullName, Role: p.Role}
	}
	return out
}

// ThreadsFor lists the threads userID takes part in, each with its latest
// message.
func (s *Store) ThreadsFor(userID string) []api.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []api.Thread{}
	for _, id := range s.order {
		rec := s.threads[id]
		if !isParticipant(rec.thread, userID) {
			continue
		}
		out = append(out, s.viewLocked(rec, 1))
	}
	return out
}

// FindDirect returns the direct thread between a and b.
func (s *Store) FindDirect(a, b string) (api.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.directLocked(a, b)
	if rec == nil {
		return api.Thread{}, false
	}
	return s.viewLocked(rec, 1), true
}

// StartConversation creates a thread between creator and participants,
// seeded with content. A direct thread that already exists is reused so
// there is at most one per pair.
func (s *Store) StartConversation(creator string, participants []string, threadType, title, content string) (api.Thread, api.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := []string{creator}
	for _, p := range participants {
		if _, ok := s.users[p]; !ok {
			return api.Thread{}, api.Message{}, fmt.Errorf("%w: user %s", errNotFound, p)
		}
		if !slices.Contains(members, p) {
			members = append(members, p)
		}
	}
	if threadType == api.ThreadDirect && len(members) != 2 {
		return api.Thread{}, api.Message{}, fmt.Errorf("%w: direct threads need exactly one other participant", errBadRequest)
	}

	var rec *threadRecord
	if threadType == api.ThreadDirect {
		rec = s.directLocked(members[0], members[1])
	}
	if rec == nil {
		t := api.Thread{ID: uuid.NewString(), ThreadType: threadType, Title: title, CreatedAt: s.now().UTC()}
		for _, id := range members {
			t.Participants = append(t.Participants, api.Participant{UserID: id, Role: s.users[id].Role})
		}
		rec = &threadRecord{thread: t}
		s.threads[t.ID] = rec
		s.order = append(s.order, t.ID)
	}
	msg := s.appendLocked(rec, creator, content)
	return s.viewLocked(rec, 1), msg, nil
}

// PostMessage appends content from sender to a thread.
func (s *Store) PostMessage(sender, threadID, content string) (api.Message, api.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return api.Message{}, api.Thread{}, fmt.Errorf("%w: thread %s", errNotFound, threadID)
	}
	if !isParticipant(rec.thread, sender) {
		return api.Message{}, api.Thread{}, fmt.Errorf("%w: not a participant", errForbidden)
	}
	return s.appendLocked(rec, sender, content), rec.thread, nil
}

// Messages returns the history of a thread for a participant.
func (s *Store) Messages(userID, threadID string) ([]api.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: thread %s", errNotFound, threadID)
	}
	if !isParticipant(rec.thread, userID) {
		return nil, fmt.Errorf("%w: not a participant", errForbidden)
	}
	out := make([]api.Message, len(rec.messages))
	for i, m := range rec.messages {
		out[i] = s.decorateLocked(m)
	}
	return out, nil
}

// CanSubscribe reports whether userID may receive pushes for threadID.
func (s *Store) CanSubscribe(userID, threadID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.threads[threadID]
	return ok && isParticipant(rec.thread, userID)
}

func (s *Store) appendLocked(rec *threadRecord, sender, content string) api.Message {
	m := api.Message{
		ID:        uuid.NewString(),
		ThreadID:  rec.thread.ID,
		SenderID:  sender,
		Content:   content,
		CreatedAt: s.now().UTC(),
		Status:    "sent",
	}
	rec.messages = append(rec.messages, m)
	return s.decorateLocked(m)
}

func (s *Store) directLocked(a, b string) *threadRecord {
	for _, id := range s.order {
		rec := s.threads[id]
		t := rec.thread
		if t.ThreadType == api.ThreadDirect && len(t.Participants) == 2 && isParticipant(t, a) && isParticipant(t, b) {
			return rec
		}
	}
	return nil
}

func (s *Store) viewLocked(rec *threadRecord, lastN int) api.Thread {
	t := rec.thread
	t.Participants = make([]api.Participant, len(rec.thread.Participants))
	for i, p := range rec.thread.Participants {
		u := s.users[p.UserID]
		p.User = &api.UserRef{FullName: u.FullName, Role: u.Role}
		if p.Role == "" {
			p.Role = u.Role
		}
		t.Participants[i] = p
	}
	t.LastMessage = []api.Message{}
	if n := len(rec.messages); n > 0 {
		for _, m := range rec.messages[max(0, n-lastN):] {
			t.LastMessage = append(t.LastMessage, s.decorateLocked(m))
		}
	}
	return t
}

func (s *Store) decorateLocked(m api.Message) api.Message {
	if u, ok := s.users[m.SenderID]; ok {
		m.Sender = &api.UserRef{FullName: u.FullName, Role: u.Role}
	}
	return m
}

func isParticipant(t api.Thread, userID string) bool {
	return slices.ContainsFunc(t.Participants, func(p api.Participant) bool { return p.UserID == userID })
}
