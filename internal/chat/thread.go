package chat

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
)

// ThreadType is direct (two participants) or group.
type ThreadType string

const (
	ThreadDirect ThreadType = api.ThreadDirect
	ThreadGroup  ThreadType = api.ThreadGroup
)

// Participant is a member of a thread.
type Participant struct {
	UserID string
	Role   string
	Name   string
}

// Thread is a conversation. LastMessages is a short suffix of the history.
type Thread struct {
	ID           string
	Type         ThreadType
	Title        string
	Participants []Participant
	CreatedAt    time.Time
	LastMessages []Message
}

// HasParticipant reports whether userID takes part in the thread.
func (t Thread) HasParticipant(userID string) bool {
	return slices.ContainsFunc(t.Participants, func(p Participant) bool {
		return p.UserID == userID
	})
}

// Counterpart returns the first participant that is not me.
func (t Thread) Counterpart(me string) (Participant, bool) {
	for _, p := range t.Participants {
		if p.UserID != me {
			return p, true
		}
	}
	return Participant{}, false
}

// Name is the label shown for the thread: the title or member names of a
// group, the counterpart of a direct thread.
func (t Thread) Name(me string) string {
	if t.Type == ThreadGroup {
		if t.Title != "" {
			return t.Title
		}
		names := make([]string, 0, len(t.Participants))
		for _, p := range t.Participants {
			if p.UserID != me && p.Name != "" {
				names = append(names, p.Name)
			}
		}
		return strings.Join(names, ", ")
	}
	p, ok := t.Counterpart(me)
	switch {
	case ok && p.Name != "":
		return p.Name
	case t.Title != "":
		return t.Title
	case ok:
		return p.UserID
	}
	return ""
}

// Latest returns the most recent message of the embedded suffix.
func (t Thread) Latest() (Message, bool) {
	if len(t.LastMessages) == 0 {
		return Message{}, false
	}
	return slices.MaxFunc(t.LastMessages, compareMessages), true
}

// MessageStatus is the delivery state reported by the server.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Message is one chat message. IsOwn is derived from the session identity.
type Message struct {
	ID         string
	ThreadID   string
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
	Status     MessageStatus
	IsOwn      bool
}

func compareMessages(a, b Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// MessageFromAPI converts a wire message, deriving IsOwn against me.
func MessageFromAPI(m api.Message, me string) Message {
	status := MessageStatus(m.Status)
	if status == "" {
		status = StatusSent
	}
	return Message{
		ID:         m.ID,
		ThreadID:   m.ThreadID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName(),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		Status:     status,
		IsOwn:      m.SenderID != "" && m.SenderID == me,
	}
}

// ThreadFromAPI converts a wire thread.
func ThreadFromAPI(t api.Thread, me string) Thread {
	out := Thread{
		ID:        t.ID,
		Type:      ThreadType(t.ThreadType),
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
	}
	if out.Type == "" {
		out.Type = ThreadDirect
	}
	for _, p := range t.Participants {
		out.Participants = append(out.Participants, Participant{UserID: p.UserID, Role: p.Role, Name: p.Name()})
	}
	for _, m := range t.LastMessage {
		if m.ThreadID == "" {
			m.ThreadID = t.ID
		}
		out.LastMessages = append(out.LastMessages, MessageFromAPI(m, me))
	}
	return out
}

// MessageList holds the messages of the open thread keyed by server id, so a
// message delivered twice (send response and realtime push) is stored once.
type MessageList struct {
	byID map[string]Message
}

// NewMessageList creates an empty list.
func NewMessageList() *MessageList {
	return &MessageList{byID: make(map[string]Message)}
}

// Upsert stores m, overwriting any message with the same id. It reports
// whether the id was new. Messages without an id are ignored.
func (l *MessageList) Upsert(m Message) bool {
	if m.ID == "" {
		return false
	}
	_, seen := l.byID[m.ID]
	l.byID[m.ID] = m
	return !seen
}

// Replace swaps the whole content.
func (l *MessageList) Replace(msgs []Message) {
	clear(l.byID)
	for _, m := range msgs {
		l.Upsert(m)
	}
}

// Len returns the number of distinct messages.
func (l *MessageList) Len() int { return len(l.byID) }

// Sorted returns the messages by CreatedAt ascending, ties broken by id.
func (l *MessageList) Sorted() []Message {
	out := make([]Message, 0, len(l.byID))
	for _, m := range l.byID {
		out = append(out, m)
	}
	slices.SortFunc(out, compareMessages)
	return out
}
