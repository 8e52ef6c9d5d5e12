package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/bus"
	"go.uber.org/zap"
)

var (
	// ErrSendFailed wraps every failure of Send. The draft is kept.
	ErrSendFailed = errors.New("send failed")
	// ErrNoThread is returned for a group contact that lost its thread.
	ErrNoThread = errors.New("contact has no thread")
	// ErrNoCounterpart is returned for a contact without a user id.
	ErrNoCounterpart = errors.New("contact has no counterpart user")
)

// SendAck is the payload of bus.KindSendAck.
type SendAck struct {
	CorrelationID string
	ContactID     string
	ThreadID      string
	MessageID     string
}

// SendFailure is the payload of bus.KindSendFailed, shown as a toast.
type SendFailure struct {
	CorrelationID string
	ContactID     string
	Err           error
}

// Send delivers text to the active contact. Empty text, no active contact
// or missing credentials make it a no-op. Without a known thread it first
// asks the server for an existing direct thread; if there is none it starts
// a conversation seeded with text, which already delivers the message.
func (s *Session) Send(ctx context.Context, text string) error {
	content := strings.TrimSpace(text)
	if content == "" || !s.me.CanSend() {
		return nil
	}
	s.mu.Lock()
	if s.closed || s.active == nil {
		s.mu.Unlock()
		return nil
	}
	contact, threadID, gen := *s.active, s.threadID, s.gen
	s.mu.Unlock()

	corrID := uuid.NewString()
	log := s.logger.With(zap.String("correlation_id", corrID), zap.String("contact_id", contact.ID))

	adopted := false
	if threadID == "" {
		if contact.Kind == KindGroup {
			if contact.LinkedThreadID == "" {
				return s.sendFailed(log, corrID, contact.ID, gen, text, ErrNoThread)
			}
			threadID = contact.LinkedThreadID
		} else {
			counterpart := contact.CounterpartID()
			if counterpart == "" {
				return s.sendFailed(log, corrID, contact.ID, gen, text, ErrNoCounterpart)
			}
			existing, err := s.chats.CheckExistingThread(ctx, counterpart)
			if err != nil {
				return s.sendFailed(log, corrID, contact.ID, gen, text, err)
			}
			if existing == nil {
				return s.startConversation(ctx, log, corrID, contact, counterpart, gen, content, text)
			}
			t := ThreadFromAPI(*existing, s.me.UserID)
			if !s.adoptThread(gen, contact.ID, t) {
				return nil
			}
			s.subscribe(ctx, t.ID)
			threadID = t.ID
			adopted = true
		}
	}

	raw, err := s.chats.SendMessage(ctx, threadID, content)
	if err != nil {
		return s.sendFailed(log, corrID, contact.ID, gen, text, err)
	}
	if raw.ThreadID == "" {
		raw.ThreadID = threadID
	}
	msg := s.ownMessage(MessageFromAPI(*raw, s.me.UserID))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.noteMessageLocked(msg)
	if s.gen == gen {
		s.messages.Upsert(msg)
		s.draft = ""
		s.bus.Emit(bus.KindMessagesUpdated, threadID)
	}
	s.bus.Emit(bus.KindContactsUpdated, s.dir.Len())
	s.mu.Unlock()

	log.Info("message sent", zap.String("thread_id", threadID), zap.String("message_id", msg.ID))
	s.bus.Emit(bus.KindSendAck, SendAck{CorrelationID: corrID, ContactID: contact.ID, ThreadID: threadID, MessageID: msg.ID})

	if adopted {
		s.fetchHistory(ctx, gen, threadID)
	}
	return nil
}

func (s *Session) startConversation(ctx context.Context, log *zap.Logger, corrID string, contact Contact, counterpart string, gen uint64, content, text string) error {
	resp, err := s.chats.StartConversation(ctx, api.StartConversationRequest{
		Participants:   []string{counterpart},
		MessageContent: content,
		ThreadType:     api.ThreadDirect,
		Title:          contact.DisplayName,
	})
	if err != nil {
		return s.sendFailed(log, corrID, contact.ID, gen, text, err)
	}

	t := ThreadFromAPI(resp.Thread, s.me.UserID)
	if len(t.Participants) == 0 {
		t.Participants = []Participant{
			{UserID: s.me.UserID, Role: s.me.Role, Name: s.me.Name},
			{UserID: counterpart, Role: string(contact.Kind), Name: contact.DisplayName},
		}
	}
	if resp.Message.ThreadID == "" {
		resp.Message.ThreadID = t.ID
	}
	seed := s.ownMessage(MessageFromAPI(resp.Message, s.me.UserID))

	if !s.adoptThread(gen, contact.ID, t) {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.noteMessageLocked(seed)
	if s.gen == gen {
		s.messages.Replace([]Message{seed})
		s.draft = ""
		s.bus.Emit(bus.KindMessagesUpdated, t.ID)
	}
	s.bus.Emit(bus.KindContactsUpdated, s.dir.Len())
	s.mu.Unlock()

	s.subscribe(ctx, t.ID)
	log.Info("conversation started", zap.String("thread_id", t.ID), zap.String("message_id", seed.ID))
	s.bus.Emit(bus.KindSendAck, SendAck{CorrelationID: corrID, ContactID: contact.ID, ThreadID: t.ID, MessageID: seed.ID})
	return nil
}

// ownMessage attributes a message returned for our own send. The server may
// omit sender_id on these responses.
func (s *Session) ownMessage(m Message) Message {
	if m.SenderID != "" {
		return m
	}
	m.SenderID = s.me.UserID
	m.IsOwn = true
	if m.SenderName == "" {
		m.SenderName = s.me.Name
	}
	return m
}

// adoptThread records a thread found or created for contactID and makes it
// the current thread if the selection is unchanged. It returns false when
// the session was closed.
func (s *Session) adoptThread(gen uint64, contactID string, t Thread) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.threads.Upsert(t)
	s.dir.Update(contactID, func(c *Contact) {
		if c.LinkedThreadID == "" {
			c.LinkedThreadID = t.ID
		}
	})
	if s.gen == gen {
		s.threadID = t.ID
	}
	return true
}

func (s *Session) sendFailed(log *zap.Logger, corrID, contactID string, gen uint64, text string, cause error) error {
	log.Error("failed to send message", zap.Error(cause))

	s.mu.Lock()
	closed := s.closed
	if !closed && s.gen == gen {
		s.draft = text
	}
	s.mu.Unlock()

	if !closed {
		s.bus.Emit(bus.KindSendFailed, SendFailure{CorrelationID: corrID, ContactID: contactID, Err: cause})
	}
	return fmt.Errorf("%w: %w", ErrSendFailed, cause)
}
