package api

import "time"

// Thread types accepted by the chat endpoints.
const (
	ThreadDirect = "direct"
	ThreadGroup  = "group"
)

// Roles as reported by the user endpoints.
const (
	RoleParent    = "parent"
	RoleTeacher   = "teacher"
	RolePrincipal = "principal"
)

// UserRef is the embedded user summary on participants and message senders.
type UserRef struct {
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

// Participant is one member of a chat thread.
type Participant struct {
	UserID string   `json:"user_id"`
	Role   string   `json:"role"`
	User   *UserRef `json:"user,omitempty"`
}

// Name returns the participant's display name, if the server embedded one.
func (p Participant) Name() string {
	if p.User == nil {
		return ""
	}
	return p.User.FullName
}

// Message is a chat message as returned by the messages endpoints.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	SenderID  string    `json:"sender_id"`
	Sender    *UserRef  `json:"sender,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status,omitempty"`
}

// SenderName returns the embedded sender name, if any.
func (m Message) SenderName() string {
	if m.Sender == nil {
		return ""
	}
	return m.Sender.FullName
}

// Thread is a conversation. LastMessage holds a short suffix of the history,
// never the full list.
type Thread struct {
	ID           string        `json:"id"`
	ThreadType   string        `json:"thread_type"`
	Title        string        `json:"title,omitempty"`
	CreatedAt    time.Time     `json:"created_at,omitzero"`
	Participants []Participant `json:"participants"`
	LastMessage  []Message     `json:"last_message,omitempty"`
}

// LinkedStudent is a student linked to a parent.
type LinkedStudent struct {
	ID           string `json:"id,omitempty"`
	FullName     string `json:"full_name"`
	ClassName    string `json:"class_name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// ChatInfo is the thread summary embedded in each linked parent.
type ChatInfo struct {
	HasThread    bool   `json:"has_thread"`
	ThreadID     string `json:"thread_id,omitempty"`
	MessageCount int    `json:"message_count"`
}

// LinkedParent is one entry of the teacher-linked-parents list. ParentID is
// the parent's user id.
type LinkedParent struct {
	ParentID       string          `json:"parent_id"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email,omitempty"`
	PhoneNumber    string          `json:"phone_number,omitempty"`
	LinkedStudents []LinkedStudent `json:"linked_students"`
	ChatInfo       ChatInfo        `json:"chat_info"`
}

// Principal is the school's principal record.
type Principal struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

// LinkedParentsResponse is the data payload of GET /api/users/teacher-linked-parents.
type LinkedParentsResponse struct {
	LinkedParents []LinkedParent `json:"linked_parents"`
	Principal     *Principal     `json:"principal,omitempty"`
}

// ThreadsResponse is the data payload of GET /api/chat/threads.
type ThreadsResponse struct {
	Threads []Thread `json:"threads"`
}

// CheckExistingThreadRequest is the body of POST /api/chat/check-existing-thread.
type CheckExistingThreadRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
	ThreadType   string   `json:"thread_type" validate:"required,oneof=direct group"`
}

// CheckExistingThreadResponse reports whether a direct thread already exists.
type CheckExistingThreadResponse struct {
	Exists bool    `json:"exists"`
	Thread *Thread `json:"thread,omitempty"`
}

// StartConversationRequest is the body of POST /api/chat/start-conversation.
// MessageContent seeds the new thread.
type StartConversationRequest struct {
	Participants   []string `json:"participants" validate:"required,min=1,dive,required"`
	MessageContent string   `json:"message_content" validate:"required"`
	ThreadType     string   `json:"thread_type" validate:"required,oneof=direct group"`
	Title          string   `json:"title,omitempty"`
}

// StartConversationResponse carries the created thread and its seed message.
type StartConversationResponse struct {
	Thread  Thread  `json:"thread"`
	Message Message `json:"message"`
}

// SendMessageRequest is the body of POST /api/chat/messages.
type SendMessageRequest struct {
	ThreadID string `json:"thread_id" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

// MessagesResponse is the data payload of GET /api/chat/messages.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}
