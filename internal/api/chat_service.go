package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/matheus3301/schoolchat/internal/rest"
)

// ChatService wraps the chat thread and message endpoints.
type ChatService struct {
	client *rest.Client
}

// NewChatService creates a chat service on top of the shared REST client.
func NewChatService(c *rest.Client) *ChatService {
	return &ChatService{client: c}
}

// ListThreads returns every thread the signed-in user participates in.
func (s *ChatService) ListThreads(ctx context.Context) ([]Thread, error) {
	var out ThreadsResponse
	if err := s.client.Get(ctx, "/api/chat/threads", nil).Decode(&out); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return out.Threads, nil
}

// CheckExistingThread looks up the direct thread with userID. The thread is
// nil when none exists.
func (s *ChatService) CheckExistingThread(ctx context.Context, userID string) (*Thread, error) {
	req := CheckExistingThreadRequest{Participants: []string{userID}, ThreadType: ThreadDirect}
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("check existing thread: %w", err)
	}
	var out CheckExistingThreadResponse
	if err := s.client.Post(ctx, "/api/chat/check-existing-thread", req).Decode(&out); err != nil {
		return nil, fmt.Errorf("check existing thread: %w", err)
	}
	if !out.Exists || out.Thread == nil || out.Thread.ID == "" {
		return nil, nil
	}
	return out.Thread, nil
}

// StartConversation creates a thread seeded with its first message.
func (s *ChatService) StartConversation(ctx context.Context, req StartConversationRequest) (*StartConversationResponse, error) {
	if req.ThreadType == "" {
		req.ThreadType = ThreadDirect
	}
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	var out StartConversationResponse
	if err := s.client.Post(ctx, "/api/chat/start-conversation", req).Decode(&out); err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	if out.Thread.ID == "" {
		return nil, fmt.Errorf("start conversation: %w", &rest.Error{Message: "response has no thread id", Err: rest.ErrMalformed})
	}
	if out.Message.ThreadID == "" {
		out.Message.ThreadID = out.Thread.ID
	}
	return &out, nil
}

// SendMessage posts content to an existing thread and returns the server copy.
func (s *ChatService) SendMessage(ctx context.Context, threadID, content string) (*Message, error) {
	req := SendMessageRequest{ThreadID: threadID, Content: content}
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	var out Message
	if err := s.client.Post(ctx, "/api/chat/messages", req).Decode(&out); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("send message: %w", &rest.Error{Message: "response has no message id", Err: rest.ErrMalformed})
	}
	if out.ThreadID == "" {
		out.ThreadID = threadID
	}
	return &out, nil
}

// ListMessages returns the history of a thread.
func (s *ChatService) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	if threadID == "" {
		return nil, fmt.Errorf("list messages: %w: thread_id (required)", ErrInvalidRequest)
	}
	var out MessagesResponse
	if err := s.client.Get(ctx, "/api/chat/messages", url.Values{"thread_id": {threadID}}).Decode(&out); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i := range out.Messages {
		if out.Messages[i].ThreadID == "" {
			out.Messages[i].ThreadID = threadID
		}
	}
	return out.Messages, nil
}
