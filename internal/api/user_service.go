package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/matheus3301/schoolchat/internal/rest"
)

// UserService wraps the user endpoints needed by the chat screen.
type UserService struct {
	client *rest.Client
}

// NewUserService creates a user service on top of the shared REST client.
func NewUserService(c *rest.Client) *UserService {
	return &UserService{client: c}
}

// TeacherLinkedParents lists the parents linked to a teacher's students,
// each with an embedded chat_info, plus the principal record when the
// server includes it. An empty teacherID lets the server use the caller.
func (s *UserService) TeacherLinkedParents(ctx context.Context, teacherID string) (*LinkedParentsResponse, error) {
	var q url.Values
	if teacherID != "" {
		q = url.Values{"teacher_id": {teacherID}}
	}
	var out LinkedParentsResponse
	if err := s.client.Get(ctx, "/api/users/teacher-linked-parents", q).Decode(&out); err != nil {
		return nil, fmt.Errorf("list linked parents: %w", err)
	}
	return &out, nil
}
