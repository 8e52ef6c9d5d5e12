package chat

import "testing"

func TestThreadName(t *testing.T) {
	tests := []struct {
		name   string
		thread Thread
		want   string
	}{
		{
			name:   "direct uses counterpart",
			thread: Thread{Type: ThreadDirect, Title: "ignored", Participants: []Participant{{UserID: "me", Name: "Me"}, {UserID: "p1", Name: "Ana"}}},
			want:   "Ana",
		},
		{
			name:   "direct falls back to title",
			thread: Thread{Type: ThreadDirect, Title: "Ana's chat", Participants: []Participant{{UserID: "me"}, {UserID: "p1"}}},
			want:   "Ana's chat",
		},
		{
			name:   "direct falls back to user id",
			thread: Thread{Type: ThreadDirect, Participants: []Participant{{UserID: "me"}, {UserID: "p1"}}},
			want:   "p1",
		},
		{
			name:   "group title",
			thread: Thread{Type: ThreadGroup, Title: "Staff", Participants: []Participant{{UserID: "me"}, {UserID: "p1", Name: "Ana"}}},
			want:   "Staff",
		},
		{
			name:   "group members without me",
			thread: Thread{Type: ThreadGroup, Participants: []Participant{{UserID: "me", Name: "Me"}, {UserID: "p1", Name: "Ana"}, {UserID: "p2", Name: "Bo"}}},
			want:   "Ana, Bo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.thread.Name("me"); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}
