package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/lock"
	"github.com/matheus3301/schoolchat/internal/profile"
)

type whoamiOutput struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Profile string `json:"profile"`
	BaseURL string `json:"base_url"`
	UIPID   int    `json:"ui_pid,omitempty"`
}

func cmdWhoami(profileName string, jsonOut bool) error {
	c, err := newClient(profileName)
	if err != nil {
		return err
	}
	defer c.Close()

	out := whoamiOutput{
		UserID:  c.id.UserID,
		Name:    c.id.Name,
		Role:    c.id.Role,
		Profile: profileName,
		BaseURL: c.cfg.API.BaseURL,
	}
	if h, err := lock.Read(profile.Dir(profileName)); err == nil {
		out.UIPID = h.PID
	}
	if jsonOut {
		outputJSON(out)
		return nil
	}
	fmt.Printf("User:    %s (%s)\n", displayName(c.id), out.UserID)
	fmt.Printf("Role:    %s\n", out.Role)
	fmt.Printf("Profile: %s\n", out.Profile)
	fmt.Printf("API:     %s\n", out.BaseURL)
	if out.UIPID != 0 {
		fmt.Printf("UI:      running (pid %d)\n", out.UIPID)
	}
	return nil
}

type contactOutput struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Preview     string    `json:"last_message,omitempty"`
	LastMessage time.Time `json:"last_message_at,omitzero"`
}

func cmdContacts(ctx context.Context, profileName string, jsonOut bool) error {
	c, err := newClient(profileName)
	if err != nil {
		return err
	}
	defer c.Close()

	c.session.Load(ctx)
	snap := c.session.Snapshot()

	out := make([]contactOutput, 0, len(snap.Contacts))
	for _, ct := range snap.Contacts {
		out = append(out, contactOutput{
			ID:          ct.ID,
			Name:        ct.DisplayName,
			Kind:        string(ct.Kind),
			ThreadID:    ct.LinkedThreadID,
			Preview:     ct.LastMessagePreview,
			LastMessage: ct.LastMessageAt,
		})
	}
	if jsonOut {
		outputJSON(out)
		return nil
	}
	if len(out) == 0 {
		fmt.Println("No contacts.")
		return nil
	}
	for _, ct := range snap.Contacts {
		fmt.Printf("%-10s %-24s %-28s %s\n", ct.Kind, ct.ID, ct.DisplayName, preview(ct))
	}
	return nil
}

func preview(ct chat.Contact) string {
	if ct.LastMessagePreview == "" {
		return ""
	}
	if ct.LastMessageLabel == "" {
		return ct.LastMessagePreview
	}
	return ct.LastMessageLabel + "  " + ct.LastMessagePreview
}

type threadOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	IsGroup      bool     `json:"is_group"`
	Participants []string `json:"participants"`
}

func cmdThreads(ctx context.Context, profileName string, jsonOut bool) error {
	c, err := newClient(profileName)
	if err != nil {
		return err
	}
	defer c.Close()

	raw, err := c.chats.ListThreads(ctx)
	if err != nil {
		return err
	}
	out := make([]threadOutput, 0, len(raw))
	for _, r := range raw {
		t := chat.ThreadFromAPI(r, c.id.UserID)
		names := make([]string, 0, len(t.Participants))
		for _, p := range t.Participants {
			names = append(names, p.Name)
		}
		out = append(out, threadOutput{ID: t.ID, Title: t.Name(c.id.UserID), IsGroup: t.Type == chat.ThreadGroup, Participants: names})
	}
	if jsonOut {
		outputJSON(out)
		return nil
	}
	if len(out) == 0 {
		fmt.Println("No threads.")
		return nil
	}
	for _, t := range out {
		kind := "direct"
		if t.IsGroup {
			kind = "group"
		}
		fmt.Printf("%-24s %-7s %s\n", t.ID, kind, t.Title)
	}
	return nil
}

type messageOutput struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status,omitempty"`
	Own       bool      `json:"own"`
}

// openContact loads the directory and opens contactID, which also fetches
// its history when a thread is known.
func openContact(ctx context.Context, c *client, contactID string) error {
	c.session.Load(ctx)
	if err := c.session.Open(ctx, contactID); err != nil {
		if errors.Is(err, chat.ErrUnknownContact) {
			return fmt.Errorf("contact %q not found", contactID)
		}
		return err
	}
	return nil
}

func cmdMessages(ctx context.Context, profileName, contactID string, jsonOut bool) error {
	c, err := newClient(profileName)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := openContact(ctx, c, contactID); err != nil {
		return err
	}
	snap := c.session.Snapshot()

	if jsonOut {
		out := make([]messageOutput, 0, len(snap.Messages))
		for _, m := range snap.Messages {
			out = append(out, messageOutput{
				ID: m.ID, SenderID: m.SenderID, Sender: m.SenderName, Content: m.Content,
				CreatedAt: m.CreatedAt, Status: string(m.Status), Own: m.IsOwn,
			})
		}
		outputJSON(out)
		return nil
	}
	if snap.ThreadID == "" {
		fmt.Println("No conversation yet.")
		return nil
	}
	loc := c.session.Location()
	for _, row := range c.session.Rows() {
		if row.Kind == chat.RowSeparator {
			fmt.Printf("──── %s ────\n", row.Label)
			continue
		}
		m := row.Message
		sender := m.SenderName
		if m.IsOwn {
			sender = "You"
		}
		fmt.Printf("[%s] %s: %s\n", chat.FormatTime(m.CreatedAt, loc), sender, m.Content)
	}
	return nil
}

type sendOutput struct {
	ContactID string `json:"contact_id"`
	ThreadID  string `json:"thread_id"`
}

var errEmptyMessage = errors.New("message text is empty")

func cmdSend(ctx context.Context, profileName, contactID, text string, jsonOut bool) error {
	if strings.TrimSpace(text) == "" {
		return errEmptyMessage
	}
	c, err := newClient(profileName)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := openContact(ctx, c, contactID); err != nil {
		return err
	}
	if err := c.session.Send(ctx, text); err != nil {
		return err
	}
	snap := c.session.Snapshot()
	if jsonOut {
		outputJSON(sendOutput{ContactID: contactID, ThreadID: snap.ThreadID})
		return nil
	}
	fmt.Printf("Sent to %s (thread %s)\n", contactID, snap.ThreadID)
	return nil
}
