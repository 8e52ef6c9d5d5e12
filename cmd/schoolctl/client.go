package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/auth"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/config"
	"github.com/matheus3301/schoolchat/internal/logging"
	"github.com/matheus3301/schoolchat/internal/profile"
	"github.com/matheus3301/schoolchat/internal/rest"
	"go.uber.org/zap"
)

var errNoToken = errors.New("no token configured; run `schoolctl login <token>` or set SCHOOLCHAT_TOKEN")

// client bundles what one command needs. The CLI talks REST only: there is
// no realtime channel, so a session opened here sees a point-in-time view.
type client struct {
	cfg     *config.Config
	id      chat.Identity
	chats   *api.ChatService
	session *chat.Session
	logger  *zap.Logger
}

func newClient(profileName string) (*client, error) {
	cfg, err := profile.LoadConfig(profileName)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(profile.LogPath(profileName), profileName, logging.Options{Level: cfg.Log.Level})
	if err != nil {
		return nil, err
	}

	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errNoToken
	}
	id, err := auth.IdentityFromToken(token)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	rc, err := rest.New(cfg.API.BaseURL,
		rest.WithTimeout(cfg.Timeout()),
		rest.WithToken(id.Token),
		rest.WithLogger(logger.Named("rest")),
	)
	if err != nil {
		return nil, err
	}
	chats := api.NewChatService(rc)

	teacherID := cfg.API.TeacherID
	if teacherID == "" && id.Role == api.RoleTeacher {
		teacherID = id.UserID
	}
	s := chat.NewSession(chat.Deps{
		Identity:  id,
		TeacherID: teacherID,
		Users:     api.NewUserService(rc),
		Chats:     chats,
		Logger:    logger.Named("chat"),
	})
	return &client{cfg: cfg, id: id, chats: chats, session: s, logger: logger}, nil
}

func (c *client) Close() {
	c.session.Close()
	_ = c.logger.Sync()
}

func cmdLogin(profileName, token string) error {
	id, err := auth.IdentityFromToken(token)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if err := profile.EnsureDir(profileName); err != nil {
		return err
	}
	if err := os.WriteFile(profile.TokenPath(profileName), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	fmt.Printf("Signed in as %s (%s) on profile %q\n", displayName(id), id.Role, profileName)
	return nil
}

func displayName(id chat.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.UserID
}
