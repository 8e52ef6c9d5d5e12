// Package app composes the chat client: configuration, logging, the REST
// services, the realtime channel, the chat session and the ingest engine.
package app

import (
	"context"
	"time"

	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/auth"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/config"
	"github.com/matheus3301/schoolchat/internal/logging"
	"github.com/matheus3301/schoolchat/internal/profile"
	"github.com/matheus3301/schoolchat/internal/realtime"
	"github.com/matheus3301/schoolchat/internal/rest"
	"github.com/matheus3301/schoolchat/internal/status"
	intsync "github.com/matheus3301/schoolchat/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	// Config replaces profile.LoadConfig when set.
	Config *config.Config
	// LogPath overrides the profile log file.
	LogPath string
	// Console mirrors logs to stderr. Leave off while the TUI owns the terminal.
	Console  bool
	Location *time.Location
	// Backoff overrides the realtime reconnect schedule.
	Backoff *realtime.Backoff
}

// Module returns the fx module for the chat client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("schoolchat",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideIdentity,
			provideRESTClient,
			api.NewUserService,
			api.NewChatService,
			provideRealtime,
			provideSession,
			provideSyncEngine,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, config.Validate(p.Config)
	}
	return profile.LoadConfig(p.Profile)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	path := p.LogPath
	if path == "" {
		path = profile.LogPath(p.Profile)
	}
	return logging.New(path, p.Profile, logging.Options{Level: cfg.Log.Level, Console: p.Console})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

// provideIdentity reads the signed-in user from the configured token. A
// missing or unreadable token yields an empty identity: the client still
// browses what the API allows, and sending is disabled.
func provideIdentity(cfg *config.Config, logger *zap.Logger) (chat.Identity, error) {
	token, err := cfg.Token()
	if err != nil {
		return chat.Identity{}, err
	}
	if token == "" {
		logger.Warn("no token configured, sending disabled")
		return chat.Identity{}, nil
	}
	id, err := auth.IdentityFromToken(token)
	if err != nil {
		logger.Warn("token rejected, sending disabled", zap.Error(err))
		return chat.Identity{}, nil
	}
	logger.Info("signed in", zap.String("user_id", id.UserID), zap.String("role", id.Role))
	return id, nil
}

func provideRESTClient(cfg *config.Config, id chat.Identity, logger *zap.Logger) (*rest.Client, error) {
	return rest.New(cfg.API.BaseURL,
		rest.WithTimeout(cfg.Timeout()),
		rest.WithToken(id.Token),
		rest.WithLogger(logger.Named("rest")),
	)
}

func provideRealtime(p Params, cfg *config.Config, id chat.Identity, b *bus.Bus, m *status.Machine, logger *zap.Logger) (*realtime.Client, error) {
	endpoint, err := cfg.RealtimeEndpoint()
	if err != nil {
		return nil, err
	}
	c, err := realtime.New(endpoint, id.Token, b, m, logger.Named("realtime"))
	if err != nil {
		return nil, err
	}
	if p.Backoff != nil {
		c.SetBackoff(*p.Backoff)
	}
	return c, nil
}

func provideSession(p Params, cfg *config.Config, id chat.Identity, users *api.UserService, chats *api.ChatService, rt *realtime.Client, b *bus.Bus, logger *zap.Logger) *chat.Session {
	teacherID := cfg.API.TeacherID
	if teacherID == "" && id.Role == api.RoleTeacher {
		teacherID = id.UserID
	}
	return chat.NewSession(chat.Deps{
		Identity:  id,
		TeacherID: teacherID,
		Users:     users,
		Chats:     chats,
		Realtime:  rt,
		Bus:       b,
		Logger:    logger.Named("chat"),
		Location:  p.Location,
	})
}

func provideSyncEngine(s *chat.Session, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(s, b, logger.Named("sync"))
}

func registerLifecycle(lc fx.Lifecycle, id chat.Identity, s *chat.Session, rt *realtime.Client, engine *intsync.Engine, logger *zap.Logger) {
	var cancelLoad context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start the engine first so no push published by the realtime
			// client is missed.
			engine.Start(context.Background())

			if id.Token != "" {
				rt.Start(context.Background())
			} else {
				logger.Info("realtime disabled without a token")
			}

			var ctx context.Context
			ctx, cancelLoad = context.WithCancel(context.Background())
			go s.Load(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			if cancelLoad != nil {
				cancelLoad()
			}
			s.Close()
			engine.Stop()
			rt.Stop()
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
