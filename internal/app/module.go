// Package app composes pingme's components with fx. The TUI and the CLI
// both build on Module.
package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/auth"
	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/client"
	"github.com/matheus3301/pingme/internal/config"
	"github.com/matheus3301/pingme/internal/conversation"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/docstore/cloudstore"
	"github.com/matheus3301/pingme/internal/docstore/memstore"
	"github.com/matheus3301/pingme/internal/docstore/sqlitestore"
	"github.com/matheus3301/pingme/internal/identity"
	"github.com/matheus3301/pingme/internal/lock"
	"github.com/matheus3301/pingme/internal/logging"
	"github.com/matheus3301/pingme/internal/metrics"
	"github.com/matheus3301/pingme/internal/outbox"
	"github.com/matheus3301/pingme/internal/presence"
	"github.com/matheus3301/pingme/internal/profile"
	"github.com/matheus3301/pingme/internal/roster"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	ConfigPath string // optional override; empty = ~/.pingme/config.toml
	Exclusive  bool   // hold the profile lock for the app's lifetime
	Console    bool   // also log warnings to stderr
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("pingme",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			metrics.New,
			provideLock,
			provideStore,
			provideProvider,
			auth.NewMachine,
			fx.Annotate(presence.NewWriter, fx.As(new(auth.PresenceWriter))),
			auth.NewSession,
			roster.NewSubscriber,
			conversation.NewSubscriber,
			conversation.NewSelector,
			outbox.NewSender,
			client.NewViewState,
			client.New,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile, p.Console)
}

func provideBus(m *metrics.Metrics) *bus.Bus {
	b := bus.New()
	m.TrackDropped(b.Dropped)
	return b
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if !p.Exclusive {
		return nil, nil
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, cfg *config.Config, b *bus.Bus, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Info("store initialized", zap.String("backend", cfg.Store.Backend))
		return memstore.New(memstore.WithBus(b)), nil
	case config.BackendFirestore:
		s, err := cloudstore.Open(context.Background(), cloudstore.Config{
			ProjectID:       cfg.Store.FirestoreProject,
			CredentialsFile: cfg.Store.CredentialsFile,
		}, logger.Named("firestore"))
		if err != nil {
			return nil, err
		}
		logger.Info("store initialized", zap.String("backend", cfg.Store.Backend), zap.String("project", cfg.Store.FirestoreProject))
		return s, nil
	default:
		path := cfg.Store.SQLitePath
		if path == "" {
			path = profile.DBPath(p.Profile)
		}
		s, err := sqlitestore.Open(path, sqlitestore.WithBus(b), sqlitestore.WithLogger(logger.Named("sqlite")))
		if err != nil {
			return nil, err
		}
		logger.Info("store initialized", zap.String("backend", cfg.Store.Backend), zap.String("path", path))
		return s, nil
	}
}

func provideProvider(p Params, cfg *config.Config) identity.Provider {
	keyring := identity.NewKeyring(profile.KeyringPath(p.Profile))
	id := cfg.Identity
	if id.Provider == config.ProviderJWT {
		return identity.NewJWTProvider(id.TokenFile, identity.NewTokens(id.JWTSecret), keyring)
	}
	return identity.NewStaticProvider(identity.Principal{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
	}, keyring)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, c *client.Client, store docstore.Store, m *metrics.Metrics, lk *lock.Lock, logger *zap.Logger) {
	var srv *metrics.Server
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if addr := cfg.Metrics.ListenAddr; addr != "" {
				srv = metrics.NewServer(addr, m, logger)
				if err := srv.Start(); err != nil {
					return fmt.Errorf("metrics listen %s: %w", addr, err)
				}
			}
			return c.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			c.Close()
			if err := store.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if srv != nil {
				_ = srv.Stop(ctx)
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("pingme stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
