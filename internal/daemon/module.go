// Package daemon composes the session runtime: config, lock, cache,
// API client, stores, push transport and reconciler, wired together
// with fx so startup order and shutdown order are explicit.
package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/api"
	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/cache"
	"github.com/ggaspari/clack/internal/chat"
	"github.com/ggaspari/clack/internal/config"
	"github.com/ggaspari/clack/internal/lock"
	"github.com/ggaspari/clack/internal/logging"
	"github.com/ggaspari/clack/internal/realtime"
	"github.com/ggaspari/clack/internal/session"
	"github.com/ggaspari/clack/internal/state"
	"github.com/ggaspari/clack/internal/status"
	intsync "github.com/ggaspari/clack/internal/sync"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideSessionConfig,
			provideSession,
			provideCache,
			provideAPIClient,
			provideStores,
			provideChatService,
			provideConn,
			provideReconciler,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideSessionConfig(p Params) (*config.Session, error) {
	cfg, err := config.LoadSession(session.SessionConfigPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideSession(p Params, cfg *config.Session) *session.Session {
	return &session.Session{
		Name:   p.SessionName,
		UserID: cfg.UserID,
		Token:  cfg.Token,
	}
}

func provideCache(p Params, logger *zap.Logger) (*cache.DB, error) {
	dbPath := session.CacheDBPath(p.SessionName)
	db, err := cache.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAPIClient(cfg *config.Session, sess *session.Session, logger *zap.Logger) (*api.Client, error) {
	return api.New(cfg.ServerURL, sess, cfg.RequestTimeout(), logger)
}

func provideStores() *state.Stores {
	return state.NewStores()
}

func provideChatService(client *api.Client, stores *state.Stores, db *cache.DB, b *bus.Bus, cfg *config.Session, logger *zap.Logger) *chat.Service {
	return chat.NewService(client, stores, db, b, cfg.EffectivePageSize(), logger)
}

func provideConn(cfg *config.Session, sess *session.Session, b *bus.Bus, machine *status.Machine, logger *zap.Logger) (*realtime.Conn, error) {
	min, max := cfg.ReconnectBounds()
	return realtime.New(cfg.ServerURL, sess, b, machine, min, max, logger)
}

func provideReconciler(client *api.Client, stores *state.Stores, db *cache.DB, b *bus.Bus, cfg *config.Session, logger *zap.Logger) *intsync.Reconciler {
	return intsync.New(client, stores, db, b, intsync.SystemClock{}, intsync.Options{
		PollInterval:   cfg.PollInterval(),
		RequestTimeout: cfg.RequestTimeout(),
		PageSize:       cfg.EffectivePageSize(),
	}, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *cache.DB, stores *state.Stores, svc *chat.Service, conn *realtime.Conn, rec *intsync.Reconciler, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Cold start: show the cached directory before the first
			// network round trip lands.
			if channels, items, err := db.ListChannels(); err != nil {
				logger.Warn("cache read failed on start", zap.Error(err))
			} else if len(channels) > 0 {
				stores.Directory.Replace(channels)
				stores.Inbox.Replace(items)
				logger.Info("directory seeded from cache", zap.Int("channels", len(channels)))
			}

			rec.Start(context.Background())
			conn.Start(context.Background())

			// Initial refresh happens off the start path so a slow or
			// unreachable backend cannot block daemon startup.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := svc.RefreshDirectory(ctx); err != nil {
					logger.Warn("initial directory refresh failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			conn.Stop()
			rec.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
