package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/api"
	"github.com/matheus3301/drv/internal/backend"
	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/clock"
	"github.com/matheus3301/drv/internal/config"
	"github.com/matheus3301/drv/internal/lock"
	"github.com/matheus3301/drv/internal/logging"
	"github.com/matheus3301/drv/internal/metrics"
	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/poll"
	"github.com/matheus3301/drv/internal/session"
	"github.com/matheus3301/drv/internal/status"
	"github.com/matheus3301/drv/internal/store"
	intsync "github.com/matheus3301/drv/internal/sync"
)

// journalRetention bounds how long activity entries are kept.
const journalRetention = 30 * 24 * time.Hour

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config
	SocketPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideMetrics,
			provideBackend,
			provideGate,
			providePoller,
			provideOrders,
			provideChat,
			provideNotifications,
			provideCoordinator,
			provideSessionService,
			provideOrderService,
			provideChatService,
			provideNotificationService,
			provideMetricsServer,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Config.LogLevel)
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
	logger.Info("session lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore depends on the lock so only the lock holder opens the
// journal.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.JournalPath(p.SessionName)
	db, err := store.Open(dbPath)
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
	logger.Info("journal initialized", zap.String("path", dbPath))
	return db, nil
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideBackend(p Params, logger *zap.Logger) (*backend.Client, error) {
	return backend.NewClient(backend.ClientConfig{
		BaseURL:     p.Config.API.BaseURL,
		ChatBaseURL: p.Config.API.ChatBaseURL,
		Timeout:     p.Config.API.Timeout.Duration,
		Logger:      logger,
	})
}

func provideGate(b *bus.Bus) *session.Gate {
	return session.NewGate(b)
}

func providePoller(m *metrics.Metrics, logger *zap.Logger) *poll.Poller {
	return poll.New(clock.Real(), logger.Named("poll"), poll.WithObserver(m))
}

func provideOrders(c *backend.Client, g *session.Gate, b *bus.Bus, db *store.DB, m *metrics.Metrics, logger *zap.Logger) *orders.Engine {
	return orders.New(orders.Config{
		Transport: c,
		Identity:  g,
		Bus:       b,
		Recorder:  db,
		Observer:  m,
		Logger:    logger,
	})
}

func provideChat(c *backend.Client, g *session.Gate, b *bus.Bus, db *store.DB, m *metrics.Metrics, logger *zap.Logger) *chat.Engine {
	return chat.New(chat.Config{
		Transport: c,
		Identity:  g,
		Bus:       b,
		Recorder:  db,
		Observer:  m,
		Logger:    logger,
	})
}

func provideNotifications(c *backend.Client, g *session.Gate, b *bus.Bus, logger *zap.Logger) *notifications.Engine {
	return notifications.New(c, g, b, logger)
}

func provideCoordinator(p Params, pl *poll.Poller, g *session.Gate, b *bus.Bus, o *orders.Engine, c *chat.Engine, n *notifications.Engine, logger *zap.Logger) *intsync.Coordinator {
	return intsync.NewCoordinator(pl, g, b, o, c, n, intsync.Intervals{
		Orders:        p.Config.Poll.Orders.Duration,
		Chat:          p.Config.Poll.Chat.Duration,
		Notifications: p.Config.Poll.Notifications.Duration,
	}, logger)
}

func provideSessionService(p Params, m *status.Machine, g *session.Gate, c *backend.Client, db *store.DB, b *bus.Bus, logger *zap.Logger) *api.SessionService {
	return api.NewSessionService(api.SessionDeps{
		SessionName: p.SessionName,
		BaseURL:     p.Config.API.BaseURL,
		Machine:     m,
		Gate:        g,
		Auth:        c,
		Journal:     db,
		Bus:         b,
		Logger:      logger,
	})
}

func provideOrderService(e *orders.Engine, coord *intsync.Coordinator, g *session.Gate, b *bus.Bus, logger *zap.Logger) *api.OrderService {
	return api.NewOrderService(e, coord, g, b, logger)
}

func provideChatService(e *chat.Engine, coord *intsync.Coordinator, g *session.Gate, b *bus.Bus, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(e, coord, g, b, logger)
}

func provideNotificationService(e *notifications.Engine, coord *intsync.Coordinator, g *session.Gate, b *bus.Bus, logger *zap.Logger) *api.NotificationService {
	return api.NewNotificationService(e, coord, g, b, logger)
}

// provideMetricsServer returns nil when no metrics address is configured.
func provideMetricsServer(p Params, m *metrics.Metrics, machine *status.Machine, logger *zap.Logger) *metrics.Server {
	if p.Config.Metrics.Addr == "" {
		return nil
	}
	return metrics.NewServer(p.Config.Metrics.Addr, metrics.NewHandler(m, machine), logger.Named("metrics"))
}

type lifecycleParams struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Server      *Server
	Lock        *lock.Lock
	DB          *store.DB
	Coordinator *intsync.Coordinator
	Machine     *status.Machine
	Metrics     *metrics.Server
	Logger      *zap.Logger
}

func registerLifecycle(lp lifecycleParams) {
	logger := lp.Logger
	lp.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if n, err := lp.DB.Prune(ctx, time.Now().Add(-journalRetention)); err != nil {
				logger.Warn("journal prune failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("journal pruned", zap.Int64("removed", n))
			}

			if lp.Metrics != nil {
				if err := lp.Metrics.Start(); err != nil {
					return err
				}
			}

			// Polling only begins once a driver signs in and a view is watched.
			lp.Coordinator.Start(context.Background())

			go func() {
				if err := lp.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if err := lp.Machine.Transition(status.SignedOut); err != nil {
				return err
			}
			logger.Info("daemon ready, waiting for sign-in")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			lp.Server.Stop(ctx)
			lp.Coordinator.Stop()
			if lp.Metrics != nil {
				if err := lp.Metrics.Stop(ctx); err != nil {
					logger.Warn("error stopping metrics server", zap.Error(err))
				}
			}
			if err := lp.DB.Close(); err != nil {
				logger.Warn("error closing journal", zap.Error(err))
			}
			if err := lp.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
