// Package daemon wires the harvester together with fx.
package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/api"
	"github.com/matheus3301/wpp-harvest/internal/bus"
	"github.com/matheus3301/wpp-harvest/internal/command"
	"github.com/matheus3301/wpp-harvest/internal/config"
	"github.com/matheus3301/wpp-harvest/internal/docstore"
	"github.com/matheus3301/wpp-harvest/internal/harvest"
	"github.com/matheus3301/wpp-harvest/internal/journal"
	"github.com/matheus3301/wpp-harvest/internal/lock"
	"github.com/matheus3301/wpp-harvest/internal/logging"
	"github.com/matheus3301/wpp-harvest/internal/metrics"
	"github.com/matheus3301/wpp-harvest/internal/notify"
	"github.com/matheus3301/wpp-harvest/internal/session"
	"github.com/matheus3301/wpp-harvest/internal/status"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"github.com/matheus3301/wpp-harvest/internal/wa"
	"github.com/matheus3301/wpp-harvest/internal/watch"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // nil = read config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideBackend,
			provideStore,
			provideJournal,
			provideAdapter,
			provideService,
			provideRouter,
			provideNotifier,
			provideSender,
			provideEngine,
			provideEventHandler,
			provideMetrics,
			provideWatcher,
			provideAdminService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, p.Config.Validate()
	}
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName, cfg.DataDir); err != nil {
		return nil, err
	}
	// data_dir may be shared between sessions, so it is locked as well.
	dir := dataDir(p, cfg)
	logger.Info("acquiring session lock", zap.String("session", p.SessionName), zap.String("data_dir", dir))
	l, err := lock.AcquireAll(session.Dir(p.SessionName), dir)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func dataDir(p Params, cfg *config.Config) string {
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return session.DataDir(p.SessionName)
}

// The lock argument orders construction: nothing touches the session
// files before the lock is held.
func provideBackend(p Params, cfg *config.Config, _ *lock.Lock) (*docstore.FileBackend, error) {
	return docstore.NewFileBackend(dataDir(p, cfg))
}

func provideStore(backend *docstore.FileBackend, b *bus.Bus, logger *zap.Logger) (*store.Store, error) {
	st := store.New(backend, logger, store.WithFailureHook(func(collection string) {
		b.Emit(bus.KindStoreFailure, metrics.StoreFailure{Collection: collection})
	}))
	if err := st.Init(); err != nil {
		return nil, err
	}
	logger.Info("store initialized", zap.String("dir", backend.Dir()))
	return st, nil
}

func provideJournal(p Params, logger *zap.Logger, _ *lock.Lock) (*journal.DB, error) {
	path := session.JournalDBPath(p.SessionName)
	db, err := journal.Open(path)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("journal migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("journal migrations up to date", zap.Uint("version", result.Version))
	}
	return db, nil
}

func provideAdapter(p Params, b *bus.Bus, logger *zap.Logger, _ *lock.Lock) (*wa.Adapter, error) {
	return wa.NewAdapter(context.Background(), session.WASessionDBPath(p.SessionName), b, logger)
}

func provideService(st *store.Store, adapter *wa.Adapter, db *journal.DB, logger *zap.Logger) *command.Service {
	return command.NewService(st, adapter, db, logger)
}

func provideRouter(svc *command.Service, logger *zap.Logger) *command.Router {
	return command.NewRouter(svc, nil, logger)
}

func provideNotifier(db *journal.DB, logger *zap.Logger) *notify.Notifier {
	return notify.NewNotifier(db, logger)
}

func provideSender(cfg *config.Config, db *journal.DB, adapter *wa.Adapter, b *bus.Bus, logger *zap.Logger) *notify.Sender {
	limiter := notify.NewLimiter(cfg.Notify.PerMinute, cfg.Notify.Burst)
	return notify.NewSender(db, adapter, b, limiter, logger)
}

func provideEngine(cfg *config.Config, st *store.Store, router *command.Router, n *notify.Notifier, db *journal.DB, b *bus.Bus, logger *zap.Logger) *harvest.Engine {
	var out harvest.Enqueuer
	if cfg.Notify.Enabled {
		out = n
	} else {
		logger.Info("outbound messages disabled; commands run without replies")
	}
	e := harvest.NewEngine(st, router, out, db, b, logger)
	e.SetNotifyAdmins(cfg.Harvest.NotifyAdmins)
	return e
}

func provideEventHandler(cfg *config.Config, b *bus.Bus, machine *status.Machine, adapter *wa.Adapter, logger *zap.Logger) *wa.EventHandler {
	h := wa.NewEventHandler(b, machine, adapter, logger)
	h.SetIgnoreOwn(cfg.Harvest.IgnoreOwnMessages)
	return h
}

func provideMetrics(st *store.Store, b *bus.Bus, logger *zap.Logger) *metrics.Metrics {
	return metrics.New(st, b, logger)
}

func provideWatcher(backend *docstore.FileBackend, b *bus.Bus, logger *zap.Logger) *watch.Watcher {
	return watch.New(backend.Dir(), backend, b, logger,
		store.GroupsCollection,
		store.ContactsCollection,
		store.BlacklistCollection,
		store.AdminsCollection,
		store.StatsCollection,
	)
}

func provideAdminService(p Params, svc *command.Service, machine *status.Machine, adapter *wa.Adapter, db *journal.DB, b *bus.Bus, logger *zap.Logger) *api.AdminService {
	return api.NewAdminService(p.SessionName, svc, machine, adapter, db, b, logger)
}

type lifecycleDeps struct {
	fx.In

	Config  *config.Config
	Server  *Server
	Lock    *lock.Lock
	Adapter *wa.Adapter
	Handler *wa.EventHandler
	Engine  *harvest.Engine
	Sender  *notify.Sender
	Metrics *metrics.Metrics
	Watcher *watch.Watcher
	Journal *journal.DB
	Machine *status.Machine
	Bus     *bus.Bus
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	var (
		cancel     context.CancelFunc
		group      *errgroup.Group
		metricsSrv *metrics.Server
	)
	logger := d.Logger

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			if d.Config.MetricsAddr != "" {
				srv, err := d.Metrics.Listen(d.Config.MetricsAddr, func() (string, bool) {
					state := d.Machine.Current()
					return string(state), state == status.Online
				})
				if err != nil {
					cancel()
					return err
				}
				metricsSrv = srv
			}

			d.Metrics.Start(ctx, d.Bus)
			d.Engine.Start(ctx)
			if err := d.Watcher.Start(ctx); err != nil {
				logger.Warn("external edit detection disabled", zap.Error(err))
			}
			d.Adapter.RegisterEventHandler(d.Handler.Handle)

			group = &errgroup.Group{}
			group.Go(func() error {
				if err := d.Server.Serve(); err != nil {
					logger.Error("control socket error", zap.Error(err))
					return err
				}
				return nil
			})
			if metricsSrv != nil {
				group.Go(metricsSrv.Serve)
			}

			if d.Config.Notify.Enabled {
				d.Sender.Start(ctx)
			}

			if d.Adapter.IsLoggedIn() {
				_ = d.Machine.Transition(status.Connecting)
				go func() {
					if err := d.Adapter.Connect(); err != nil {
						logger.Error("auto-connect failed", zap.Error(err))
						_ = d.Machine.Transition(status.Error)
					}
				}()
			} else {
				logger.Info("no credentials found, pairing required")
				_ = d.Machine.Transition(status.AuthRequired)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Sender.Stop()
			d.Engine.Stop()
			d.Watcher.Stop()
			d.Adapter.Disconnect()

			stopCtx, stopCancel := context.WithTimeout(ctx, 5*time.Second)
			defer stopCancel()
			d.Server.Stop(stopCtx)
			if metricsSrv != nil {
				if err := metricsSrv.Shutdown(stopCtx); err != nil {
					logger.Warn("metrics server shutdown", zap.Error(err))
				}
			}
			var errs []error
			if group != nil {
				errs = append(errs, group.Wait())
			}
			d.Metrics.Stop()
			if cancel != nil {
				cancel()
			}

			if err := d.Adapter.Close(); err != nil {
				logger.Warn("error closing session store", zap.Error(err))
			}
			if err := d.Journal.Close(); err != nil {
				logger.Warn("error closing journal", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return errors.Join(errs...)
		},
	})
}
