// Package app assembles the bot: config, storage, weather clients,
// scheduler, dispatcher, transport, and the ops server, with ordered
// startup and shutdown.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"weatherbot/internal/advisory"
	"weatherbot/internal/config"
	"weatherbot/internal/dispatch"
	"weatherbot/internal/geocode"
	"weatherbot/internal/observability"
	"weatherbot/internal/scheduler"
	"weatherbot/internal/storage"
	"weatherbot/internal/subscription"
	"weatherbot/internal/telegram"
	"weatherbot/internal/weather"
	"weatherbot/pkg/logx"
)

type App struct {
	log    logx.Logger
	cfgMgr *config.Manager

	store      storage.Store
	subs       *subscription.Service
	weather    *weather.Service
	geo        *geocode.Client
	advisor    *advisory.Client
	dispatcher *dispatch.Service
	sched      *scheduler.Service
	adapter    *telegram.Adapter
	ops        *observability.Server
	opsEnabled bool

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

// New loads the config file and wires every component. Nothing is started.
func New(cfgPath string) (*App, error) {
	cfgMgr := config.NewManager(cfgPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	log := logx.NewConsole(cfg.Logging.Level)
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{log: log, cfgMgr: cfgMgr}

	storeCfg, err := buildStorageConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store, err = storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.subs = subscription.New(a.store, log.With(logx.String("comp", "subscription")))

	weatherCfg, err := buildWeatherConfig(cfg.Weather)
	if err != nil {
		return nil, err
	}
	provider := weather.NewClient(weatherCfg, log.With(logx.String("comp", "openmeteo")))
	provider.SetObserver(func(status string) {
		observability.ProviderRequestsTotal.WithLabelValues("open-meteo", status).Inc()
	})
	a.weather = weather.NewService(provider, log.With(logx.String("comp", "weather")))
	observability.RegisterCacheStats("weather", a.weather.CacheStats)

	geoCfg, err := buildGeocodeConfig(cfg.Geocoding)
	if err != nil {
		return nil, err
	}
	a.geo = geocode.NewClient(geoCfg, log.With(logx.String("comp", "geocode")))
	a.geo.SetObserver(func(status string) {
		observability.ProviderRequestsTotal.WithLabelValues("open-meteo-geocoding", status).Inc()
	})

	advisoryCfg, err := buildAdvisoryConfig(cfg.Advisory)
	if err != nil {
		return nil, err
	}
	a.advisor = advisory.NewClient(advisoryCfg, log.With(logx.String("comp", "advisory")))

	dispatchCfg, err := buildDispatchConfig(cfg.Dispatch)
	if err != nil {
		return nil, err
	}
	a.dispatcher = dispatch.New(dispatchCfg, nil, log.With(logx.String("comp", "dispatch")))
	a.dispatcher.SetObserver(func(o dispatch.Outcome) {
		observability.NotificationsTotal.WithLabelValues(o.String()).Inc()
	})
	a.dispatcher.SetDropObserver(observability.NotificationsDroppedTotal.Inc)

	a.sched, err = scheduler.New(
		scheduler.Config{Tick: cfg.Scheduler.Tick, DailyAt: cfg.Scheduler.DailyAt},
		a.subs, a.weather, a.advisor, a.dispatcher,
		log.With(logx.String("comp", "scheduler")),
	)
	if err != nil {
		return nil, err
	}
	a.sched.SetObserver(func(stage string, took time.Duration) {
		observability.SchedulerStageDuration.WithLabelValues(stage).Observe(took.Seconds())
	})

	router := telegram.NewRouter(
		a.subs, a.weather, a.geo, a.sched, a.advisor,
		log.With(logx.String("comp", "router")),
	)
	telegramCfg, err := buildTelegramConfig(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	a.adapter, err = telegram.New(telegramCfg, router, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}
	a.dispatcher.SetTransport(a.adapter)

	a.opsEnabled = cfg.Ops.Enabled
	if a.opsEnabled {
		a.ops = observability.NewServer(
			observability.ServerConfig{Addr: cfg.Ops.Addr},
			log.With(logx.String("comp", "ops")),
		)
	}

	cfgMgr.SetValidator(validateConfig)
	return a, nil
}

// Start brings every component up: ops first so health reporting covers
// startup, then the outbound pipeline, the scheduler, and finally the
// inbound transport.
func (a *App) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.ops != nil {
		a.ops.Start()
	}
	a.dispatcher.Start(ctx)
	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.adapter.Start(ctx); err != nil {
		return err
	}
	a.startWatcher(ctx)
	a.log.Info("weatherbot started")
	return nil
}

// Stop shuts down in reverse order: stop taking commands, stop producing
// notifications, drain the dispatch queue, then release storage.
func (a *App) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
	}
	_ = a.adapter.Stop(ctx)
	a.sched.Stop(ctx)
	a.dispatcher.Stop(ctx)
	if a.ops != nil {
		a.ops.Stop(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close storage", logx.Err(err))
	}
	a.log.Info("weatherbot stopped")
	return nil
}
