package app

import (
	"context"

	"weatherbot/internal/config"
	"weatherbot/pkg/logx"
)

// startWatcher begins config hot reload. Only the sections that can change
// without a restart are applied live: logging level and dispatch tuning.
// Everything else is logged as needing a restart.
func (a *App) startWatcher(ctx context.Context) {
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel

	ch := a.cfgMgr.Subscribe(1)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		_ = a.cfgMgr.Watch(wctx)
	}()
	go func() {
		defer a.watchWG.Done()
		defer a.cfgMgr.Unsubscribe(ch)
		prev := a.cfgMgr.Get()
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-ch:
				if !ok {
					return
				}
				a.applyReload(prev, cfg)
				prev = cfg
			}
		}
	}()
}

func (a *App) applyReload(oldCfg, newCfg *config.Config) {
	changed, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(changed) == 0 {
		return
	}
	a.log.Info("applying config reload", append(attrs, logx.Any("sections", changed))...)

	restart := make([]string, 0, len(changed))
	for _, section := range changed {
		switch section {
		case "logging":
			a.log.SetLevel(logx.ParseLevel(newCfg.Logging.Level, logx.LevelInfo))
		case "dispatch":
			cfg, err := buildDispatchConfig(newCfg.Dispatch)
			if err != nil {
				a.log.Warn("dispatch config invalid; keeping current", logx.Err(err))
				continue
			}
			a.dispatcher.Apply(cfg)
		default:
			restart = append(restart, section)
		}
	}
	if len(restart) > 0 {
		a.log.Warn("config sections need a restart to apply", logx.Any("sections", restart))
	}
}
