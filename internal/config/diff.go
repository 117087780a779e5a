package config

import (
	"strings"

	"weatherbot/pkg/logx"
)

// SummarizeChange returns the list of changed sections plus structured
// attrs safe for logging. The Telegram token is never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if strings.TrimSpace(oldCfg.Telegram.Token) != strings.TrimSpace(newCfg.Telegram.Token) ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout ||
		oldCfg.Telegram.HandleTimeout != newCfg.Telegram.HandleTimeout ||
		oldCfg.Telegram.PublishMenu != newCfg.Telegram.PublishMenu {
		changed = append(changed, "telegram")
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}

	if oldCfg.Weather != newCfg.Weather {
		changed = append(changed, "weather")
	}
	if oldCfg.Geocoding != newCfg.Geocoding {
		changed = append(changed, "geocoding")
	}

	if oldCfg.Advisory != newCfg.Advisory {
		changed = append(changed, "advisory")
		attrs = append(attrs, logx.Bool("advisory.enabled", strings.TrimSpace(newCfg.Advisory.URL) != ""))
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.tick", newCfg.Scheduler.Tick),
			logx.String("scheduler.daily_at", newCfg.Scheduler.DailyAt),
		)
	}

	if oldCfg.Dispatch != newCfg.Dispatch {
		changed = append(changed, "dispatch")
		attrs = append(attrs,
			logx.Int("dispatch.workers", newCfg.Dispatch.Workers),
			logx.Int("dispatch.rate_per_sec", newCfg.Dispatch.RatePerSec),
		)
	}

	if oldCfg.Ops != newCfg.Ops {
		changed = append(changed, "ops")
		attrs = append(attrs, logx.Bool("ops.enabled", newCfg.Ops.Enabled))
	}

	return changed, attrs
}
