// Package config loads and watches the bot configuration. Files may be
// JSON or YAML; YAML is converted to JSON so both formats go through the
// same strict decoder.
package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Weather   WeatherConfig   `json:"weather,omitempty"`
	Geocoding GeocodingConfig `json:"geocoding,omitempty"`
	Advisory  AdvisoryConfig  `json:"advisory,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	Dispatch  DispatchConfig  `json:"dispatch,omitempty"`
	Ops       OpsConfig       `json:"ops,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout and HandleTimeout are Go duration strings (e.g. "10s").
	PollTimeout   string `json:"poll_timeout,omitempty"`
	HandleTimeout string `json:"handle_timeout,omitempty"`
	// PublishMenu registers the bot command menu (setMyCommands) on start.
	PublishMenu bool `json:"publish_menu,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
}

// StorageConfig selects the persistence backend.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./weatherbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// WeatherConfig tunes the Open-Meteo forecast client.
//
// All durations are Go duration strings. Retries apply to reads only.
type WeatherConfig struct {
	BaseURL       string `json:"base_url,omitempty"`
	Timeout       string `json:"timeout,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

type GeocodingConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Timeout string `json:"timeout,omitempty"` // Go duration string
}

// AdvisoryConfig points at the optional recommendation service. An empty
// URL disables it.
type AdvisoryConfig struct {
	URL     string `json:"url,omitempty"`
	Timeout string `json:"timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the notification loop.
//
// Tick accepts a cron expression, HH:MM, or a Go duration (see the
// scheduler package); DailyAt is a UTC wall-clock "HH:MM".
type SchedulerConfig struct {
	Tick    string `json:"tick,omitempty"`
	DailyAt string `json:"daily_at,omitempty"`
}

// DispatchConfig controls the outbound notification pipeline.
type DispatchConfig struct {
	Workers    int `json:"workers,omitempty"`
	QueueSize  int `json:"queue_size,omitempty"`
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// PerRecipientDelay and SendTimeout are Go duration strings.
	PerRecipientDelay string `json:"per_recipient_delay,omitempty"`
	SendTimeout       string `json:"send_timeout,omitempty"`
}

// OpsConfig controls the metrics/health HTTP server.
//
// Prefer binding to localhost (e.g. "127.0.0.1:9090").
type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9090"
}
