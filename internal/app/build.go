package app

import (
	"context"
	"fmt"
	"strings"

	"weatherbot/internal/advisory"
	"weatherbot/internal/config"
	"weatherbot/internal/dispatch"
	"weatherbot/internal/geocode"
	"weatherbot/internal/scheduler"
	"weatherbot/internal/storage"
	"weatherbot/internal/telegram"
	"weatherbot/internal/weather"
)

// The build helpers turn the string-typed config file sections into the
// typed configs each package takes. Zero values defer to package defaults.

func buildStorageConfig(c config.StorageConfig) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: c.Driver, Path: c.Path, BusyTimeout: busy}, nil
}

func buildWeatherConfig(c config.WeatherConfig) (weather.ClientConfig, error) {
	timeout, err := config.ParseDurationField("weather.timeout", c.Timeout)
	if err != nil {
		return weather.ClientConfig{}, err
	}
	base, err := config.ParseDurationField("weather.retry_base", c.RetryBase)
	if err != nil {
		return weather.ClientConfig{}, err
	}
	maxDelay, err := config.ParseDurationField("weather.retry_max_delay", c.RetryMaxDelay)
	if err != nil {
		return weather.ClientConfig{}, err
	}
	return weather.ClientConfig{
		BaseURL:    c.BaseURL,
		Timeout:    timeout,
		RetryMax:   c.RetryMax,
		RetryBase:  base,
		RetryDelay: maxDelay,
	}, nil
}

func buildGeocodeConfig(c config.GeocodingConfig) (geocode.ClientConfig, error) {
	timeout, err := config.ParseDurationField("geocoding.timeout", c.Timeout)
	if err != nil {
		return geocode.ClientConfig{}, err
	}
	return geocode.ClientConfig{BaseURL: c.BaseURL, Timeout: timeout}, nil
}

func buildAdvisoryConfig(c config.AdvisoryConfig) (advisory.Config, error) {
	timeout, err := config.ParseDurationField("advisory.timeout", c.Timeout)
	if err != nil {
		return advisory.Config{}, err
	}
	return advisory.Config{URL: c.URL, Timeout: timeout}, nil
}

func buildDispatchConfig(c config.DispatchConfig) (dispatch.Config, error) {
	perRecipient, err := config.ParseDurationField("dispatch.per_recipient_delay", c.PerRecipientDelay)
	if err != nil {
		return dispatch.Config{}, err
	}
	sendTimeout, err := config.ParseDurationField("dispatch.send_timeout", c.SendTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		Workers:           c.Workers,
		QueueSize:         c.QueueSize,
		RatePerSec:        c.RatePerSec,
		PerRecipientDelay: perRecipient,
		SendTimeout:       sendTimeout,
	}, nil
}

func buildTelegramConfig(c config.TelegramConfig) (telegram.Config, error) {
	poll, err := config.ParseDurationField("telegram.poll_timeout", c.PollTimeout)
	if err != nil {
		return telegram.Config{}, err
	}
	handle, err := config.ParseDurationField("telegram.handle_timeout", c.HandleTimeout)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:          c.Token,
		PollTimeout:    poll,
		HandleTimeout:  handle,
		PublishCommand: c.PublishMenu,
	}, nil
}

// validateConfig gates hot reloads: a file that fails here never replaces
// the running config.
func validateConfig(_ context.Context, cfg *config.Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := buildStorageConfig(cfg.Storage); err != nil {
		return err
	}
	if _, err := buildWeatherConfig(cfg.Weather); err != nil {
		return err
	}
	if _, err := buildGeocodeConfig(cfg.Geocoding); err != nil {
		return err
	}
	if _, err := buildAdvisoryConfig(cfg.Advisory); err != nil {
		return err
	}
	if _, err := buildDispatchConfig(cfg.Dispatch); err != nil {
		return err
	}
	if _, err := buildTelegramConfig(cfg.Telegram); err != nil {
		return err
	}
	if cfg.Scheduler.Tick != "" {
		if _, err := scheduler.ParseTick(cfg.Scheduler.Tick); err != nil {
			return err
		}
	}
	if cfg.Scheduler.DailyAt != "" {
		if _, err := scheduler.ParseTimeOfDay(cfg.Scheduler.DailyAt); err != nil {
			return err
		}
	}
	return nil
}
