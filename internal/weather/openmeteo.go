// Package weather fetches current conditions and active alerts from the
// Open-Meteo forecast API and fronts them with a TTL cache.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

const defaultBaseURL = "https://api.open-meteo.com"

// ClientConfig tunes the upstream HTTP behavior. Zero values pick sane
// defaults (10s timeout, 3 attempts).
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryMax   int // total attempts = 1 + RetryMax
	RetryBase  time.Duration
	RetryDelay time.Duration // max backoff delay
}

// Client talks to the Open-Meteo forecast endpoint. Both calls are idempotent
// reads and retried with exponential backoff and jitter.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  logx.Logger

	// observer is notified after every upstream HTTP attempt (metrics hook).
	observer func(status string)
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	} else if cfg.RetryMax == 0 {
		cfg.RetryMax = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// SetObserver installs a per-request hook called with "ok" or "error".
// Call before the client is shared between goroutines.
func (c *Client) SetObserver(fn func(status string)) {
	c.observer = fn
}

func (c *Client) observe(status string) {
	if c.observer != nil {
		c.observer(status)
	}
}

type currentWeatherResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        string  `json:"time"`
	} `json:"current_weather"`
}

type alertsResponse struct {
	Alerts []struct {
		Event       string `json:"event"`
		Headline    string `json:"headline"`
		Description string `json:"description"`
		Instruction string `json:"instruction"`
	} `json:"alerts"`
}

// CurrentWeather returns the current observation for the coordinate.
func (c *Client) CurrentWeather(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	q := url.Values{
		"latitude":         {formatCoord(coord.Latitude)},
		"longitude":        {formatCoord(coord.Longitude)},
		"current_weather":  {"true"},
		"temperature_unit": {"celsius"},
		"windspeed_unit":   {"ms"},
		"timezone":         {"auto"},
	}

	var resp currentWeatherResponse
	if err := c.getJSON(ctx, "/v1/forecast", q, &resp); err != nil {
		return domain.WeatherSnapshot{}, err
	}
	cw := resp.CurrentWeather
	if cw == nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("open-meteo: no current_weather block for %s", coord)
	}

	return domain.WeatherSnapshot{
		Temperature: domain.Celsius(cw.Temperature),
		Condition:   domain.Condition{Code: cw.WeatherCode, Description: DescribeCode(cw.WeatherCode)},
		WindSpeed:   cw.WindSpeed,
		ObservedAt:  parseObservationTime(cw.Time),
	}, nil
}

// ActiveAlerts returns zero or more active alerts for the coordinate.
// An empty list is not an error.
func (c *Client) ActiveAlerts(ctx context.Context, coord domain.Coordinate) ([]domain.Alert, error) {
	q := url.Values{
		"latitude":      {formatCoord(coord.Latitude)},
		"longitude":     {formatCoord(coord.Longitude)},
		"alerts":        {"yes"},
		"forecast_days": {"1"},
	}

	var resp alertsResponse
	if err := c.getJSON(ctx, "/v1/forecast", q, &resp); err != nil {
		return nil, err
	}

	alerts := make([]domain.Alert, 0, len(resp.Alerts))
	for _, a := range resp.Alerts {
		headline := a.Headline
		if headline == "" {
			headline = a.Event
		}
		alerts = append(alerts, domain.Alert{
			Headline:    headline,
			Event:       a.Event,
			Description: a.Description,
			Instruction: a.Instruction,
		})
	}
	return alerts, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.cfg.BaseURL + path + "?" + q.Encode()

	attempts := 1 + c.cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.doOnce(ctx, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= attempts || ctx.Err() != nil {
			break
		}

		delay := retryDelay(c.cfg.RetryBase, c.cfg.RetryDelay, attempt)
		c.log.Debug("open-meteo request failed, retrying",
			logx.Err(err), logx.Int("attempt", attempt), logx.Duration("delay", delay))
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error")
		return fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe("error")
		return fmt.Errorf("open-meteo: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe("error")
		return fmt.Errorf("decode response: %w", err)
	}
	c.observe("ok")
	return nil
}

// Exponential backoff with jitter 0.7..1.3, capped at maxDelay.
func retryDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			d = maxDelay
			break
		}
	}
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Open-Meteo reports minute precision in the location's own timezone.
func parseObservationTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
