// Package advisory calls an optional clothing/activity recommendation
// service. It is strictly best-effort: any failure yields an empty
// recommendation and the caller proceeds without one.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

// Config points at the recommendation backend. An empty URL disables the
// client entirely.
type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool { return c != nil && strings.TrimSpace(c.cfg.URL) != "" }

type recommendRequest struct {
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	WeatherCode int     `json:"weather_code"`
	Hobbies     string  `json:"hobbies"`
}

type recommendResponse struct {
	Recommendation string `json:"recommendation"`
}

// Recommend returns a clothing recommendation for the snapshot, or "" when
// the service is disabled, slow, or failing. It never returns an error: the
// digest must not depend on the advisory being up.
func (c *Client) Recommend(ctx context.Context, snap domain.WeatherSnapshot, profile domain.Profile) string {
	if !c.Enabled() {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(recommendRequest{
		Temperature: snap.Temperature.Value,
		WindSpeed:   snap.WindSpeed,
		WeatherCode: snap.Condition.Code,
		Hobbies:     profile.Hobbies,
	})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.URL, "/")+"/api/recommend", bytes.NewReader(body))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("advisory call failed", logx.Err(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("advisory non-success", logx.Int("status", resp.StatusCode))
		return ""
	}
	var rr recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		c.log.Debug("advisory decode failed", logx.Err(err))
		return ""
	}
	return strings.TrimSpace(rr.Recommendation)
}
