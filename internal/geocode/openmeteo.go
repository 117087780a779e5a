// Package geocode resolves free-text location names to coordinates through
// the Open-Meteo geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"weatherbot/internal/cache"
	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

const defaultBaseURL = "https://geocoding-api.open-meteo.com"

// Geocoded names are effectively immutable; cache them for a day.
const resolveTTL = 24 * time.Hour

// ErrNotFound is returned when no match exists for the location name.
var ErrNotFound = errors.New("location not found")

// ClientConfig tunes the geocoding HTTP client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client resolves location names, fronted by a 24h cache keyed on the
// lowercased name.
type Client struct {
	cfg   ClientConfig
	http  *http.Client
	cache *cache.TTL[domain.Coordinate]
	log   logx.Logger

	// observer is notified after every upstream search (metrics hook).
	observer func(status string)
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	return NewClientWithClock(cfg, log, clockwork.NewRealClock())
}

func NewClientWithClock(cfg ClientConfig, log logx.Logger, clock clockwork.Clock) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: cache.NewWithClock[domain.Coordinate](clock),
		log:   log,
	}
}

// SetObserver installs a per-search hook called with "ok", "not_found" or
// "error". Call before the client is shared between goroutines.
func (c *Client) SetObserver(fn func(status string)) {
	c.observer = fn
}

func (c *Client) observe(status string) {
	if c.observer != nil {
		c.observer(status)
	}
}

// Resolve returns the best-match coordinate for the name, or ErrNotFound.
// A hyphenated name that misses is retried with hyphens replaced by spaces
// ("Rostov-on-Don" style inputs differ between data sources).
func (c *Client) Resolve(ctx context.Context, locationName string) (domain.Coordinate, error) {
	name := strings.TrimSpace(locationName)
	if name == "" {
		return domain.Coordinate{}, ErrNotFound
	}

	return c.cache.GetOrFetch(ctx, "geo:"+strings.ToLower(name), resolveTTL,
		func(ctx context.Context) (domain.Coordinate, error) {
			variants := []string{name}
			if v := strings.ReplaceAll(name, "-", " "); !strings.EqualFold(v, name) {
				variants = append(variants, v)
			}

			var lastErr error
			for _, variant := range variants {
				coord, err := c.search(ctx, variant)
				if err == nil {
					return coord, nil
				}
				if !errors.Is(err, ErrNotFound) {
					lastErr = err
				}
			}
			if lastErr != nil {
				return domain.Coordinate{}, lastErr
			}
			return domain.Coordinate{}, fmt.Errorf("%w: %s", ErrNotFound, locationName)
		})
}

type searchResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
		Country   string  `json:"country"`
	} `json:"results"`
}

func (c *Client) search(ctx context.Context, name string) (domain.Coordinate, error) {
	q := url.Values{
		"name":   {name},
		"count":  {"1"},
		"format": {"json"},
	}
	u := c.cfg.BaseURL + "/v1/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error")
		return domain.Coordinate{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe("error")
		return domain.Coordinate{}, fmt.Errorf("geocoding: status %d", resp.StatusCode)
	}
	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		c.observe("error")
		return domain.Coordinate{}, fmt.Errorf("decode response: %w", err)
	}
	if len(sr.Results) == 0 {
		c.observe("not_found")
		return domain.Coordinate{}, ErrNotFound
	}
	c.observe("ok")

	best := sr.Results[0]
	coord, err := domain.NewCoordinate(best.Latitude, best.Longitude)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("geocoder returned %s: %w", name, err)
	}
	return coord, nil
}
