package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"weatherbot/pkg/logx"
)

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(ServerConfig{}, logx.Nop())
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestMetricsHandlerServesCounters(t *testing.T) {
	NotificationsTotal.WithLabelValues("sent").Inc()
	RegisterCacheStats("weather_test", func() (uint64, uint64) { return 3, 1 })
	RegisterCacheStats("weather_test", func() (uint64, uint64) { return 0, 0 }) // duplicate is a no-op

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"weatherbot_notifications_total",
		`weatherbot_cache_hits_total{cache="weather_test"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
