package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

func snap() domain.WeatherSnapshot {
	return domain.WeatherSnapshot{
		Temperature: domain.Celsius(5),
		Condition:   domain.Condition{Code: 61, Description: "rain"},
		WindSpeed:   8,
	}
}

func TestRecommend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/recommend" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"recommendation":"Take a raincoat."}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL}, logx.Nop())
	got := c.Recommend(context.Background(), snap(), domain.Profile{Hobbies: "running"})
	if got != "Take a raincoat." {
		t.Fatalf("Recommend = %q", got)
	}
}

func TestRecommendDisabled(t *testing.T) {
	c := NewClient(Config{}, logx.Nop())
	if c.Enabled() {
		t.Fatal("client with empty URL must be disabled")
	}
	if got := c.Recommend(context.Background(), snap(), domain.Profile{}); got != "" {
		t.Fatalf("Recommend = %q, want empty", got)
	}
}

func TestRecommendTimeoutYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"recommendation":"too late"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: 20 * time.Millisecond}, logx.Nop())
	if got := c.Recommend(context.Background(), snap(), domain.Profile{}); got != "" {
		t.Fatalf("Recommend = %q, want empty on timeout", got)
	}
}

func TestRecommendServerErrorYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL}, logx.Nop())
	if got := c.Recommend(context.Background(), snap(), domain.Profile{}); got != "" {
		t.Fatalf("Recommend = %q, want empty on 500", got)
	}
}
