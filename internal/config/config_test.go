package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./weatherbot.db
scheduler:
  tick: "10m"
  daily_at: "08:00"
dispatch:
  workers: 5
  rate_per_sec: 5
ops:
  enabled: true
  addr: "127.0.0.1:9090"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeFile(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage driver = %q", cfg.Storage.Driver)
	}
	if cfg.Scheduler.Tick != "10m" || cfg.Scheduler.DailyAt != "08:00" {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if got := m.Get(); got != cfg {
		t.Error("Get() should return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	m := NewManager(writeFile(t, "config.json", `{"telegram":{"token":"t"},"logging":{"level":"info","console":false},"storage":{"driver":"memory","path":""}}`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeFile(t, "config.yaml", "telegram:\n  token: t\n  shiny_new_knob: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestReloadPublishesChanges(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	// Unchanged content: no publish.
	m.reload(context.Background())
	select {
	case <-ch:
		t.Fatal("unchanged config was published")
	default:
	}

	updated := sampleYAML + "\nadvisory:\n  url: \"http://localhost:8000\"\n"
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	m.reload(context.Background())
	select {
	case cfg := <-ch:
		if cfg.Advisory.URL != "http://localhost:8000" {
			t.Errorf("advisory url = %q", cfg.Advisory.URL)
		}
	case <-time.After(time.Second):
		t.Fatal("reload did not publish")
	}
}

func TestReloadKeepsCommittedOnValidatorReject(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)
	m := NewManager(path)
	old, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	m.SetValidator(func(context.Context, *Config) error {
		return os.ErrInvalid
	})
	if err := os.WriteFile(path, []byte(sampleYAML+"\nadvisory:\n  url: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m.reload(context.Background())
	if m.Get() != old {
		t.Fatal("rejected reload replaced the committed config")
	}
}

func TestSummarizeChange(t *testing.T) {
	oldCfg := &Config{}
	newCfg := &Config{
		Logging:   LoggingConfig{Level: "debug"},
		Scheduler: SchedulerConfig{Tick: "5m"},
	}
	changed, _ := SummarizeChange(oldCfg, newCfg)
	want := map[string]bool{"logging": true, "scheduler": true}
	if len(changed) != 2 {
		t.Fatalf("changed = %v", changed)
	}
	for _, c := range changed {
		if !want[c] {
			t.Errorf("unexpected section %q", c)
		}
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", "150ms"); err != nil || d != 150*time.Millisecond {
		t.Fatalf("ParseDurationField = (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty = (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("expected error")
	}
	if d, err := ParseDurationOrDefault("x", "", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("default = (%v, %v)", d, err)
	}
}
