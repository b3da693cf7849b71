package internal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/nodeservice"
	pkgconfig "github.com/starford/anchorage/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestStoreConfig_DefaultsToSQLite(t *testing.T) {
	cfg := StoreConfig{SQLite: SQLiteConfig{Path: "x.db"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to sqlite: %v", err)
	}
	if cfg.Driver != StoreDriverSQLite {
		t.Errorf("driver = %q, want %q", cfg.Driver, StoreDriverSQLite)
	}
}

func TestStoreConfig_UnknownDriver(t *testing.T) {
	cfg := StoreConfig{Driver: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestStoreConfig_Badger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BadgerConfig
		wantErr bool
	}{
		{"path set", BadgerConfig{Path: "/tmp/b"}, false},
		{"in memory without path", BadgerConfig{InMemory: true}, false},
		{"no path on disk", BadgerConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := StoreConfig{Driver: StoreDriverBadger, Badger: tt.cfg}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventsConfig_NegativeThrottle(t *testing.T) {
	cfg := EventsConfig{GraphThrottle: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative throttle should fail validation")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_ANCHORAGE_TOKEN", "tok")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, `
app:
  log_level: debug
  http:
    port: 9090
store:
  driver: badger
  badger:
    in_memory: true
auth:
  mode: token
  token: ${TEST_ANCHORAGE_TOKEN}
events:
  graph_throttle: 1s
`)

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.Store.Driver != StoreDriverBadger || !cfg.Store.Badger.InMemory {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Auth.Token != "tok" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Events.GraphThrottle != time.Second {
		t.Errorf("graph throttle = %v", cfg.Events.GraphThrottle)
	}
}

func TestOpenStore(t *testing.T) {
	for _, driver := range []string{StoreDriverSQLite, StoreDriverBadger} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			cfg := StoreConfig{
				Driver: driver,
				SQLite: SQLiteConfig{Path: filepath.Join(dir, "a.db")},
				Badger: BadgerConfig{InMemory: true},
			}
			st, err := openStore(cfg, slog.Default())
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			defer st.Close()

			var events []string
			svc := newServices(st, slog.Default(), func(event, _ string, _ uint64) {
				events = append(events, event)
			}, nil)
			if _, err := svc.nodes.CreateNode(context.Background(), nodeservice.CreateInput{Type: models.NodeText, Title: "t"}); err != nil {
				t.Fatalf("CreateNode: %v", err)
			}
			if svc.session.Version() != 1 || len(events) != 1 {
				t.Errorf("version = %d, events = %v", svc.session.Version(), events)
			}
		})
	}
}

func TestWatchConfig_AppliesValidRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "app:\n  log_level: info\n  http:\n    port: 8080\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var levels []slog.Level
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	go WatchConfig(ctx, path, logger, func(cfg *Config) {
		mu.Lock()
		levels = append(levels, cfg.App.LogLevel)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	// Invalid port: rejected.
	writeConfig(t, path, "app:\n  log_level: warn\n  http:\n    port: 0\n")
	time.Sleep(500 * time.Millisecond)
	writeConfig(t, path, "app:\n  log_level: debug\n  http:\n    port: 8080\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(levels)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(levels) == 0 {
		t.Fatal("config rewrite not applied")
	}
	for _, l := range levels {
		if l != slog.LevelDebug {
			t.Errorf("applied level %v, want only debug", l)
		}
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
