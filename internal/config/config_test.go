package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.App.SocketPath != DefaultSocketPath || cfg.Cache.Backend != "disk" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if !cfg.Lyrics.Embedded {
		t.Error("embedded lyrics should be on by default")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
socket_path = "/run/user/1000/lrc.sock"
check_interval = "10s"
lead = "250ms"
poll_interval = "not a duration"
player = "spotify"
backend = "dbus"

[log]
level = "debug"

[lyrics]
providers = ["netease"]
embedded = false
request_timeout = "3s"

[netease]
cookie = "MUSIC_U=x"

[cache]
backend = "redis"

[redis]
addr = "redis:6379"
db = 2
ttl = "1h"

[i3block]
enabled = true
signal = 12
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.App.SocketPath != "/run/user/1000/lrc.sock" || cfg.App.Player != "spotify" || cfg.App.Backend != "dbus" {
		t.Errorf("app overrides not applied: %+v", cfg.App)
	}
	if cfg.App.CheckInterval != 10*time.Second || cfg.App.Lead != 250*time.Millisecond {
		t.Errorf("durations not applied: %+v", cfg.App)
	}
	if cfg.App.PollInterval != DefaultPollInterval {
		t.Errorf("invalid duration should keep default, got %v", cfg.App.PollInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level: got %q", cfg.LogLevel)
	}
	if !reflect.DeepEqual(cfg.Lyrics.Providers, []string{"netease"}) || cfg.Lyrics.Embedded {
		t.Errorf("lyrics overrides not applied: %+v", cfg.Lyrics)
	}
	if cfg.Lyrics.RequestTimeout != 3*time.Second || cfg.Lyrics.NetEaseCookie != "MUSIC_U=x" {
		t.Errorf("provider overrides not applied: %+v", cfg.Lyrics)
	}
	if cfg.Cache.Backend != "redis" || cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 || cfg.Redis.TTL != time.Hour {
		t.Errorf("cache overrides not applied: %+v %+v", cfg.Cache, cfg.Redis)
	}
	if !cfg.I3Block.Enabled || cfg.I3Block.Signal != 12 {
		t.Errorf("i3block overrides not applied: %+v", cfg.I3Block)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[app\nsocket_path = "), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected a decode error")
	}
}

func TestPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := Path(); got != "/tmp/xdg/lrc-engine/config.toml" {
		t.Errorf("unexpected path %s", got)
	}
}
