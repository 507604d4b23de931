package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

const (
	AppName              = "lrc-engine"
	DefaultSocketPath    = "/tmp/lrc_engine.sock"
	DefaultCheckInterval = 2 * time.Second
	DefaultPollInterval  = 50 * time.Millisecond
	DefaultLead          = 100 * time.Millisecond
	DefaultLoadTimeout   = 30 * time.Second
	DefaultHTTPTimeout   = 5 * time.Second
	DefaultContextLines  = 3
)

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return AppName + "_cache"
	}
	return filepath.Join(homeDir, ".cache", AppName)
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		CheckInterval string `toml:"check_interval"`
		PollInterval  string `toml:"poll_interval"`
		Lead          string `toml:"lead"`
		ContextLines  int    `toml:"context_lines"`
		Player        string `toml:"player"`
		StatusFile    string `toml:"status_file"`
		Backend       string `toml:"backend"`
	} `toml:"app"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	Lyrics struct {
		Providers      []string `toml:"providers"`
		LoadTimeout    string   `toml:"load_timeout"`
		RequestTimeout string   `toml:"request_timeout"`
		Embedded       *bool    `toml:"embedded"`
	} `toml:"lyrics"`

	LRCLib struct {
		BaseURL string `toml:"base_url"`
	} `toml:"lrclib"`

	NetEase struct {
		BaseURL string `toml:"base_url"`
		Cookie  string `toml:"cookie"`
	} `toml:"netease"`

	Cache struct {
		Backend string `toml:"backend"`
		Dir     string `toml:"dir"`
	} `toml:"cache"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		TTL      string `toml:"ttl"`
	} `toml:"redis"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"`
	} `toml:"ai"`

	I3Block struct {
		Enabled bool `toml:"enabled"`
		Signal  int  `toml:"signal"`
	} `toml:"i3block"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath    string
	CheckInterval time.Duration
	PollInterval  time.Duration
	Lead          time.Duration
	ContextLines  int
	// Player is passed to playerctl --player; empty means any.
	Player string
	// Backend is "playerctl" or "dbus".
	Backend string
	// StatusFile receives the current line as plain text; empty disables it.
	StatusFile string
}

// LyricsConfig 歌词来源配置
type LyricsConfig struct {
	Providers      []string
	LoadTimeout    time.Duration
	RequestTimeout time.Duration
	Embedded       bool
	LRCLibBaseURL  string
	NetEaseBaseURL string
	NetEaseCookie  string
}

// CacheConfig 缓存配置，Backend 为 disk、redis 或 none
type CacheConfig struct {
	Backend string
	Dir     string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

// I3BlockConfig i3blocks 刷新信号配置
type I3BlockConfig struct {
	Enabled bool
	Signal  int
}

// Config 主配置结构
type Config struct {
	App      AppConfig
	LogLevel string
	Lyrics   LyricsConfig
	Cache    CacheConfig
	Redis    RedisConfig
	AI       AIConfig
	I3Block  I3BlockConfig
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			CheckInterval: DefaultCheckInterval,
			PollInterval:  DefaultPollInterval,
			Lead:          DefaultLead,
			ContextLines:  DefaultContextLines,
			Backend:       "playerctl",
		},
		LogLevel: "info",
		Lyrics: LyricsConfig{
			Providers:      []string{"lrclib", "netease"},
			LoadTimeout:    DefaultLoadTimeout,
			RequestTimeout: DefaultHTTPTimeout,
			Embedded:       true,
			NetEaseCookie:  os.Getenv("NETEASE_COOKIE"),
		},
		Cache: CacheConfig{
			Backend: "disk",
			Dir:     getDefaultCacheDir(),
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  30 * 24 * time.Hour,
		},
		AI: AIConfig{
			ModuleName: "gemini",
		},
		I3Block: I3BlockConfig{
			Signal: 21,
		},
	}
}

// Path 获取配置文件路径
func Path() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}
	return filepath.Join(homeDir, ".config", AppName, "config.toml")
}

// Load reads the default config path. A missing or broken file falls back
// to defaults.
func Load() *Config {
	cfg, err := LoadFile(Path())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load config file, using defaults")
		return Default()
	}
	return cfg
}

// LoadFile overlays the TOML file at path on the defaults. A missing file is
// not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("Config file not found, using defaults")
		return cfg, nil
	}

	var tc TomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, err
	}
	apply(cfg, &tc)

	log.Info().Str("path", path).Msg("Loaded config")
	return cfg, nil
}

func apply(cfg *Config, tc *TomlConfig) {
	setString(&cfg.App.SocketPath, tc.App.SocketPath)
	setString(&cfg.App.Player, tc.App.Player)
	setString(&cfg.App.StatusFile, tc.App.StatusFile)
	setString(&cfg.App.Backend, tc.App.Backend)
	setDuration(&cfg.App.CheckInterval, tc.App.CheckInterval, "app.check_interval")
	setDuration(&cfg.App.PollInterval, tc.App.PollInterval, "app.poll_interval")
	setDuration(&cfg.App.Lead, tc.App.Lead, "app.lead")
	if tc.App.ContextLines > 0 {
		cfg.App.ContextLines = tc.App.ContextLines
	}

	setString(&cfg.LogLevel, tc.Log.Level)

	if len(tc.Lyrics.Providers) > 0 {
		cfg.Lyrics.Providers = tc.Lyrics.Providers
	}
	setDuration(&cfg.Lyrics.LoadTimeout, tc.Lyrics.LoadTimeout, "lyrics.load_timeout")
	setDuration(&cfg.Lyrics.RequestTimeout, tc.Lyrics.RequestTimeout, "lyrics.request_timeout")
	if tc.Lyrics.Embedded != nil {
		cfg.Lyrics.Embedded = *tc.Lyrics.Embedded
	}
	setString(&cfg.Lyrics.LRCLibBaseURL, tc.LRCLib.BaseURL)
	setString(&cfg.Lyrics.NetEaseBaseURL, tc.NetEase.BaseURL)
	setString(&cfg.Lyrics.NetEaseCookie, tc.NetEase.Cookie)

	setString(&cfg.Cache.Backend, tc.Cache.Backend)
	setString(&cfg.Cache.Dir, tc.Cache.Dir)

	setString(&cfg.Redis.Addr, tc.Redis.Addr)
	setString(&cfg.Redis.Password, tc.Redis.Password)
	if tc.Redis.DB != 0 {
		cfg.Redis.DB = tc.Redis.DB
	}
	setDuration(&cfg.Redis.TTL, tc.Redis.TTL, "redis.ttl")

	setString(&cfg.AI.ModuleName, tc.AI.ModuleName)
	setString(&cfg.AI.APIKey, tc.AI.APIKey)
	setString(&cfg.AI.BaseURL, tc.AI.BaseURL)

	cfg.I3Block.Enabled = tc.I3Block.Enabled
	if tc.I3Block.Signal != 0 {
		cfg.I3Block.Signal = tc.I3Block.Signal
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, key string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return
	}
	*dst = d
}
