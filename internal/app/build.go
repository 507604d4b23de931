package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lrc-engine/internal/config"
	"lrc-engine/internal/lyrics"
	"lrc-engine/internal/player"
	"lrc-engine/internal/sidecar"
	"lrc-engine/pkg/ai"
	"lrc-engine/pkg/ai/gemini"
	"lrc-engine/pkg/ai/openai"
	"lrc-engine/pkg/lyriccache"
	"lrc-engine/pkg/music"
	"lrc-engine/pkg/redis"
)

// SetupLogging 设置 zerolog 的全局配置
func SetupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewCache builds the cache backend named in cfg. The closer releases any
// connection the backend holds.
func NewCache(cfg *config.Config) (lyriccache.Cache, io.Closer, error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "", "disk":
		d, err := lyriccache.NewDisk(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("cache_dir", d.Dir()).Msg("Lyrics cache directory")
		return d, nopCloser{}, nil
	case "redis":
		client, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Using redis lyrics cache")
		return lyriccache.NewRedis(client, cfg.Redis.TTL), client, nil
	case "none", "off":
		return lyriccache.Nop{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// NewSources returns the lyric sources in resolution order: sidecar file,
// embedded tag, then remote providers.
func NewSources(cfg *config.Config, cache lyriccache.Cache) ([]lyrics.Source, error) {
	sources := []lyrics.Source{sidecar.File{}}
	if cfg.Lyrics.Embedded {
		sources = append(sources, sidecar.Embedded{})
	}

	manager, err := music.CreateManager(cfg.Lyrics.Providers, music.Options{
		LRCLibBaseURL:  cfg.Lyrics.LRCLibBaseURL,
		NetEaseBaseURL: cfg.Lyrics.NetEaseBaseURL,
		NetEaseCookie:  cfg.Lyrics.NetEaseCookie,
		Timeout:        cfg.Lyrics.RequestTimeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Remote lyrics disabled")
		return sources, nil
	}
	log.Info().Strs("providers", manager.ProviderNames()).Msg("Remote lyrics providers")
	return append(sources, lyrics.NewRemoteSource(manager, cache)), nil
}

// NewEngine wires the sources into an engine configured from cfg.
func NewEngine(cfg *config.Config, cache lyriccache.Cache) (*lyrics.Engine, error) {
	sources, err := NewSources(cfg, cache)
	if err != nil {
		return nil, err
	}
	e := lyrics.New(sources...)
	e.SetTimeout(cfg.Lyrics.LoadTimeout)
	e.SetLead(cfg.App.Lead)
	return e, nil
}

// NewPlayer returns the player backend named in cfg.
func NewPlayer(cfg config.AppConfig) (Player, io.Closer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "playerctl":
		return player.New(cfg.Player), nopCloser{}, nil
	case "dbus", "mpris":
		m, err := player.NewMPRIS(cfg.Player)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown player backend: %s", cfg.Backend)
	}
}

// NewAI returns the configured model client, or nil when no API key is set.
func NewAI(ctx context.Context, cfg config.AIConfig) (ai.AiInterface, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	if cfg.ModuleName == "gemini" {
		g, err := gemini.NewGemini(ctx, cfg.APIKey, "")
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return openai.NewOpenAi(cfg.APIKey, cfg.ModuleName, cfg.BaseURL), nil
}
