package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lrc-engine/internal/lrc"
	"lrc-engine/pkg/lrclib"
	"lrc-engine/pkg/netease"
)

// Provider 音乐提供商类型
type Provider string

const (
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = "netease"
)

// Options configures the built-in providers.
type Options struct {
	LRCLibBaseURL  string
	NetEaseBaseURL string
	NetEaseCookie  string
	Timeout        time.Duration
}

// CreateProvider 创建音乐提供商客户端
func CreateProvider(provider Provider, opts Options) (RemoteAPI, error) {
	switch provider {
	case ProviderLRCLib:
		logger().Info().Msg("Creating LRCLib client")
		return &lrclibAPI{client: lrclib.NewClient(opts.LRCLibBaseURL, opts.Timeout)}, nil
	case ProviderNetEase:
		logger().Info().Msg("Creating NetEase music client")
		return &neteaseAPI{client: netease.NewClient(opts.NetEaseBaseURL, opts.NetEaseCookie, opts.Timeout)}, nil
	default:
		return nil, fmt.Errorf("unknown music provider: %s", provider)
	}
}

// CreateManager 按名称顺序创建管理器，无法识别的名称会被跳过
func CreateManager(names []string, opts Options) (*Manager, error) {
	var providers []RemoteAPI
	for _, name := range names {
		p, err := GetProviderByName(name)
		if err != nil {
			logger().Warn().Err(err).Msg("Skipping provider")
			continue
		}
		api, err := CreateProvider(p, opts)
		if err != nil {
			logger().Warn().Err(err).Str("provider", name).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, api)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no music providers available")
	}
	return NewManager(providers...), nil
}

// GetProviderByName 根据名称获取提供商
func GetProviderByName(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lrclib":
		return ProviderLRCLib, nil
	case "netease", "网易云", "163":
		return ProviderNetEase, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}

type lrclibAPI struct {
	client *lrclib.Client
}

func (a *lrclibAPI) Name() string { return a.client.Name() }

func (a *lrclibAPI) Lookup(ctx context.Context, q Query) (*Result, error) {
	resp, err := a.client.Lookup(ctx, q.Title, q.Artist, q.Album, int(q.Duration.Round(time.Second)/time.Second))
	if err != nil {
		if errors.Is(err, lrclib.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}
	return &Result{Provider: a.Name(), Synced: resp.SyncedLyrics, Plain: resp.PlainLyrics}, nil
}

type neteaseAPI struct {
	client *netease.Client
}

func (a *neteaseAPI) Name() string { return a.client.Name() }

func (a *neteaseAPI) Lookup(ctx context.Context, q Query) (*Result, error) {
	songID, err := a.client.SearchSong(ctx, q.Title, q.Artist, int(q.Duration.Milliseconds()))
	if err != nil {
		return nil, wrapNotFound(err, netease.ErrNotFound)
	}
	resp, err := a.client.GetLyrics(ctx, songID)
	if err != nil {
		return nil, wrapNotFound(err, netease.ErrNotFound)
	}

	text := resp.Lrc.Lyric
	if lrc.IsSynced(text) {
		return &Result{Provider: a.Name(), Synced: text}, nil
	}
	return &Result{Provider: a.Name(), Plain: text}, nil
}

func wrapNotFound(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
