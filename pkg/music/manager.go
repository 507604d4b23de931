package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "music-manager").Logger()
	return &l
}

// Manager 远程歌词管理器，按顺序尝试各提供商
type Manager struct {
	providers []RemoteAPI
}

var _ RemoteAPI = (*Manager)(nil)

// NewManager 创建新的管理器
func NewManager(providers ...RemoteAPI) *Manager {
	if len(providers) == 0 {
		logger().Warn().Msg("No music providers configured")
		return &Manager{}
	}

	logger().Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", providers[0].Name()).
		Msg("Music API Manager initialized")

	return &Manager{providers: providers}
}

// Lookup tries each provider in order and returns the first result carrying
// lyrics. A provider that errors or returns nothing is skipped.
func (m *Manager) Lookup(ctx context.Context, q Query) (*Result, error) {
	if q.Title == "" || q.Artist == "" {
		return nil, fmt.Errorf("title and artist are required")
	}
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("no music providers available")
	}

	var lastErr error
	for i, provider := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger().Info().
			Str("title", q.Title).
			Str("artist", q.Artist).
			Dur("duration", q.Duration).
			Str("provider", provider.Name()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Msg("Trying to get lyrics")

		result, err := provider.Lookup(ctx, q)
		if err != nil {
			logger().Warn().Str("provider", provider.Name()).Err(err).Msg("Provider failed")
			lastErr = err
			continue
		}
		if !result.HasLyrics() {
			logger().Warn().Str("provider", provider.Name()).Msg("Provider returned empty lyrics")
			lastErr = fmt.Errorf("%s: %w", provider.Name(), ErrNotFound)
			continue
		}

		if result.Provider == "" {
			result.Provider = provider.Name()
		}
		logger().Info().Str("provider", result.Provider).Bool("synced", result.Synced != "").Msg("Successfully got lyrics")
		return result, nil
	}

	if lastErr == nil || errors.Is(lastErr, ErrNotFound) {
		return nil, fmt.Errorf("'%s - %s': %w", q.Title, q.Artist, ErrNotFound)
	}
	return nil, fmt.Errorf("all providers failed for '%s - %s', last error: %w", q.Title, q.Artist, lastErr)
}

// Name 获取管理器名称
func (m *Manager) Name() string {
	if len(m.providers) == 0 {
		return "Manager[No Providers]"
	}
	return fmt.Sprintf("Manager[%s]", strings.Join(m.ProviderNames(), ", "))
}

// ProviderNames 获取所有提供商名称
func (m *Manager) ProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = provider.Name()
	}
	return names
}
