package lyrics

import (
	"context"
	"errors"
	"time"

	"lrc-engine/internal/lrc"
	"lrc-engine/pkg/lyriccache"
	"lrc-engine/pkg/music"
)

// ErrNoLyrics is returned by a source that has nothing for the request.
var ErrNoLyrics = errors.New("no lyrics from source")

// Request describes the track to load lyrics for. Every field is optional;
// sources skip themselves when what they need is missing.
type Request struct {
	AudioPath string
	Title     string
	Artist    string
	Album     string
	Duration  time.Duration
}

// Source is one place lyrics can come from. Fetch returns LRC text.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) (string, error)
}

// RemoteSource looks lyrics up through a remote API, consulting cache first.
// Plain lyrics are converted to one-line-per-second LRC.
type RemoteSource struct {
	api   music.RemoteAPI
	cache lyriccache.Cache
}

// NewRemoteSource wraps api. A nil cache disables caching.
func NewRemoteSource(api music.RemoteAPI, cache lyriccache.Cache) *RemoteSource {
	if cache == nil {
		cache = lyriccache.Nop{}
	}
	return &RemoteSource{api: api, cache: cache}
}

func (s *RemoteSource) Name() string {
	return "remote"
}

func (s *RemoteSource) Fetch(ctx context.Context, req Request) (string, error) {
	if req.Title == "" || req.Artist == "" {
		return "", ErrNoLyrics
	}

	key := lyriccache.Key(req.Title, req.Artist)
	if e, err := s.cache.Get(ctx, key); err == nil {
		logger().Info().Str("key", key).Msg("Cache HIT")
		return toLRC(e.Synced, e.Plain), nil
	} else if !errors.Is(err, lyriccache.ErrMiss) {
		logger().Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	result, err := s.api.Lookup(ctx, music.Query{
		Title:    req.Title,
		Artist:   req.Artist,
		Album:    req.Album,
		Duration: req.Duration,
	})
	if err != nil {
		return "", err
	}

	entry := &lyriccache.Entry{Provider: result.Provider, Synced: result.Synced, Plain: result.Plain}
	if err := s.cache.Set(ctx, key, entry); err != nil {
		logger().Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return toLRC(result.Synced, result.Plain), nil
}

func toLRC(synced, plain string) string {
	if synced != "" && lrc.IsSynced(synced) {
		return synced
	}
	if plain == "" {
		plain = synced
	}
	return lrc.SynthesizeFromPlain(plain)
}

// TextSource serves fixed LRC text. It is handy for piping lyrics in from
// elsewhere and for tests.
type TextSource struct {
	Label string
	Text  string
}

func (s TextSource) Name() string {
	if s.Label == "" {
		return "text"
	}
	return s.Label
}

func (s TextSource) Fetch(context.Context, Request) (string, error) {
	if s.Text == "" {
		return "", ErrNoLyrics
	}
	return s.Text, nil
}
