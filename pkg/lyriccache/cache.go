// Package lyriccache stores remote lookup results so a track is only fetched
// once.
package lyriccache

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrMiss is returned by Get when nothing is stored under the key.
var ErrMiss = errors.New("lyriccache: miss")

// Entry is one cached lookup result.
type Entry struct {
	Provider  string    `json:"provider"`
	Synced    string    `json:"synced,omitempty"`
	Plain     string    `json:"plain,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is implemented by the disk and redis backends.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e *Entry) error
	Clear(ctx context.Context) (int, error)
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// Key builds a filesystem safe cache key from the track identity.
func Key(title, artist string) string {
	name := strings.ToLower(strings.TrimSpace(artist) + " - " + strings.TrimSpace(title))
	return unsafeChars.ReplaceAllString(name, "-")
}

// Nop is a cache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*Entry, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, string, *Entry) error   { return nil }
func (Nop) Clear(context.Context) (int, error)           { return 0, nil }
