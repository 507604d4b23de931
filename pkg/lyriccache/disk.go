package lyriccache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lrc-engine/pkg/fileutil"
)

const (
	syncedExt = ".lrc"
	plainExt  = ".txt"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "lyriccache").Logger()
	return &l
}

// Disk keeps synced lyrics as <key>.lrc and plain lyrics as <key>.txt under
// dir, with an in-memory index in front.
type Disk struct {
	dir   string
	index sync.Map
}

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the cache directory.
func (d *Disk) Dir() string {
	return d.dir
}

func (d *Disk) Get(ctx context.Context, key string) (*Entry, error) {
	if v, ok := d.index.Load(key); ok {
		return v.(*Entry), nil
	}

	for _, ext := range []string{syncedExt, plainExt} {
		path := filepath.Join(d.dir, key+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		info, _ := os.Stat(path)
		e := &Entry{Provider: "cache"}
		if info != nil {
			e.CreatedAt = info.ModTime()
		}
		if ext == syncedExt {
			e.Synced = string(data)
		} else {
			e.Plain = string(data)
		}
		d.index.Store(key, e)
		logger().Debug().Str("path", path).Msg("Cache HIT")
		return e, nil
	}
	return nil, ErrMiss
}

func (d *Disk) Set(ctx context.Context, key string, e *Entry) error {
	ext, text := syncedExt, e.Synced
	if text == "" {
		ext, text = plainExt, e.Plain
	}
	if text == "" {
		return fmt.Errorf("refusing to cache empty lyrics for %s", key)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	path := filepath.Join(d.dir, key+ext)
	if err := fileutil.WriteFileOverwrite(path, []byte(text), 0644); err != nil {
		return err
	}
	d.index.Store(key, e)
	logger().Info().Str("path", path).Msg("Saved lyrics to cache")
	return nil
}

func (d *Disk) Clear(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, syncedExt) || strings.HasSuffix(name, plainExt)) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, name)); err != nil {
			logger().Warn().Err(err).Str("file", name).Msg("Failed to remove cache file")
			continue
		}
		removed++
	}
	d.index.Clear()
	return removed, nil
}
