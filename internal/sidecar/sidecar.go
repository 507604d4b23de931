// Package sidecar reads lyrics stored next to or inside an audio file.
package sidecar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lrc-engine/internal/lrc"
	"lrc-engine/internal/lyrics"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "sidecar").Logger()
	return &l
}

// Extensions are tried in order.
var Extensions = []string{".lrc", ".LRC"}

// Candidates lists the sidecar paths checked for audioPath.
func Candidates(audioPath string) []string {
	if audioPath == "" {
		return nil
	}
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	out := make([]string, len(Extensions))
	for i, ext := range Extensions {
		out[i] = base + ext
	}
	return out
}

// File reads <dir>/<basename>.lrc (then .LRC) next to the audio file.
type File struct{}

func (File) Name() string {
	return "sidecar"
}

func (File) Fetch(ctx context.Context, req lyrics.Request) (string, error) {
	var readErr error
	for _, path := range Candidates(req.AudioPath) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			// an unreadable .lrc must not hide a readable .LRC
			logger().Warn().Err(err).Str("path", path).Msg("Failed to read sidecar lyrics")
			readErr = fmt.Errorf("failed to read %s: %w", path, err)
			continue
		}
		logger().Info().Str("path", path).Msg("Found sidecar lyrics")
		return string(data), nil
	}
	if readErr != nil {
		return "", readErr
	}
	return "", lyrics.ErrNoLyrics
}

// Embedded reads lyrics stored in the audio file's own tags (ID3 USLT,
// Vorbis LYRICS, MP4 ©lyr). Unsynced text is spread one line per second.
type Embedded struct{}

func (Embedded) Name() string {
	return "embedded"
}

func (Embedded) Fetch(ctx context.Context, req lyrics.Request) (string, error) {
	if req.AudioPath == "" {
		return "", lyrics.ErrNoLyrics
	}

	m, err := readTags(req.AudioPath)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(m.Lyrics())
	if text == "" {
		return "", lyrics.ErrNoLyrics
	}
	if !lrc.IsSynced(text) {
		text = lrc.SynthesizeFromPlain(text)
	}
	return text, nil
}

// FillFromTags completes missing title, artist and album from the audio
// file's tags. Fields already set are kept.
func FillFromTags(req lyrics.Request) lyrics.Request {
	if req.AudioPath == "" || (req.Title != "" && req.Artist != "" && req.Album != "") {
		return req
	}

	m, err := readTags(req.AudioPath)
	if err != nil {
		logger().Debug().Err(err).Str("path", req.AudioPath).Msg("No readable tags")
		return req
	}
	if req.Title == "" {
		req.Title = m.Title()
	}
	if req.Artist == "" {
		req.Artist = m.Artist()
		if req.Artist == "" {
			req.Artist = m.AlbumArtist()
		}
	}
	if req.Album == "" {
		req.Album = m.Album()
	}
	return req
}

func readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}
	return m, nil
}
