// Package player reads track metadata and position from MPRIS players
// through playerctl.
package player

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNotPlaying is returned when no player reports a track.
var ErrNotPlaying = errors.New("no music playing")

const fieldSep = "\x1f"

var metadataFormat = strings.Join([]string{
	"{{title}}", "{{artist}}", "{{album}}", "{{mpris:length}}", "{{xesam:url}}",
}, fieldSep)

// Track is what the player reports about the current song.
type Track struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	// Path is the local file path when the player exposes a file:// URL.
	Path string
}

// ID identifies a track for change detection.
func (t Track) ID() string {
	return t.Artist + " - " + t.Title + " | " + t.Path
}

// Player talks to one playerctl target; an empty name means any player.
type Player struct {
	name string
	run  func(args ...string) (string, error)
}

// New creates a playerctl-backed player.
func New(name string) *Player {
	return &Player{name: name, run: runPlayerctl}
}

func runPlayerctl(args ...string) (string, error) {
	out, err := exec.Command("playerctl", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *Player) args(args ...string) []string {
	if p.name == "" {
		return args
	}
	return append([]string{"--player", p.name}, args...)
}

// CurrentTrack returns the metadata of the playing track.
func (p *Player) CurrentTrack() (Track, error) {
	out, err := p.run(p.args("metadata", "--format", metadataFormat)...)
	if err != nil || out == "" {
		return Track{}, ErrNotPlaying
	}
	return parseMetadata(out)
}

// Position returns the playback position.
func (p *Player) Position() (time.Duration, error) {
	out, err := p.run(p.args("position")...)
	if err != nil {
		return 0, fmt.Errorf("playerctl position: %w", err)
	}
	seconds, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", out, err)
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func parseMetadata(out string) (Track, error) {
	fields := strings.Split(out, fieldSep)
	if len(fields) != 5 {
		return Track{}, fmt.Errorf("unexpected playerctl output %q", out)
	}

	t := Track{
		Title:  strings.TrimSpace(fields[0]),
		Artist: strings.TrimSpace(fields[1]),
		Album:  strings.TrimSpace(fields[2]),
		Path:   filePath(fields[4]),
	}
	// mpris:length is in microseconds
	if us, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64); err == nil && us > 0 {
		t.Duration = time.Duration(us) * time.Microsecond
	}
	if t.Title == "" && t.Path == "" {
		return Track{}, ErrNotPlaying
	}
	return t, nil
}

func filePath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return u.Path
}
