// Package ai asks a language model to turn free-form media titles into
// song metadata.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "ai").Logger()
	return &l
}

// ErrNotSong is returned when the model says the title is not a song.
var ErrNotSong = errors.New("media title is not a song")

const maxRetries = 3

var retryDelay = time.Second

type AiInterface interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
}

// SongInfo 歌曲信息
type SongInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式，并将繁体中文转换为简体。 媒体标题是：%s`, title)
}

// ExtractSongInfo asks client for the title and artist hidden in a media
// title such as "Artist - Song (Official Video)".
func ExtractSongInfo(ctx context.Context, client AiInterface, mediaTitle string) (SongInfo, error) {
	var raw string
	var err error
	for i := 0; i < maxRetries; i++ {
		raw, err = client.HandleText(ctx, formatQuerySong(mediaTitle))
		if err == nil {
			break
		}
		logger().Warn().Err(err).Str("model", client.Name()).Int("attempt", i+1).Msg("AI query failed")
		select {
		case <-ctx.Done():
			return SongInfo{}, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		return SongInfo{}, fmt.Errorf("failed to query %s after %d attempts: %w", client.Name(), maxRetries, err)
	}

	info, err := parseSongInfo(raw)
	if err != nil {
		return SongInfo{}, err
	}
	logger().Info().Str("title", info.Title).Str("artist", info.Artist).Msg("AI extracted song info")
	return info, nil
}

func parseSongInfo(raw string) (SongInfo, error) {
	// 模型偶尔仍会带上 markdown 代码块
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var info SongInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return SongInfo{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if !info.IsSong || info.Title == "" {
		return SongInfo{}, ErrNotSong
	}
	info.Title = strings.TrimSpace(info.Title)
	info.Artist = strings.TrimSpace(info.Artist)
	return info, nil
}
