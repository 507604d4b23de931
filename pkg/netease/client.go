package netease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://music.163.com"

// ErrNotFound is returned when no song matches or the song has no lyrics.
var ErrNotFound = errors.New("netease: lyrics not found")

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "netease").Logger()
	return &l
}

// SearchResponse 网易云搜索API响应
type SearchResponse struct {
	Result struct {
		Songs []struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			Duration int    `json:"duration"` // ms
			Artists  []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
		} `json:"songs"`
	} `json:"result"`
}

// LyricResponse 网易云歌词API响应
type LyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Client 网易云音乐客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	cookie         string
	maxRetries     int
	requestTimeout time.Duration
}

// NewClient 创建新的网易云音乐客户端
func NewClient(baseURL, cookie string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		cookie:         cookie,
		maxRetries:     2,
		requestTimeout: timeout,
	}
}

// Name 获取提供商名称
func (c *Client) Name() string {
	return "NetEase Cloud Music"
}

// SearchSong 搜索歌曲，返回最佳匹配的歌曲ID
func (c *Client) SearchSong(ctx context.Context, title, artist string, durationMs int) (string, error) {
	params := url.Values{}
	params.Set("s", strings.TrimSpace(title+" "+artist))
	params.Set("type", "1")
	params.Set("limit", "30")

	var searchResp SearchResponse
	if err := c.getJSON(ctx, "/api/search/get/web", params, &searchResp); err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(searchResp.Result.Songs) == 0 {
		return "", fmt.Errorf("%w: no songs for '%s'", ErrNotFound, title)
	}

	songID := findBestMatch(searchResp, title, artist, durationMs)
	if songID == 0 {
		return "", fmt.Errorf("%w: no matching song for '%s' by '%s'", ErrNotFound, title, artist)
	}
	return strconv.Itoa(songID), nil
}

// GetLyrics 获取歌词
func (c *Client) GetLyrics(ctx context.Context, songID string) (*LyricResponse, error) {
	params := url.Values{}
	params.Set("os", "pc")
	params.Set("id", songID)
	params.Set("lv", "-1")
	params.Set("kv", "-1")
	params.Set("tv", "-1")

	var lyricResp LyricResponse
	if err := c.getJSON(ctx, "/api/song/lyric", params, &lyricResp); err != nil {
		return nil, fmt.Errorf("lyric request failed: %w", err)
	}
	if strings.TrimSpace(lyricResp.Lrc.Lyric) == "" {
		return nil, fmt.Errorf("%w: song %s has no lyrics", ErrNotFound, songID)
	}
	return &lyricResp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	logger().Debug().Str("url", reqURL).Msg("Requesting")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry 带重试的请求，非200状态码和网络错误都会重试
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger().Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
			if req.Context().Err() != nil {
				break
			}
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
		logger().Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Request returned error status")
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// findBestMatch 找到最佳匹配的歌曲，歌手匹配优先，其次时长最接近
func findBestMatch(resp SearchResponse, targetTitle, targetArtist string, durationMs int) int {
	bestID, bestDiff := 0, -1
	for _, song := range resp.Result.Songs {
		if !containsIgnoreCase(song.Name, targetTitle) {
			continue
		}
		// artists 可能有多个，只要一个满足就算
		matched := false
		for _, artist := range song.Artists {
			if containsIgnoreCase(artist.Name, targetArtist) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if durationMs <= 0 {
			return song.ID
		}
		diff := song.Duration - durationMs
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestID, bestDiff = song.ID, diff
		}
	}
	if bestID != 0 {
		return bestID
	}

	// 如果没有找到完全匹配的，返回第一个匹配标题的
	for _, song := range resp.Result.Songs {
		if containsIgnoreCase(song.Name, targetTitle) {
			logger().Info().Str("song", song.Name).Int("id", song.ID).Msg("Using first title match")
			return song.ID
		}
	}
	return 0
}

// normalizeString 标准化字符串（转小写，去空格）
func normalizeString(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// containsIgnoreCase 忽略大小写和空格的包含关系检查
func containsIgnoreCase(s1, s2 string) bool {
	norm1, norm2 := normalizeString(s1), normalizeString(s2)
	return strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1)
}
