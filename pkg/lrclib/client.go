package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL   = "https://lrclib.net/api"
	DefaultUserAgent = "lrc-engine/1.0"
	maxDurationDiff  = 3 // seconds
)

// ErrNotFound is returned when lrclib has no record for the track.
var ErrNotFound = errors.New("lrclib: lyrics not found")

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "lrclib").Logger()
	return &l
}

// Client LRCLib客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	requestTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

// Response is one lrclib record.
type Response struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// HasLyrics reports whether the record carries any lyrics text.
func (r *Response) HasLyrics() bool {
	return r != nil && (r.SyncedLyrics != "" || r.PlainLyrics != "")
}

// NewClient creates a client against baseURL; an empty baseURL uses lrclib.net.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		userAgent:      DefaultUserAgent,
		requestTimeout: timeout,
		maxRetries:     3,
		retryDelay:     500 * time.Millisecond,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "LRCLib"
}

// Lookup asks /get for an exact signature match first and falls back to
// /search with local best-match selection.
func (c *Client) Lookup(ctx context.Context, title, artist, album string, durationSec int) (*Response, error) {
	resp, err := c.Get(ctx, title, artist, album, durationSec)
	if err == nil && resp.HasLyrics() {
		return resp, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger().Warn().Err(err).Msg("Exact lookup failed, falling back to search")
	}

	results, err := c.Search(ctx, title, artist)
	if err != nil {
		return nil, err
	}
	best := findBestMatch(results, title, artist, durationSec)
	if !best.HasLyrics() {
		return nil, fmt.Errorf("%w for '%s - %s'", ErrNotFound, title, artist)
	}
	return best, nil
}

// Get queries /get with the full track signature.
func (c *Client) Get(ctx context.Context, title, artist, album string, durationSec int) (*Response, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationSec > 0 {
		params.Set("duration", strconv.Itoa(durationSec))
	}

	var out Response
	if err := c.getJSON(ctx, "/get", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search queries /search by title and artist.
func (c *Client) Search(ctx context.Context, title, artist string) ([]Response, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)

	var out []Response
	if err := c.getJSON(ctx, "/search", params, &out); err != nil {
		return nil, err
	}
	logger().Info().Int("results", len(out)).Str("title", title).Str("artist", artist).Msg("Search finished")
	if len(out) == 0 {
		return nil, fmt.Errorf("%w for '%s - %s'", ErrNotFound, title, artist)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout*time.Duration(c.maxRetries+1))
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry retries transport errors and 5xx responses with a
// linear backoff. 404 is returned to the caller without retrying.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger().Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("Retrying request")
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger().Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
			lastErr = err
			if req.Context().Err() != nil {
				break
			}
			continue
		}

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		lastErr = fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		logger().Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Request returned error status")

		if resp.StatusCode < 500 {
			break
		}
	}
	return nil, fmt.Errorf("request failed: %w", lastErr)
}

// findBestMatch 从搜索结果中找到最佳匹配的歌词
func findBestMatch(responses []Response, targetTitle, targetArtist string, targetDuration int) *Response {
	if len(responses) == 0 {
		return nil
	}

	var exactMatches, titleMatches []*Response
	for i := range responses {
		r := &responses[i]
		if !r.HasLyrics() {
			continue
		}
		switch {
		case containsIgnoreCase(r.TrackName, targetTitle) && containsIgnoreCase(r.ArtistName, targetArtist):
			exactMatches = append(exactMatches, r)
		case containsIgnoreCase(r.TrackName, targetTitle):
			titleMatches = append(titleMatches, r)
		}
	}

	pool := exactMatches
	if len(pool) == 0 {
		pool = titleMatches
	}
	if len(pool) == 0 {
		for i := range responses {
			pool = append(pool, &responses[i])
		}
	}

	if targetDuration <= 0 {
		return preferSynced(pool)
	}

	best := pool[0]
	minDiff := abs(int(best.Duration) - targetDuration)
	for _, r := range pool {
		diff := abs(int(r.Duration) - targetDuration)
		if diff <= maxDurationDiff && r.SyncedLyrics != "" {
			logger().Debug().Int("diff", diff).Str("track", r.TrackName).Msg("Duration match within threshold")
			return r
		}
		if diff < minDiff {
			minDiff = diff
			best = r
		}
	}
	logger().Debug().Int("diff", minDiff).Str("track", best.TrackName).Msg("Using closest duration match")
	return best
}

func preferSynced(pool []*Response) *Response {
	for _, r := range pool {
		if r.SyncedLyrics != "" {
			return r
		}
	}
	return pool[0]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
