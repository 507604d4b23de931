package music

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound means no provider had lyrics for the query.
var ErrNotFound = errors.New("lyrics not found")

// Query identifies a track for a remote lookup. Title and Artist are required.
type Query struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Result 远程歌词查询结果
type Result struct {
	Provider string
	Synced   string
	Plain    string
}

// HasLyrics reports whether either text is present.
func (r *Result) HasLyrics() bool {
	return r != nil && (r.Synced != "" || r.Plain != "")
}

// RemoteAPI 远程歌词提供商通用接口
type RemoteAPI interface {
	// Name 获取提供商名称
	Name() string

	// Lookup 根据歌曲信息获取歌词
	Lookup(ctx context.Context, q Query) (*Result, error)
}
