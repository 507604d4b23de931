package netease

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestClientRetry 测试重试机制
func TestClientRetry(t *testing.T) {
	var requestCount int32

	// 前两次请求失败，第三次成功
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result":{"songs":[{"id":123,"name":"Test Song","artists":[{"name":"Test Artist"}]}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)

	req, err := http.NewRequest("GET", server.URL, nil)
	if err != nil {
		t.Fatalf("创建请求失败: %v", err)
	}

	resp, err := client.doRequestWithRetry(req)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("预期请求次数为3，实际为%d", got)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("预期状态码200，实际为%d", resp.StatusCode)
	}
}

// TestTimeout 测试超时机制
func TestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	client.maxRetries = 1

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
	if err != nil {
		t.Fatalf("创建请求失败: %v", err)
	}

	if _, err := client.doRequestWithRetry(req); err == nil {
		t.Error("预期请求超时失败，但请求成功了")
	}
}

func TestSearchAndGetLyrics(t *testing.T) {
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		switch r.URL.Path {
		case "/api/search/get/web":
			w.Write([]byte(`{"result":{"songs":[
				{"id":1,"name":"Test Song","duration":100000,"artists":[{"name":"Other"}]},
				{"id":2,"name":"Test Song","duration":300000,"artists":[{"name":"Test Artist"}]},
				{"id":3,"name":"Test Song","duration":181000,"artists":[{"name":"Guest"},{"name":"Test Artist"}]}
			]}}`))
		case "/api/song/lyric":
			if r.URL.Query().Get("id") != "3" {
				t.Errorf("unexpected song id %s", r.URL.Query().Get("id"))
			}
			w.Write([]byte(`{"lrc":{"lyric":"[00:01.00]hello"}}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "MUSIC_U=abc", time.Second)
	id, err := client.SearchSong(context.Background(), "Test Song", "Test Artist", 180000)
	if err != nil {
		t.Fatalf("SearchSong failed: %v", err)
	}
	if id != "3" {
		t.Errorf("expected closest duration match 3, got %s", id)
	}

	lyrics, err := client.GetLyrics(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLyrics failed: %v", err)
	}
	if lyrics.Lrc.Lyric != "[00:01.00]hello" {
		t.Errorf("unexpected lyric %q", lyrics.Lrc.Lyric)
	}
	if cookie != "MUSIC_U=abc" {
		t.Errorf("cookie not forwarded, got %q", cookie)
	}
}

func TestGetLyricsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lrc":{"lyric":""}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).GetLyrics(context.Background(), "9")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
