package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type mockAI struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (m *mockAI) Name() string { return "mock" }

func (m *mockAI) HandleText(ctx context.Context, msg string) (string, error) {
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, msg)
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return "", err
	}
	return m.replies[i], nil
}

func TestExtractSongInfo(t *testing.T) {
	m := &mockAI{replies: []string{`{"is_song": true, "title": "晴天", "artist": "周杰伦"}`}}
	info, err := ExtractSongInfo(context.Background(), m, "周杰倫 Jay Chou【晴天】Official MV")
	if err != nil {
		t.Fatalf("ExtractSongInfo failed: %v", err)
	}
	if info.Title != "晴天" || info.Artist != "周杰伦" {
		t.Errorf("unexpected info %+v", info)
	}
	if !strings.Contains(m.prompts[0], "Official MV") {
		t.Error("prompt should carry the media title")
	}
}

func TestExtractSongInfoRetries(t *testing.T) {
	retryDelay = time.Millisecond
	defer func() { retryDelay = time.Second }()

	m := &mockAI{
		errs:    []error{errors.New("quota"), nil},
		replies: []string{"", "```json\n{\"is_song\": true, \"title\": \"Song\", \"artist\": \"Band\"}\n```"},
	}
	info, err := ExtractSongInfo(context.Background(), m, "Band - Song")
	if err != nil {
		t.Fatalf("ExtractSongInfo failed: %v", err)
	}
	if m.calls != 2 || info.Title != "Song" {
		t.Errorf("calls=%d info=%+v", m.calls, info)
	}
}

func TestExtractSongInfoGivesUp(t *testing.T) {
	retryDelay = time.Millisecond
	defer func() { retryDelay = time.Second }()

	fail := errors.New("down")
	m := &mockAI{errs: []error{fail, fail, fail}}
	if _, err := ExtractSongInfo(context.Background(), m, "x"); !errors.Is(err, fail) {
		t.Errorf("expected wrapped error, got %v", err)
	}
	if m.calls != maxRetries {
		t.Errorf("expected %d calls, got %d", maxRetries, m.calls)
	}
}

func TestParseSongInfo(t *testing.T) {
	if _, err := parseSongInfo(`{"is_song": false}`); !errors.Is(err, ErrNotSong) {
		t.Errorf("expected ErrNotSong, got %v", err)
	}
	if _, err := parseSongInfo(`not json`); err == nil || errors.Is(err, ErrNotSong) {
		t.Errorf("expected decode error, got %v", err)
	}
}
