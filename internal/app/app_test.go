package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"lrc-engine/internal/config"
	"lrc-engine/internal/ipc"
	"lrc-engine/internal/lyrics"
	"lrc-engine/internal/player"
	"lrc-engine/pkg/lyriccache"
)

const testLRC = "[00:01.00]first\n[00:03.00]second\n[00:05.00]third\n"

type fakePlayer struct {
	track    player.Track
	err      error
	position time.Duration
}

func (p *fakePlayer) CurrentTrack() (player.Track, error) { return p.track, p.err }
func (p *fakePlayer) Position() (time.Duration, error)    { return p.position, nil }

type recorder struct {
	mu     sync.Mutex
	frames []ipc.Frame
}

func (r *recorder) Broadcast(f ipc.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) last(t *testing.T) ipc.Frame {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		t.Fatal("no frames broadcast")
	}
	return r.frames[len(r.frames)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() error {
	c.n++
	return nil
}

type mockAI struct{ reply string }

func (m *mockAI) Name() string { return "mock" }
func (m *mockAI) HandleText(context.Context, string) (string, error) {
	return m.reply, nil
}

func newTestApp(p Player, sources ...lyrics.Source) (*App, *recorder) {
	cfg := config.Default()
	cfg.App.ContextLines = 1
	cfg.App.Lead = 0
	out := &recorder{}
	return newApp(cfg, lyrics.New(sources...), p, out, nil), out
}

func TestTrackChangeLoadsLyricsAndFollowsPosition(t *testing.T) {
	p := &fakePlayer{track: player.Track{Title: "Song", Artist: "Band"}}
	a, out := newTestApp(p, lyrics.TextSource{Text: testLRC})
	n := &countingNotifier{}
	a.notifier = n

	a.checkTrack(context.Background())
	a.engine.Wait()
	st := a.engine.State()
	if st.Status != lyrics.Loaded {
		t.Fatalf("expected loaded, got %v", st.Status)
	}

	a.handleState(st)
	f := out.last(t)
	if f.Index != -1 || f.Message != msgIntro || f.Title != "Song" {
		t.Errorf("expected intro frame, got %+v", f)
	}

	p.position = 3500 * time.Millisecond
	a.pollPosition()
	f = out.last(t)
	if f.Line != "second" || f.Index != 1 || f.TimeMs != 3000 {
		t.Errorf("unexpected line frame %+v", f)
	}
	if strings.Join(f.Context, "|") != "first|second|third" {
		t.Errorf("unexpected context %v", f.Context)
	}

	// 同一行不重复广播
	before := out.count()
	a.pollPosition()
	if out.count() != before {
		t.Error("unchanged line should not be broadcast")
	}
	if n.n != out.count() {
		t.Errorf("notifier should fire with every frame: %d vs %d", n.n, out.count())
	}
}

func TestSameTrackNotReloaded(t *testing.T) {
	p := &fakePlayer{track: player.Track{Title: "Song", Artist: "Band"}}
	a, _ := newTestApp(p, lyrics.TextSource{Text: testLRC})

	a.checkTrack(context.Background())
	a.engine.Wait()
	id := a.engine.State().RequestID

	a.checkTrack(context.Background())
	a.engine.Wait()
	if a.engine.State().RequestID != id {
		t.Error("same track should not trigger a new load")
	}

	p.track.Title = "Other"
	a.checkTrack(context.Background())
	a.engine.Wait()
	if a.engine.State().RequestID == id {
		t.Error("new track should trigger a load")
	}
}

func TestNotPlayingAnnouncedOnce(t *testing.T) {
	p := &fakePlayer{err: player.ErrNotPlaying}
	a, out := newTestApp(p)

	a.checkTrack(context.Background())
	a.checkTrack(context.Background())
	if out.count() != 1 {
		t.Fatalf("expected one frame, got %d", out.count())
	}
	if f := out.last(t); f.Message != msgNoMusic || f.Status != "idle" {
		t.Errorf("unexpected frame %+v", f)
	}
}

func TestPollIgnoredUntilLoaded(t *testing.T) {
	p := &fakePlayer{position: 2 * time.Second}
	a, out := newTestApp(p)
	a.pollPosition()
	if out.count() != 0 {
		t.Error("position should be ignored without lyrics")
	}
}

func TestHandleStateMessages(t *testing.T) {
	a, out := newTestApp(&fakePlayer{})
	a.current = player.Track{Title: "Song", Artist: "Band"}

	a.handleState(lyrics.State{Status: lyrics.Loading})
	if f := out.last(t); !strings.Contains(f.Message, "Band - Song") {
		t.Errorf("unexpected loading frame %+v", f)
	}

	a.handleState(lyrics.State{Status: lyrics.NotFound})
	if f := out.last(t); f.Message != msgNotFound || f.Status != "not_found" {
		t.Errorf("unexpected not found frame %+v", f)
	}

	a.handleState(lyrics.State{Status: lyrics.Error, Err: "context deadline exceeded"})
	if f := out.last(t); !strings.Contains(f.Message, "deadline") || f.Status != "error" {
		t.Errorf("unexpected error frame %+v", f)
	}
}

func TestRequestForUsesAI(t *testing.T) {
	a, _ := newTestApp(&fakePlayer{})
	a.ai = &mockAI{reply: `{"is_song": true, "title": "Song", "artist": "Band"}`}

	req := a.requestFor(context.Background(), player.Track{Title: "Band - Song (Official Video)"})
	if req.Title != "Song" || req.Artist != "Band" {
		t.Errorf("unexpected request %+v", req)
	}

	// 已有歌手时不调用 AI
	req = a.requestFor(context.Background(), player.Track{Title: "Live", Artist: "Someone"})
	if req.Title != "Live" || req.Artist != "Someone" {
		t.Errorf("unexpected request %+v", req)
	}
}

type slowAI struct {
	release chan struct{}
	reply   string
}

func (m *slowAI) Name() string { return "slow" }
func (m *slowAI) HandleText(ctx context.Context, _ string) (string, error) {
	select {
	case <-m.release:
		return m.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestCheckTrackDoesNotWaitForAI(t *testing.T) {
	p := &fakePlayer{track: player.Track{Title: "Old", Artist: "Band"}}
	a, _ := newTestApp(p, lyrics.TextSource{Text: testLRC})
	a.checkTrack(context.Background())
	a.engine.Wait()
	p.position = 1500 * time.Millisecond
	a.pollPosition()

	slow := &slowAI{release: make(chan struct{}), reply: `{"is_song": true, "title": "Song", "artist": "Band"}`}
	a.ai = slow
	p.track = player.Track{Title: "Band - Song (Official Video)"}

	start := time.Now()
	a.checkTrack(context.Background())
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("checkTrack blocked for %v", elapsed)
	}

	// old lyrics are dropped as soon as the track changes
	if st := a.engine.State(); st.Status != lyrics.Loading {
		t.Errorf("expected loading, got %v", st.Status)
	}
	if a.engine.CurrentIndex() != -1 {
		t.Errorf("previous track's line still current: %d", a.engine.CurrentIndex())
	}

	// position polling keeps running while the request is prepared
	a.pollPosition()

	close(slow.release)
	a.engine.Wait()
	if st := a.engine.State(); st.Status != lyrics.Loaded {
		t.Errorf("expected loaded after AI reply, got %v", st.Status)
	}
}

func TestRequestForKeepsTitleWhenNotSong(t *testing.T) {
	a, _ := newTestApp(&fakePlayer{})
	a.ai = &mockAI{reply: `{"is_song": false}`}

	req := a.requestFor(context.Background(), player.Track{Title: "Podcast #12"})
	if req.Title != "Podcast #12" || req.Artist != "" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestNewCache(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()

	c, closer, err := NewCache(cfg)
	if err != nil {
		t.Fatalf("disk cache: %v", err)
	}
	defer closer.Close()
	if _, ok := c.(*lyriccache.Disk); !ok {
		t.Errorf("expected disk cache, got %T", c)
	}

	cfg.Cache.Backend = "none"
	if c, _, _ := NewCache(cfg); c != (lyriccache.Nop{}) {
		t.Errorf("expected nop cache, got %T", c)
	}

	cfg.Cache.Backend = "memcached"
	if _, _, err := NewCache(cfg); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestNewSourcesOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Lyrics.Embedded = false
	cfg.Lyrics.Providers = []string{"lrclib"}

	sources, err := NewSources(cfg, lyriccache.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	if strings.Join(names, ",") != "sidecar,remote" {
		t.Errorf("unexpected source order %v", names)
	}

	cfg.Lyrics.Providers = []string{"bogus"}
	sources, _ = NewSources(cfg, lyriccache.Nop{})
	if len(sources) != 1 {
		t.Errorf("remote source should be skipped without providers, got %d sources", len(sources))
	}
}
