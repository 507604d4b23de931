package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lrc-engine/internal/config"
	"lrc-engine/internal/i3block"
	"lrc-engine/internal/ipc"
	"lrc-engine/internal/lyrics"
	"lrc-engine/internal/player"
	"lrc-engine/internal/sidecar"
	"lrc-engine/pkg/ai"
)

const (
	msgNoMusic  = "No music playing..."
	msgNotFound = "No lyrics found"
	msgIntro    = "♪ 即将开始... ♪"
	aiTimeout   = 15 * time.Second
)

// Player reports the playing track and its position.
type Player interface {
	CurrentTrack() (player.Track, error)
	Position() (time.Duration, error)
}

// Broadcaster delivers frames to display clients.
type Broadcaster interface {
	Broadcast(ipc.Frame)
}

// Notifier is poked whenever the displayed line changes.
type Notifier interface {
	Notify() error
}

type App struct {
	cfg      *config.Config
	engine   *lyrics.Engine
	player   Player
	out      Broadcaster
	notifier Notifier
	ai       ai.AiInterface

	mutex       sync.Mutex
	current     player.Track
	playing     bool
	loadCancel  context.CancelFunc
	lastMessage string

	// Run 结束时需要释放的资源
	closers []io.Closer
	start   func() error
	stop    func()
}

// New builds the daemon from cfg.
func New(cfg *config.Config) (*App, error) {
	cache, cacheCloser, err := NewCache(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(cfg, cache)
	if err != nil {
		cacheCloser.Close()
		return nil, err
	}

	p, playerCloser, err := NewPlayer(cfg.App)
	if err != nil {
		cacheCloser.Close()
		return nil, err
	}

	aiClient, err := NewAI(context.Background(), cfg.AI)
	if err != nil {
		log.Warn().Err(err).Msg("AI title parsing disabled")
		aiClient = nil
	}

	server := ipc.NewServer(cfg.App.SocketPath, cfg.App.StatusFile)
	a := newApp(cfg, engine, p, server, aiClient)
	a.closers = append(a.closers, cacheCloser, playerCloser)
	a.start = server.Start
	a.stop = server.Close

	if cfg.I3Block.Enabled {
		ctrl := i3block.NewController(cfg.I3Block.Signal)
		a.notifier = ctrl
		start := a.start
		a.start = func() error {
			if err := start(); err != nil {
				return err
			}
			return ctrl.Start()
		}
		stop := a.stop
		a.stop = func() {
			ctrl.Stop()
			stop()
		}
	}
	return a, nil
}

func newApp(cfg *config.Config, engine *lyrics.Engine, p Player, out Broadcaster, aiClient ai.AiInterface) *App {
	return &App{
		cfg:    cfg,
		engine: engine,
		player: p,
		out:    out,
		ai:     aiClient,
		start:  func() error { return nil },
		stop:   func() {},
	}
}

// Run polls the player until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer func() {
		a.stop()
		for _, c := range a.closers {
			c.Close()
		}
	}()

	states := a.engine.Subscribe()
	go func() {
		for {
			select {
			case st := <-states:
				a.handleState(st)
			case <-ctx.Done():
				return
			}
		}
	}()

	checkTicker := time.NewTicker(a.cfg.App.CheckInterval)
	defer checkTicker.Stop()
	pollTicker := time.NewTicker(a.cfg.App.PollInterval)
	defer pollTicker.Stop()

	log.Info().Msg("Starting player check loop...")
	a.checkTrack(ctx)
	for {
		select {
		case <-checkTicker.C:
			a.checkTrack(ctx)
		case <-pollTicker.C:
			a.pollPosition()
		case <-ctx.Done():
			a.mutex.Lock()
			if a.loadCancel != nil {
				a.loadCancel()
			}
			a.mutex.Unlock()
			log.Info().Msg("Shutting down")
			return nil
		}
	}
}

func (a *App) checkTrack(ctx context.Context) {
	track, err := a.player.CurrentTrack()
	if err != nil {
		a.mutex.Lock()
		announce := a.playing || a.lastMessage == ""
		a.playing = false
		a.current = player.Track{}
		a.mutex.Unlock()

		if !errors.Is(err, player.ErrNotPlaying) {
			log.Warn().Err(err).Msg("Failed to read player metadata")
		}
		if announce {
			a.send(ipc.Frame{Status: lyrics.Idle.String(), Index: -1, Message: msgNoMusic})
		}
		return
	}

	a.mutex.Lock()
	if a.playing && track.ID() == a.current.ID() {
		a.mutex.Unlock()
		return
	}
	log.Info().Msg("-----------------------------------------------------")
	log.Info().Str("title", track.Title).Str("artist", track.Artist).Str("path", track.Path).Msg("New song detected")
	a.current = track
	a.playing = true
	if a.loadCancel != nil {
		a.loadCancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	a.loadCancel = cancel
	a.mutex.Unlock()

	// tag reads and the AI title parser run inside the background load
	a.engine.LoadLyricsFunc(loadCtx, func(ctx context.Context) lyrics.Request {
		return a.requestFor(ctx, track)
	})
}

// requestFor turns player metadata into a lyrics request, filling gaps from
// the file's tags and, failing that, from the AI title parser.
func (a *App) requestFor(ctx context.Context, track player.Track) lyrics.Request {
	req := sidecar.FillFromTags(lyrics.Request{
		AudioPath: track.Path,
		Title:     track.Title,
		Artist:    track.Artist,
		Album:     track.Album,
		Duration:  track.Duration,
	})

	if req.Artist != "" || req.Title == "" || a.ai == nil {
		return req
	}

	// 没有歌手信息时，标题通常是 "歌手 - 歌名 (MV)" 之类的媒体标题
	aiCtx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()
	info, err := ai.ExtractSongInfo(aiCtx, a.ai, req.Title)
	if err != nil {
		log.Warn().Err(err).Str("media_title", req.Title).Msg("Could not extract song info")
		return req
	}
	req.Title = info.Title
	req.Artist = info.Artist
	return req
}

func (a *App) pollPosition() {
	if a.engine.State().Status != lyrics.Loaded {
		return
	}
	pos, err := a.player.Position()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read player position")
		return
	}
	if a.engine.UpdatePosition(pos.Milliseconds()) {
		a.send(a.lineFrame())
	}
}

func (a *App) handleState(st lyrics.State) {
	a.mutex.Lock()
	track := a.current
	a.mutex.Unlock()

	f := ipc.Frame{Status: st.Status.String(), Title: track.Title, Artist: track.Artist, Index: -1}
	switch st.Status {
	case lyrics.Loading:
		f.Message = fmt.Sprintf("... Searching for lyrics for %s - %s ...", track.Artist, track.Title)
	case lyrics.Loaded:
		log.Info().Str("source", st.Source).Int("lines", len(st.Lines)).Msg("Lyrics ready")
		f = a.lineFrame()
	case lyrics.NotFound:
		f.Message = msgNotFound
	case lyrics.Error:
		f.Message = fmt.Sprintf("Error getting lyrics: %s", st.Err)
	default:
		f.Message = msgNoMusic
	}
	a.send(f)
}

func (a *App) lineFrame() ipc.Frame {
	a.mutex.Lock()
	track := a.current
	a.mutex.Unlock()

	f := ipc.Frame{
		Status: lyrics.Loaded.String(),
		Title:  track.Title,
		Artist: track.Artist,
		Index:  a.engine.CurrentIndex(),
	}
	for _, l := range a.engine.LinesAround(a.cfg.App.ContextLines) {
		f.Context = append(f.Context, l.Content)
	}

	line, ok := a.engine.CurrentLine()
	if !ok {
		f.Message = msgIntro
		return f
	}
	f.Line = line.Content
	f.TimeMs = line.TimeMs

	log.Debug().Int("index", f.Index).Int64("lyric_ms", line.TimeMs).Str("lyric", line.Content).Msg("Broadcasting lyric")
	return f
}

func (a *App) send(f ipc.Frame) {
	a.mutex.Lock()
	a.lastMessage = f.Line + f.Message
	a.mutex.Unlock()

	a.out.Broadcast(f)
	if a.notifier != nil {
		if err := a.notifier.Notify(); err != nil {
			log.Debug().Err(err).Msg("Failed to notify i3blocks")
		}
	}
}
