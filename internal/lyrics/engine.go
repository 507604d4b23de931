// Package lyrics resolves lyrics for a track from an ordered list of sources
// and tracks the current line against the playback position.
package lyrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lrc-engine/internal/lrc"
	"lrc-engine/internal/tracker"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "lyrics-engine").Logger()
	return &l
}

const subscriberBuffer = 4

// Engine owns the lyrics state for one player.
//
// Each LoadLyrics call takes a new generation; a load that finishes after a
// newer one has started is discarded instead of overwriting it.
type Engine struct {
	sources []Source
	timeout time.Duration

	state   atomic.Pointer[State]
	gen     atomic.Uint64
	tracker *tracker.Tracker

	commitMu sync.Mutex
	subsMu   sync.Mutex
	subs     []chan State
	wg       sync.WaitGroup
}

// New creates an idle engine trying sources in the given order.
func New(sources ...Source) *Engine {
	e := &Engine{
		sources: sources,
		tracker: tracker.New(),
	}
	e.state.Store(&State{Status: Idle})
	return e
}

// SetTimeout bounds every load; zero means no bound beyond the caller's
// context.
func (e *Engine) SetTimeout(d time.Duration) {
	e.timeout = d
}

// SetLead makes the tracker report lines slightly before they start.
func (e *Engine) SetLead(d time.Duration) {
	e.tracker.SetLead(d.Milliseconds())
}

// State returns the latest snapshot.
func (e *Engine) State() State {
	return *e.state.Load()
}

// Subscribe returns a channel receiving every state change. Slow readers
// lose the oldest pending states, never the newest.
func (e *Engine) Subscribe() <-chan State {
	ch := make(chan State, subscriberBuffer)
	e.subsMu.Lock()
	e.subs = append(e.subs, ch)
	e.subsMu.Unlock()
	return ch
}

// LoadLyrics starts resolving lyrics for req in the background. The state
// switches to Loading before it returns. It returns the request id used in
// logs and in the final State.
func (e *Engine) LoadLyrics(ctx context.Context, req Request) string {
	return e.LoadLyricsFunc(ctx, fixed(req))
}

// LoadLyricsFunc is LoadLyrics for requests that are slow to build, such as
// ones that read tags or ask a model. prepare runs inside the background load,
// after the state has already switched to Loading, and is bounded by the same
// timeout as the sources.
func (e *Engine) LoadLyricsFunc(ctx context.Context, prepare func(context.Context) Request) string {
	gen, id := e.begin()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.commit(gen, e.resolve(ctx, id, prepare))
	}()
	return id
}

// Load resolves lyrics synchronously and returns the engine state afterwards.
// If a newer load started in the meantime this result is dropped and the
// newer state is returned instead.
func (e *Engine) Load(ctx context.Context, req Request) State {
	gen, id := e.begin()
	e.commit(gen, e.resolve(ctx, id, fixed(req)))
	return e.State()
}

func fixed(req Request) func(context.Context) Request {
	return func(context.Context) Request { return req }
}

// Wait blocks until every background load has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// UpdatePosition moves the tracker and reports whether the current line
// changed. It never touches the load state.
func (e *Engine) UpdatePosition(positionMs int64) bool {
	return e.tracker.Update(positionMs)
}

// CurrentIndex returns the current line index or -1.
func (e *Engine) CurrentIndex() int {
	return e.tracker.Index()
}

// CurrentLine returns the current line if any.
func (e *Engine) CurrentLine() (lrc.Line, bool) {
	return e.tracker.Current()
}

// LinesAround returns count lines either side of the current one.
func (e *Engine) LinesAround(count int) []lrc.Line {
	return e.tracker.LinesAround(count)
}

func (e *Engine) begin() (uint64, string) {
	id := uuid.NewString()

	e.commitMu.Lock()
	gen := e.gen.Add(1)
	e.tracker.Clear()
	e.publish(&State{Status: Loading, RequestID: id})
	e.commitMu.Unlock()
	return gen, id
}

func (e *Engine) commit(gen uint64, st State) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	if gen != e.gen.Load() {
		logger().Info().Str("request_id", st.RequestID).Str("status", st.Status.String()).Msg("Discarding stale lyrics load")
		return
	}
	e.tracker.Set(st.Lines)
	e.publish(&st)
}

func (e *Engine) publish(st *State) {
	e.state.Store(st)

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- *st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- *st:
		default:
		}
	}
}

// resolve walks the sources and never panics.
func (e *Engine) resolve(ctx context.Context, id string, prepare func(context.Context) Request) (st State) {
	defer func() {
		if r := recover(); r != nil {
			logger().Error().Str("request_id", id).Interface("panic", r).Msg("Lyrics load crashed")
			st = State{Status: Error, Err: fmt.Sprint(r), RequestID: id}
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req := prepare(ctx)
	logger().Info().
		Str("request_id", id).
		Str("title", req.Title).
		Str("artist", req.Artist).
		Str("audio_path", req.AudioPath).
		Msg("Loading lyrics")

	for _, src := range e.sources {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		text, err := src.Fetch(ctx, req)
		if err != nil {
			ev := logger().Warn()
			if errors.Is(err, ErrNoLyrics) {
				ev = logger().Debug()
			}
			ev.Str("request_id", id).Str("source", src.Name()).Err(err).Msg("Source failed")
			continue
		}

		lines, meta := lrc.Parse(text)
		if len(lines) == 0 {
			logger().Info().Str("request_id", id).Str("source", src.Name()).Msg("Source returned no usable lines")
			continue
		}

		logger().Info().
			Str("request_id", id).
			Str("source", src.Name()).
			Int("lines", len(lines)).
			Dur("took", time.Since(start)).
			Msg("Lyrics loaded")
		return State{Status: Loaded, Lines: lines, Meta: meta, Source: src.Name(), RequestID: id}
	}

	if err := ctx.Err(); err != nil {
		logger().Warn().Str("request_id", id).Err(err).Msg("Lyrics load aborted")
		return State{Status: Error, Err: err.Error(), RequestID: id}
	}

	logger().Info().Str("request_id", id).Msg("No lyrics found")
	return State{Status: NotFound, RequestID: id}
}
