// Package tracker maps a playback position onto a parsed lyric line.
package tracker

import (
	"sync"

	"lrc-engine/internal/lrc"
)

// Tracker keeps the index of the current lyric line. Update is cheap and is
// meant to be called on every position tick.
type Tracker struct {
	mu     sync.RWMutex
	lines  []lrc.Line
	index  int
	leadMs int64
}

// New returns an empty tracker with no current line.
func New() *Tracker {
	return &Tracker{index: -1}
}

// SetLead shifts lookups forward so a line is reported slightly before it
// starts.
func (t *Tracker) SetLead(ms int64) {
	t.mu.Lock()
	t.leadMs = ms
	t.mu.Unlock()
}

// Set replaces the tracked lines and resets the current index.
func (t *Tracker) Set(lines []lrc.Line) {
	t.mu.Lock()
	t.lines = lines
	t.index = -1
	t.mu.Unlock()
}

// Clear drops all lines.
func (t *Tracker) Clear() {
	t.Set(nil)
}

// Update moves the tracker to positionMs and reports whether the current
// index changed.
func (t *Tracker) Update(positionMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := IndexAt(t.lines, positionMs+t.leadMs)
	if idx == t.index {
		return false
	}
	t.index = idx
	return true
}

// Index returns the current line index, or -1.
func (t *Tracker) Index() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index
}

// Lines returns the tracked lines.
func (t *Tracker) Lines() []lrc.Line {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lines
}

// Current returns the current line if there is one.
func (t *Tracker) Current() (lrc.Line, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.index < 0 || t.index >= len(t.lines) {
		return lrc.Line{}, false
	}
	return t.lines[t.index], true
}

// LinesAround returns up to count lines on each side of the current line.
// It is empty when there is no current line.
func (t *Tracker) LinesAround(count int) []lrc.Line {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Window(t.lines, t.index, count)
}

// Window returns lines[index-count : index+count+1] clamped to bounds.
func Window(lines []lrc.Line, index, count int) []lrc.Line {
	if index < 0 || index >= len(lines) {
		return nil
	}
	if count < 0 {
		count = 0
	}
	lo := max(index-count, 0)
	hi := min(index+count+1, len(lines))
	out := make([]lrc.Line, hi-lo)
	copy(out, lines[lo:hi])
	return out
}

// IndexAt finds the line whose [TimeMs, EndTimeMs) interval contains pos by
// binary search. When no interval contains it, the last line starting at or
// before pos wins. It returns -1 when pos precedes every line.
func IndexAt(lines []lrc.Line, pos int64) int {
	if len(lines) == 0 || pos < lines[0].TimeMs {
		return -1
	}

	left, right := 0, len(lines)-1
	for left <= right {
		mid := (left + right) / 2
		line := lines[mid]
		switch {
		case pos < line.TimeMs:
			right = mid - 1
		case line.Contains(pos):
			return mid
		default:
			left = mid + 1
		}
	}

	result := -1
	for i, line := range lines {
		if line.TimeMs > pos {
			break
		}
		result = i
	}
	return result
}
