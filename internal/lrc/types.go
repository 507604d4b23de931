package lrc

// Unbounded marks a line whose end time has not been resolved yet.
const Unbounded int64 = -1

const (
	// DefaultLastLineMs is added to the final line's start when resolving its end.
	DefaultLastLineMs int64 = 5000
	// DefaultWordMs is the duration given to the last word of a line.
	DefaultWordMs int64 = 500
)

// Line is one displayable lyric line. Times are in milliseconds.
type Line struct {
	TimeMs    int64
	EndTimeMs int64
	Content   string
	Words     []Word
}

// Contains reports whether pos falls inside [TimeMs, EndTimeMs).
// A negative end time is treated as unbounded.
func (l Line) Contains(pos int64) bool {
	if pos < l.TimeMs {
		return false
	}
	return l.EndTimeMs < 0 || pos < l.EndTimeMs
}

// Word is a sub-line timing unit.
type Word struct {
	StartMs int64
	EndMs   int64
	Text    string
}

// Meta holds document level tags.
type Meta struct {
	Title    string
	Artist   string
	Album    string
	By       string
	Editor   string
	OffsetMs int64
	// LengthMs is only meaningful when HasLength is set.
	LengthMs  int64
	HasLength bool
}
