package lyrics

import "lrc-engine/internal/lrc"

// Status is the load state of the engine.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	NotFound
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case NotFound:
		return "not_found"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether a load has finished.
func (s Status) Terminal() bool {
	return s == Loaded || s == NotFound || s == Error
}

// State is an immutable snapshot published by the engine.
type State struct {
	Status Status
	Lines  []lrc.Line
	Meta   lrc.Meta
	// Source names the source that produced Lines.
	Source string
	// Err is set for Error.
	Err       string
	RequestID string
}
