package player

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned when a backend is used before it is ready
	ErrNotInitialized = errors.New("player not initialized")

	// ErrInvalidSource is returned when a section source cannot be resolved or opened
	ErrInvalidSource = errors.New("invalid audio source")

	// ErrNothingLoaded is returned by operations that need a loaded source
	ErrNothingLoaded = errors.New("no audio loaded")
)

// Engine defines the playback operations the sequencer drives.
// Implementations wrap a native media player (mpv, beep).
type Engine interface {
	// Load replaces the active source and starts playing it
	Load(ctx context.Context, source string) error

	// Play resumes playback
	Play() error

	// Pause pauses playback
	Pause() error

	// Seek moves to an absolute position in seconds, clamped to the loaded duration.
	// It returns once the backend reports the seek as complete.
	Seek(ctx context.Context, seconds float64) error

	// SkipForward moves the position forward by the given seconds
	SkipForward(seconds float64) error

	// SkipBackward moves the position backward by the given seconds
	SkipBackward(seconds float64) error

	// NextPlaybackRate advances the circular rate list and applies the new rate
	NextPlaybackRate() (float64, error)

	// ResetPlaybackRate returns to normal speed
	ResetPlaybackRate() (float64, error)

	// Rate returns the current playback rate
	Rate() float64

	// Duration waits for the loaded source to report its duration in seconds
	Duration(ctx context.Context) (float64, error)

	// Position returns the elapsed time in seconds
	Position() (float64, error)

	// SetMuted mutes or unmutes output
	SetMuted(muted bool) error

	// IsPlaying returns whether audio is currently playing
	IsPlaying() bool

	// Ticks delivers the elapsed time periodically while playing
	Ticks() <-chan float64

	// Close releases the backend
	Close() error
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > lo && v > hi {
		return hi
	}
	return v
}
