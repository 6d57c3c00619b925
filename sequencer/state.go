package sequencer

import (
	"fmt"
	"math"

	"github.com/yhkl-dev/nibble/domain"
)

// State is the single source of truth for the player screen.
// Only the reducer mutates it.
type State struct {
	Book    domain.Book
	Section domain.Section // zero value until the first section is chosen
	Source  string

	Duration     float64
	CurrentTime  float64
	TimelineTime float64

	IsTimelineEditing bool
	Speed             string
	IsPaused          bool
	IsSoundOn         bool
	IsLoading         bool

	// Generation identifies the latest load request; results of older loads are dropped
	Generation uint64
	LastError  string
}

// NewState returns the initial state for book
func NewState(book domain.Book) State {
	return State{
		Book:      book,
		IsSoundOn: true,
	}
}

func (s State) IsFirstSection() bool {
	return s.Section.Number == 1
}

func (s State) IsLastSection() bool {
	return s.Book.SectionCount == s.Section.Number
}

func (s State) DurationLabel() string {
	return FormatTime(s.Duration)
}

func (s State) CurrentTimeLabel() string {
	return FormatTime(s.CurrentTime)
}

func (s State) TimelineLabel() string {
	return FormatTime(s.TimelineTime)
}

// Progress returns the timeline position as a fraction of the duration
func (s State) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	p := s.TimelineTime / s.Duration
	return math.Max(0, math.Min(1, p))
}

// FormatTime renders seconds as M:SS, or H:MM:SS for long sections
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int(seconds)
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
