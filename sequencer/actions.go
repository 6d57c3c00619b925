package sequencer

import "github.com/yhkl-dev/nibble/domain"

// Action is a user intent or an engine notification fed to the reducer
type Action interface {
	action()
}

// View lifecycle
type Appear struct{}

// Section loading
type (
	StartAudio struct{ Section domain.Section }

	SectionLoaded struct {
		Generation uint64
		Duration   float64
	}

	LoadFailed struct {
		Generation uint64
		Err        error
	}

	UpdateCurrentSection struct{ Section domain.Section }
)

// Time and timeline
type (
	UpdateCurrentTime       struct{ Seconds float64 }
	UpdateTimelineTime      struct{ Seconds float64 }
	TimelineValueChanged    struct{ Editing bool }
	TimelineStartedEditing  struct{}
	TimelineFinishedEditing struct{}
	TimelineEditingCanceled struct{}
	SeekTo                  struct{ Seconds float64 }

	SeekingFinished struct {
		Generation uint64
		Seconds    float64
	}
)

// Transport buttons
type (
	PauseTapped      struct{}
	SpeedTapped      struct{}
	PreviousTapped   struct{}
	NextTapped       struct{}
	GoBackwardTapped struct{}
	GoForwardTapped  struct{}
	SetSoundMode     struct{ On bool }
)

// Remote commands; unlike PauseTapped they are idempotent
type (
	Play  struct{}
	Pause struct{}
)

func (Appear) action()                  {}
func (StartAudio) action()              {}
func (SectionLoaded) action()           {}
func (LoadFailed) action()              {}
func (UpdateCurrentSection) action()    {}
func (UpdateCurrentTime) action()       {}
func (UpdateTimelineTime) action()      {}
func (TimelineValueChanged) action()    {}
func (TimelineStartedEditing) action()  {}
func (TimelineFinishedEditing) action() {}
func (TimelineEditingCanceled) action() {}
func (SeekingFinished) action()         {}
func (SeekTo) action()                  {}
func (PauseTapped) action()             {}
func (SpeedTapped) action()             {}
func (PreviousTapped) action()          {}
func (NextTapped) action()              {}
func (GoBackwardTapped) action()        {}
func (GoForwardTapped) action()         {}
func (SetSoundMode) action()            {}
func (Play) action()                    {}
func (Pause) action()                   {}
