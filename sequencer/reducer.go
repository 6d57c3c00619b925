package sequencer

import (
	"context"
	"errors"
	"log"

	"github.com/yhkl-dev/nibble/domain"
	"github.com/yhkl-dev/nibble/player"
)

// Effect is asynchronous work produced by the reducer. Effects that share an ID
// cancel their predecessor when started.
type Effect struct {
	ID  string
	Run func(ctx context.Context, send func(Action))
}

const (
	effectLoad  = "load"
	effectTicks = "ticks"
	effectSeek  = "seek"
	effectSkip  = "skip"
)

// Resolver maps a section source to a location the engine can open
type Resolver interface {
	Resolve(source string) (string, error)
}

// Options tune transport behavior
type Options struct {
	SkipForward  float64 // seconds
	SkipBackward float64 // seconds
	// EndTolerance is how close to the duration the elapsed time must be for
	// a section to count as finished
	EndTolerance float64
}

// DefaultOptions returns 10s forward, 5s backward and half a second of end tolerance
func DefaultOptions() Options {
	return Options{SkipForward: 10, SkipBackward: 5, EndTolerance: 0.5}
}

// Sequencer is the reducer that maps actions to state transitions and engine commands
type Sequencer struct {
	engine   player.Engine
	resolver Resolver
	opts     Options
}

// New creates a sequencer; a nil resolver passes sources through unchanged
func New(engine player.Engine, resolver Resolver, opts Options) *Sequencer {
	return &Sequencer{engine: engine, resolver: resolver, opts: opts}
}

// Reduce applies action to state and returns the effects to run
func (s *Sequencer) Reduce(state *State, action Action) []Effect {
	switch a := action.(type) {
	case Appear:
		if state.Book.IsEmpty() {
			return nil
		}
		state.Section = state.Book.Sections[0]
		state.Speed = player.RateLabel(s.engine.Rate())
		return append(s.startAudio(state), s.observeTicks())

	case StartAudio:
		state.Section = a.Section
		return s.startAudio(state)

	case SectionLoaded:
		if a.Generation != state.Generation {
			return nil
		}
		state.Duration = a.Duration
		state.IsLoading = false
		return nil

	case LoadFailed:
		if a.Generation != state.Generation {
			return nil
		}
		log.Printf("Failed to load section %d (%s): %v", state.Section.Number, state.Source, a.Err)
		state.IsLoading = false
		state.LastError = a.Err.Error()
		return nil

	case UpdateCurrentSection:
		state.Section = a.Section
		return nil

	case UpdateCurrentTime:
		if state.IsLoading {
			return nil
		}
		if s.isFinished(state, a.Seconds) {
			return s.Reduce(state, NextTapped{})
		}
		state.CurrentTime = a.Seconds
		if !state.IsTimelineEditing {
			state.TimelineTime = a.Seconds
		}
		return nil

	case UpdateTimelineTime:
		state.TimelineTime = a.Seconds
		return nil

	case TimelineValueChanged:
		if a.Editing {
			return s.Reduce(state, TimelineStartedEditing{})
		}
		return s.Reduce(state, TimelineFinishedEditing{})

	case TimelineStartedEditing:
		state.IsTimelineEditing = true
		return nil

	case TimelineFinishedEditing:
		return []Effect{s.seek(state.Generation, s.clampToDuration(state, state.TimelineTime))}

	case TimelineEditingCanceled:
		state.IsTimelineEditing = false
		state.TimelineTime = state.CurrentTime
		return nil

	case SeekTo:
		state.IsTimelineEditing = true
		state.TimelineTime = s.clampToDuration(state, a.Seconds)
		return s.Reduce(state, TimelineFinishedEditing{})

	case SeekingFinished:
		// a seek that lands after a section change belongs to the old section
		if a.Generation != state.Generation {
			return nil
		}
		state.IsTimelineEditing = false
		state.CurrentTime = a.Seconds
		state.TimelineTime = a.Seconds
		return nil

	case PauseTapped:
		var err error
		if state.IsPaused {
			err = s.engine.Play()
		} else {
			err = s.engine.Pause()
		}
		if err != nil {
			log.Printf("Play/pause failed: %v", err)
		}
		state.IsPaused = !state.IsPaused
		return nil

	case Play:
		if !state.IsPaused {
			return nil
		}
		return s.Reduce(state, PauseTapped{})

	case Pause:
		if state.IsPaused {
			return nil
		}
		return s.Reduce(state, PauseTapped{})

	case SpeedTapped:
		rate, err := s.engine.NextPlaybackRate()
		if err != nil {
			log.Printf("Failed to change speed: %v", err)
		}
		state.Speed = player.RateLabel(rate)
		return nil

	case PreviousTapped:
		if state.Section.Number == 0 || state.IsFirstSection() {
			return nil
		}
		return s.moveTo(state, state.Section.Number-1)

	case NextTapped:
		if state.Section.Number == 0 || state.IsLastSection() {
			return nil
		}
		return s.moveTo(state, state.Section.Number+1)

	case GoForwardTapped:
		return []Effect{s.skip(s.engine.SkipForward, s.opts.SkipForward)}

	case GoBackwardTapped:
		return []Effect{s.skip(s.engine.SkipBackward, s.opts.SkipBackward)}

	case SetSoundMode:
		state.IsSoundOn = a.On
		if err := s.engine.SetMuted(!a.On); err != nil {
			log.Printf("Failed to switch sound mode: %v", err)
		}
		return nil
	}

	log.Printf("Unhandled action %T", action)
	return nil
}

func (s *Sequencer) isFinished(state *State, elapsed float64) bool {
	return state.Duration > 0 && elapsed >= state.Duration-s.opts.EndTolerance
}

func (s *Sequencer) clampToDuration(state *State, seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	if state.Duration > 0 && seconds > state.Duration {
		return state.Duration
	}
	return seconds
}

func (s *Sequencer) moveTo(state *State, number int) []Effect {
	section, ok := state.Book.Section(number)
	if !ok {
		return nil
	}
	state.Section = section
	return s.startAudio(state)
}

// startAudio resets the timeline and speed for the current section and loads it
func (s *Sequencer) startAudio(state *State) []Effect {
	rate, err := s.engine.ResetPlaybackRate()
	if err != nil {
		log.Printf("Failed to reset speed: %v", err)
	}
	state.Speed = player.RateLabel(rate)
	state.IsPaused = false
	state.Source = state.Section.Source
	state.Duration = 0
	state.CurrentTime = 0
	state.TimelineTime = 0
	state.IsTimelineEditing = false
	state.IsLoading = true
	state.LastError = ""
	state.Generation++

	return []Effect{s.load(state.Generation, state.Section)}
}

func (s *Sequencer) load(gen uint64, section domain.Section) Effect {
	return Effect{
		ID: effectLoad,
		Run: func(ctx context.Context, send func(Action)) {
			source := section.Source
			if s.resolver != nil {
				resolved, err := s.resolver.Resolve(source)
				if err != nil {
					send(LoadFailed{Generation: gen, Err: err})
					return
				}
				source = resolved
			}

			if err := s.engine.Load(ctx, source); err != nil {
				if !errors.Is(err, context.Canceled) {
					send(LoadFailed{Generation: gen, Err: err})
				}
				return
			}
			duration, err := s.engine.Duration(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					send(LoadFailed{Generation: gen, Err: err})
				}
				return
			}
			send(SectionLoaded{Generation: gen, Duration: duration})
		},
	}
}

func (s *Sequencer) observeTicks() Effect {
	return Effect{
		ID: effectTicks,
		Run: func(ctx context.Context, send func(Action)) {
			ticks := s.engine.Ticks()
			for {
				select {
				case t, ok := <-ticks:
					if !ok {
						return
					}
					send(UpdateCurrentTime{Seconds: t})
				case <-ctx.Done():
					return
				}
			}
		},
	}
}

func (s *Sequencer) seek(gen uint64, target float64) Effect {
	return Effect{
		ID: effectSeek,
		Run: func(ctx context.Context, send func(Action)) {
			if err := s.engine.Seek(ctx, target); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("Seek to %.1f failed: %v", target, err)
			}
			send(SeekingFinished{Generation: gen, Seconds: target})
		},
	}
}

func (s *Sequencer) skip(move func(float64) error, seconds float64) Effect {
	return Effect{
		ID: effectSkip,
		Run: func(ctx context.Context, send func(Action)) {
			if err := move(seconds); err != nil {
				log.Printf("Skip failed: %v", err)
				return
			}
			pos, err := s.engine.Position()
			if err != nil {
				return
			}
			send(UpdateCurrentTime{Seconds: pos})
		},
	}
}
