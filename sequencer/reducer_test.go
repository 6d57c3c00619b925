package sequencer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/yhkl-dev/nibble/domain"
)

// harness runs effects inline and drains the actions they send
type harness struct {
	t      *testing.T
	seq    *Sequencer
	engine *fakeEngine
	state  State
	queue  []Action
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine := newFakeEngine()
	return &harness{
		t:      t,
		seq:    New(engine, nil, DefaultOptions()),
		engine: engine,
		state:  NewState(domain.MockBook()),
	}
}

func (h *harness) send(a Action) {
	h.queue = append(h.queue, a)
}

func (h *harness) dispatch(actions ...Action) {
	h.queue = append(h.queue, actions...)
	for len(h.queue) > 0 {
		next := h.queue[0]
		h.queue = h.queue[1:]
		for _, eff := range h.seq.Reduce(&h.state, next) {
			eff.Run(context.Background(), h.send)
		}
	}
}

func TestAppearLoadsFirstSection(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{})

	s := h.state
	if s.Section.Number != 1 || s.Section.Title != "Title 1" {
		t.Fatalf("expected section 1, got %+v", s.Section)
	}
	if s.Duration != 120 {
		t.Errorf("expected duration 120, got %v", s.Duration)
	}
	if s.IsLoading {
		t.Error("expected loading to be finished")
	}
	if s.Speed != "1×" {
		t.Errorf("expected speed 1×, got %q", s.Speed)
	}
	if s.DurationLabel() != "2:00" {
		t.Errorf("expected duration label 2:00, got %q", s.DurationLabel())
	}
	if len(h.engine.loads) != 1 || h.engine.loads[0] != "audioName1" {
		t.Errorf("unexpected loads %v", h.engine.loads)
	}
}

func TestAppearWithEmptyBook(t *testing.T) {
	h := newHarness(t)
	h.state = NewState(domain.Book{})
	h.dispatch(Appear{})

	if h.state.Section.Number != 0 {
		t.Errorf("expected no section, got %+v", h.state.Section)
	}
	if h.engine.loadCount() != 0 {
		t.Errorf("expected no loads, got %d", h.engine.loadCount())
	}
}

func TestNextResetsElapsed(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, UpdateCurrentTime{Seconds: 50})
	if h.state.CurrentTime != 50 || h.state.TimelineTime != 50 {
		t.Fatalf("expected elapsed 50, got %v/%v", h.state.CurrentTime, h.state.TimelineTime)
	}

	h.dispatch(NextTapped{})

	s := h.state
	if s.Section.Number != 2 {
		t.Fatalf("expected section 2, got %d", s.Section.Number)
	}
	if s.CurrentTime != 0 || s.TimelineTime != 0 {
		t.Errorf("expected elapsed reset, got %v/%v", s.CurrentTime, s.TimelineTime)
	}
	if s.Duration != 90 {
		t.Errorf("expected duration 90, got %v", s.Duration)
	}
	if s.Generation != 2 {
		t.Errorf("expected generation 2, got %d", s.Generation)
	}
}

func TestBoundaryNavigationIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, PreviousTapped{})
	if h.state.Section.Number != 1 || h.engine.loadCount() != 1 {
		t.Fatalf("previous on first section changed state: %+v, loads %d", h.state.Section, h.engine.loadCount())
	}

	h.dispatch(NextTapped{}, UpdateCurrentTime{Seconds: 30})
	before := h.state
	h.dispatch(NextTapped{})
	if !reflect.DeepEqual(h.state, before) {
		t.Errorf("next on last section changed state:\nbefore %+v\nafter  %+v", before, h.state)
	}
	if h.engine.loadCount() != 2 {
		t.Errorf("expected 2 loads, got %d", h.engine.loadCount())
	}
}

func TestSectionEndAdvances(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, UpdateCurrentTime{Seconds: 119.8})

	if h.state.Section.Number != 2 {
		t.Fatalf("expected advance to section 2, got %d", h.state.Section.Number)
	}
	if h.state.CurrentTime != 0 {
		t.Errorf("expected elapsed reset, got %v", h.state.CurrentTime)
	}

	// the last section ends without moving
	h.dispatch(UpdateCurrentTime{Seconds: 40})
	before := h.state
	h.dispatch(UpdateCurrentTime{Seconds: 90})
	if !reflect.DeepEqual(h.state, before) {
		t.Errorf("end of last section changed state:\nbefore %+v\nafter  %+v", before, h.state)
	}
}

func TestTwoSectionScenario(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{})

	for _, tick := range []float64{1, 2, 60, 120} {
		h.dispatch(UpdateCurrentTime{Seconds: tick})
	}
	if h.state.Section.Title != "Title 2" {
		t.Fatalf("expected Title 2 after first section ended, got %q", h.state.Section.Title)
	}

	h.dispatch(PreviousTapped{})
	if h.state.Section.Title != "Title 1" {
		t.Errorf("expected Title 1 after previous, got %q", h.state.Section.Title)
	}
	want := []string{"audioName1", "audioName2", "audioName1"}
	if len(h.engine.loads) != len(want) {
		t.Fatalf("expected loads %v, got %v", want, h.engine.loads)
	}
	for i := range want {
		if h.engine.loads[i] != want[i] {
			t.Errorf("load %d: expected %q, got %q", i, want[i], h.engine.loads[i])
		}
	}
}

func TestTimelineDrag(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, UpdateCurrentTime{Seconds: 5})

	h.dispatch(TimelineValueChanged{Editing: true}, UpdateTimelineTime{Seconds: 42})
	if !h.state.IsTimelineEditing {
		t.Fatal("expected timeline editing")
	}

	// ticks during the drag move elapsed but not the timeline
	h.dispatch(UpdateCurrentTime{Seconds: 6})
	if h.state.CurrentTime != 6 || h.state.TimelineTime != 42 {
		t.Errorf("expected 6/42 during drag, got %v/%v", h.state.CurrentTime, h.state.TimelineTime)
	}

	h.dispatch(TimelineValueChanged{Editing: false})

	if seek, ok := h.engine.lastSeek(); !ok || seek != 42 {
		t.Errorf("expected seek to 42, got %v (%v)", seek, ok)
	}
	if h.state.IsTimelineEditing {
		t.Error("expected editing to end after seek")
	}
	if h.state.CurrentTime != 42 || h.state.TimelineTime != 42 {
		t.Errorf("expected elapsed 42, got %v/%v", h.state.CurrentTime, h.state.TimelineTime)
	}
	if h.state.CurrentTimeLabel() != "0:42" {
		t.Errorf("expected label 0:42, got %q", h.state.CurrentTimeLabel())
	}
}

func TestSeekToClamps(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		want   float64
	}{
		{"inside", 30, 30},
		{"past end", 500, 120},
		{"negative", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.dispatch(Appear{}, SeekTo{Seconds: tt.target})

			if seek, _ := h.engine.lastSeek(); seek != tt.want {
				t.Errorf("expected engine seek %v, got %v", tt.want, seek)
			}
			if h.state.CurrentTime != tt.want {
				t.Errorf("expected elapsed %v, got %v", tt.want, h.state.CurrentTime)
			}
		})
	}
}

func TestStaleLoadResultsAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, NextTapped{})
	before := h.state

	h.dispatch(SectionLoaded{Generation: 1, Duration: 999})
	h.dispatch(LoadFailed{Generation: 1, Err: errors.New("late")})

	if !reflect.DeepEqual(h.state, before) {
		t.Errorf("stale results changed state:\nbefore %+v\nafter  %+v", before, h.state)
	}
}

func TestLoadFailureSurfacesError(t *testing.T) {
	h := newHarness(t)
	h.engine.loadErrs["audioName1"] = errors.New("no such file")
	h.dispatch(Appear{})

	if h.state.IsLoading {
		t.Error("expected loading to stop")
	}
	if h.state.LastError != "no such file" {
		t.Errorf("expected last error, got %q", h.state.LastError)
	}

	// moving on clears the error
	h.dispatch(NextTapped{})
	if h.state.LastError != "" {
		t.Errorf("expected error cleared, got %q", h.state.LastError)
	}
}

func TestResolverFailure(t *testing.T) {
	h := newHarness(t)
	h.seq = New(h.engine, failingResolver{}, DefaultOptions())
	h.dispatch(Appear{})

	if h.state.LastError == "" {
		t.Error("expected resolver error")
	}
	if h.engine.loadCount() != 0 {
		t.Errorf("expected no engine loads, got %d", h.engine.loadCount())
	}
}

func TestTicksIgnoredWhileLoading(t *testing.T) {
	h := newHarness(t)
	h.seq.Reduce(&h.state, StartAudio{Section: h.state.Book.Sections[0]})

	h.dispatch(UpdateCurrentTime{Seconds: 300})
	if h.state.CurrentTime != 0 || h.state.Section.Number != 1 {
		t.Errorf("tick during load changed state: %+v", h.state)
	}
}

func TestSpeedCyclesAndResetsOnSectionChange(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{})

	want := []string{"1.25×", "1.5×", "2×", "0.5×", "1×"}
	for _, label := range want {
		h.dispatch(SpeedTapped{})
		if h.state.Speed != label {
			t.Fatalf("expected speed %q, got %q", label, h.state.Speed)
		}
	}

	h.dispatch(SpeedTapped{}, NextTapped{})
	if h.state.Speed != "1×" {
		t.Errorf("expected speed reset to 1×, got %q", h.state.Speed)
	}
}

func TestPauseToggleAndRemoteCommands(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{})

	h.dispatch(PauseTapped{})
	if !h.state.IsPaused || h.engine.IsPlaying() {
		t.Fatal("expected paused")
	}
	h.dispatch(Pause{})
	if !h.state.IsPaused {
		t.Error("pause while paused must stay paused")
	}
	h.dispatch(Play{}, Play{})
	if h.state.IsPaused || !h.engine.IsPlaying() {
		t.Error("expected playing after play")
	}

	h.dispatch(PauseTapped{}, NextTapped{})
	if h.state.IsPaused {
		t.Error("starting a section must clear pause")
	}
}

func TestSkipUpdatesElapsed(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, SeekTo{Seconds: 20})

	h.dispatch(GoForwardTapped{})
	if h.state.CurrentTime != 30 {
		t.Errorf("expected 30 after forward skip, got %v", h.state.CurrentTime)
	}

	h.dispatch(GoBackwardTapped{})
	if h.state.CurrentTime != 25 {
		t.Errorf("expected 25 after backward skip, got %v", h.state.CurrentTime)
	}
}

func TestSoundMode(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, SetSoundMode{On: false})
	if h.state.IsSoundOn || !h.engine.muted {
		t.Error("expected sound off and engine muted")
	}
	h.dispatch(SetSoundMode{On: true})
	if !h.state.IsSoundOn || h.engine.muted {
		t.Error("expected sound on and engine unmuted")
	}
}

func TestUpdateCurrentSection(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{})
	second := h.state.Book.Sections[1]

	h.dispatch(UpdateCurrentSection{Section: second})
	if h.state.Section != second {
		t.Errorf("expected %+v, got %+v", second, h.state.Section)
	}
	if h.engine.loadCount() != 1 {
		t.Errorf("updating the section must not load, got %d loads", h.engine.loadCount())
	}
}

func TestSeekFinishingAfterSectionChangeIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, TimelineStartedEditing{}, UpdateTimelineTime{Seconds: 42})

	// the seek is still in flight when the section changes
	inFlight := h.seq.Reduce(&h.state, TimelineFinishedEditing{})
	h.dispatch(NextTapped{})
	for _, eff := range inFlight {
		eff.Run(context.Background(), h.send)
	}
	h.dispatch()

	s := h.state
	if s.Section.Number != 2 {
		t.Fatalf("expected section 2, got %d", s.Section.Number)
	}
	if s.CurrentTime != 0 || s.TimelineTime != 0 {
		t.Errorf("expected elapsed 0 on the new section, got %v/%v", s.CurrentTime, s.TimelineTime)
	}
	if s.IsTimelineEditing {
		t.Error("expected no timeline editing on the new section")
	}
	if seek, ok := h.engine.lastSeek(); !ok || seek != 42 {
		t.Errorf("expected the engine to have seeked to 42, got %v (%v)", seek, ok)
	}
}

func TestTimelineEditingCanceled(t *testing.T) {
	h := newHarness(t)
	h.dispatch(Appear{}, UpdateCurrentTime{Seconds: 30})
	h.dispatch(TimelineStartedEditing{}, UpdateTimelineTime{Seconds: 80})
	h.dispatch(UpdateCurrentTime{Seconds: 31})
	h.dispatch(TimelineEditingCanceled{})

	s := h.state
	if s.IsTimelineEditing {
		t.Error("expected editing to end")
	}
	if s.CurrentTime != 31 || s.TimelineTime != 31 {
		t.Errorf("expected timeline back at elapsed 31, got %v/%v", s.CurrentTime, s.TimelineTime)
	}
	if seek, ok := h.engine.lastSeek(); ok {
		t.Errorf("expected no seek, got %v", seek)
	}
}

func TestAdvanceWalksEverySection(t *testing.T) {
	const count = 5
	book := domain.Book{Name: "Long Book", SectionCount: count}
	for i := 1; i <= count; i++ {
		book.Sections = append(book.Sections, domain.Section{
			Title:  fmt.Sprintf("Title %d", i),
			Source: fmt.Sprintf("audio%d", i),
			Number: i,
		})
	}

	tests := []struct {
		name    string
		advance func(h *harness) Action
	}{
		{"next tapped", func(*harness) Action { return NextTapped{} }},
		{"section end", func(h *harness) Action { return UpdateCurrentTime{Seconds: h.state.Duration} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for i := 1; i <= count; i++ {
				h.engine.durations[fmt.Sprintf("audio%d", i)] = float64(60 * i)
			}
			h.state = NewState(book)
			h.dispatch(Appear{})

			for i := 1; i < count; i++ {
				if h.state.Section.Number != i {
					t.Fatalf("expected section %d, got %d", i, h.state.Section.Number)
				}
				h.dispatch(UpdateCurrentTime{Seconds: 20})
				h.dispatch(tt.advance(h))

				s := h.state
				if s.Section.Number != i+1 {
					t.Fatalf("advancing from %d: expected section %d, got %d", i, i+1, s.Section.Number)
				}
				if s.CurrentTime != 0 || s.TimelineTime != 0 {
					t.Errorf("advancing from %d: expected elapsed 0, got %v/%v", i, s.CurrentTime, s.TimelineTime)
				}
				if s.Duration != float64(60*(i+1)) {
					t.Errorf("advancing from %d: expected duration %d, got %v", i, 60*(i+1), s.Duration)
				}
			}

			before := h.state
			h.dispatch(tt.advance(h))
			if !reflect.DeepEqual(h.state, before) {
				t.Errorf("advancing past the last section changed state:\nbefore %+v\nafter  %+v", before, h.state)
			}
		})
	}
}
