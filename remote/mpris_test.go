package remote

import (
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/yhkl-dev/nibble/domain"
	"github.com/yhkl-dev/nibble/sequencer"
)

type fakeController struct {
	mu    sync.Mutex
	state sequencer.State
	sent  []sequencer.Action
}

func (f *fakeController) Send(a sequencer.Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, a)
}

func (f *fakeController) State() sequencer.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) lastSent() sequencer.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func playingState() sequencer.State {
	st := sequencer.NewState(domain.MockBook())
	st.Section = st.Book.Sections[0]
	st.Generation = 1
	st.Duration = 120
	st.CurrentTime = 30
	return st
}

func newTestHandler(st sequencer.State) (*MPRISHandler, *fakeController) {
	ctl := &fakeController{state: st}
	m := NewMPRISHandler("nibble", ctl, []float64{0.5, 1, 2})
	m.Update(st)
	return m, ctl
}

func TestPlayFailsWhenPlaying(t *testing.T) {
	m, ctl := newTestHandler(playingState())

	if err := m.Play(); err != errAlreadyPlaying {
		t.Errorf("expected errAlreadyPlaying, got %v", err)
	}
	if err := m.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ctl.lastSent().(sequencer.Pause); !ok {
		t.Errorf("expected Pause action, got %#v", ctl.lastSent())
	}
}

func TestPauseFailsWhenPaused(t *testing.T) {
	st := playingState()
	st.IsPaused = true
	m, ctl := newTestHandler(st)

	if err := m.Pause(); err != errAlreadyPaused {
		t.Errorf("expected errAlreadyPaused, got %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ctl.lastSent().(sequencer.Play); !ok {
		t.Errorf("expected Play action, got %#v", ctl.lastSent())
	}

	status, _ := m.PlaybackStatus()
	if status != types.PlaybackStatusPaused {
		t.Errorf("expected paused status, got %v", status)
	}
}

func TestTransportCommands(t *testing.T) {
	m, ctl := newTestHandler(playingState())

	m.Next()
	if _, ok := ctl.lastSent().(sequencer.NextTapped); !ok {
		t.Errorf("expected NextTapped, got %#v", ctl.lastSent())
	}
	m.Previous()
	if _, ok := ctl.lastSent().(sequencer.PreviousTapped); !ok {
		t.Errorf("expected PreviousTapped, got %#v", ctl.lastSent())
	}
	m.PlayPause()
	if _, ok := ctl.lastSent().(sequencer.PauseTapped); !ok {
		t.Errorf("expected PauseTapped, got %#v", ctl.lastSent())
	}
	m.SetVolume(0)
	if a, ok := ctl.lastSent().(sequencer.SetSoundMode); !ok || a.On {
		t.Errorf("expected sound off, got %#v", ctl.lastSent())
	}
}

func TestSeekIsRelative(t *testing.T) {
	m, ctl := newTestHandler(playingState())

	if err := m.Seek(types.Microseconds(10_000_000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a, ok := ctl.lastSent().(sequencer.SeekTo); !ok || a.Seconds != 40 {
		t.Errorf("expected SeekTo 40, got %#v", ctl.lastSent())
	}

	m, _ = newTestHandler(sequencer.NewState(domain.MockBook()))
	if err := m.Seek(1); err != errNoSection {
		t.Errorf("expected errNoSection, got %v", err)
	}
}

func TestSetPositionChecksTrack(t *testing.T) {
	m, ctl := newTestHandler(playingState())

	m.SetPosition("/nibble/Section/other", 5_000_000)
	if len(ctl.sent) != 0 {
		t.Fatalf("expected no action for a foreign track, got %v", ctl.sent)
	}

	meta, _ := m.Metadata()
	m.SetPosition(string(meta.TrackId), 5_000_000)
	if a, ok := ctl.lastSent().(sequencer.SeekTo); !ok || a.Seconds != 5 {
		t.Errorf("expected SeekTo 5, got %#v", ctl.lastSent())
	}
}

func TestMetadata(t *testing.T) {
	m, _ := newTestHandler(playingState())

	meta, err := m.Metadata()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Title != "Title 1" || meta.Album != "RamStein" || meta.TrackNumber != 1 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Length != types.Microseconds(120_000_000) {
		t.Errorf("expected length 120s, got %v", meta.Length)
	}
	if meta.TrackId == dbus.ObjectPath(noTrackObjectPath) || !meta.TrackId.IsValid() {
		t.Errorf("unexpected track id %q", meta.TrackId)
	}

	// a new load gets a new track id
	st := playingState()
	st.Generation = 2
	m.Update(st)
	next, _ := m.Metadata()
	if next.TrackId == meta.TrackId {
		t.Error("expected a new track id after reload")
	}

	empty, _ := newTestHandler(sequencer.NewState(domain.MockBook()))
	meta, _ = empty.Metadata()
	if meta.TrackId != dbus.ObjectPath(noTrackObjectPath) {
		t.Errorf("expected NoTrack, got %q", meta.TrackId)
	}
}

func TestRatesAndCapabilities(t *testing.T) {
	m, _ := newTestHandler(playingState())
	m.RateLookup = func() float64 { return 1.5 }

	if r, _ := m.Rate(); r != 1.5 {
		t.Errorf("expected rate 1.5, got %v", r)
	}
	if r, _ := m.MinimumRate(); r != 0.5 {
		t.Errorf("expected min rate 0.5, got %v", r)
	}
	if r, _ := m.MaximumRate(); r != 2 {
		t.Errorf("expected max rate 2, got %v", r)
	}
	if ok, _ := m.CanGoPrevious(); ok {
		t.Error("first section cannot go previous")
	}
	if ok, _ := m.CanGoNext(); !ok {
		t.Error("first of two sections can go next")
	}
}

func TestArtURL(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"bookCoverMock":             "",
		"/covers/book.png":          "file:///covers/book.png",
		"https://example.com/c.png": "https://example.com/c.png",
	}
	for in, want := range tests {
		if got := artURL(in); got != want {
			t.Errorf("artURL(%q) = %q, want %q", in, got, want)
		}
	}
}
