package sequencer

import (
	"context"
	"errors"
	"sync"

	"github.com/yhkl-dev/nibble/player"
)

// fakeEngine records commands and answers durations from a table
type fakeEngine struct {
	mu        sync.Mutex
	rates     *player.RateList
	durations map[string]float64
	loadErrs  map[string]error
	blocking  map[string]bool // Load waits for cancellation

	loads    []string
	seeks    []float64
	canceled int
	position float64
	playing  bool
	muted    bool
	ticks    chan float64
}

var _ player.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	ticks := make(chan float64)
	close(ticks)
	return &fakeEngine{
		rates:     player.NewRateList(player.DefaultRates),
		durations: map[string]float64{"audioName1": 120, "audioName2": 90},
		loadErrs:  map[string]error{},
		blocking:  map[string]bool{},
		ticks:     ticks,
	}
}

func (f *fakeEngine) Load(ctx context.Context, source string) error {
	f.mu.Lock()
	f.loads = append(f.loads, source)
	err := f.loadErrs[source]
	block := f.blocking[source]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		f.mu.Lock()
		f.canceled++
		f.mu.Unlock()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.position = 0
	f.playing = true
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	return nil
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeEngine) Seek(ctx context.Context, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	f.position = seconds
	return nil
}

func (f *fakeEngine) SkipForward(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position += seconds
	return nil
}

func (f *fakeEngine) SkipBackward(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position -= seconds
	if f.position < 0 {
		f.position = 0
	}
	return nil
}

func (f *fakeEngine) NextPlaybackRate() (float64, error)  { return f.rates.Next(), nil }
func (f *fakeEngine) ResetPlaybackRate() (float64, error) { return f.rates.Reset(), nil }
func (f *fakeEngine) Rate() float64                       { return f.rates.Current() }

func (f *fakeEngine) Duration(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		return 0, player.ErrNothingLoaded
	}
	return f.durations[f.loads[len(f.loads)-1]], nil
}

func (f *fakeEngine) Position() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, nil
}

func (f *fakeEngine) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeEngine) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeEngine) Ticks() <-chan float64 { return f.ticks }
func (f *fakeEngine) Close() error          { return nil }

func (f *fakeEngine) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeEngine) lastSeek() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return 0, false
	}
	return f.seeks[len(f.seeks)-1], true
}

type failingResolver struct{}

func (failingResolver) Resolve(source string) (string, error) {
	return "", errors.Join(player.ErrInvalidSource, errors.New(source))
}
