package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wildeyedskies/go-mpv/mpv"
	"github.com/yhkl-dev/nibble/mpvplayer"
)

// MPVEngine implements Engine using the mpv media player
type MPVEngine struct {
	instance *mpvplayer.Mpvplayer
	rates    *RateList
	observer *timeObserver
	cancel   context.CancelFunc

	mu       sync.Mutex
	playing  bool
	loaded   chan struct{} // closed on FILE_LOADED for the current load
	loadErr  error
	started  bool // START_FILE seen for the current load
	closed   bool
	seekDone chan struct{}
}

var _ Engine = (*MPVEngine)(nil)

// NewMPVEngine creates an mpv backed engine and starts its event and tick loops
func NewMPVEngine(ctx context.Context, rates []float64, tick time.Duration) (*MPVEngine, error) {
	instance, err := mpvplayer.CreateMPVInstance()
	if err != nil {
		return nil, fmt.Errorf("failed to create MPV instance: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	e := &MPVEngine{
		instance: instance,
		rates:    NewRateList(rates),
		observer: newTimeObserver(tick),
		cancel:   cancel,
		seekDone: make(chan struct{}, 1),
	}

	go e.handleEvents(ctx, createEventListener(ctx, instance.Mpv))
	go e.observer.run(ctx, e.sample)
	return e, nil
}

// Load replaces the current item and starts playback
func (e *MPVEngine) Load(ctx context.Context, source string) error {
	if err := e.beginLoad(); err != nil {
		return err
	}
	if err := e.instance.Load(source); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSource, source, err)
	}
	return e.Play()
}

// beginLoad resets the load tracking that FILE_LOADED and END_FILE resolve
func (e *MPVEngine) beginLoad() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrNotInitialized
	}
	e.loaded = make(chan struct{})
	e.loadErr = nil
	e.started = false
	return nil
}

func (e *MPVEngine) Play() error {
	if err := e.instance.SetPaused(false); err != nil {
		return err
	}
	if err := e.instance.SetSpeed(e.rates.Current()); err != nil {
		return err
	}
	e.setPlaying(true)
	return nil
}

func (e *MPVEngine) Pause() error {
	if err := e.instance.SetPaused(true); err != nil {
		return err
	}
	e.setPlaying(false)
	return nil
}

// Seek jumps to seconds and waits for mpv to restart playback there
func (e *MPVEngine) Seek(ctx context.Context, seconds float64) error {
	duration, _ := e.instance.GetDuration()
	target := clamp(seconds, 0, duration)

	select {
	case <-e.seekDone:
	default:
	}
	if err := e.instance.SeekAbsolute(target); err != nil {
		return err
	}

	select {
	case <-e.seekDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *MPVEngine) SkipForward(seconds float64) error {
	return e.skip(seconds)
}

func (e *MPVEngine) SkipBackward(seconds float64) error {
	return e.skip(-seconds)
}

func (e *MPVEngine) skip(delta float64) error {
	pos, err := e.instance.GetProgress()
	if err != nil {
		return ErrNothingLoaded
	}
	duration, _ := e.instance.GetDuration()
	return e.instance.SeekAbsolute(clamp(pos+delta, 0, duration))
}

func (e *MPVEngine) NextPlaybackRate() (float64, error) {
	rate := e.rates.Next()
	return rate, e.instance.SetSpeed(rate)
}

func (e *MPVEngine) ResetPlaybackRate() (float64, error) {
	rate := e.rates.Reset()
	return rate, e.instance.SetSpeed(rate)
}

func (e *MPVEngine) Rate() float64 {
	return e.rates.Current()
}

// Duration blocks until the current file is loaded, then reads its duration
func (e *MPVEngine) Duration(ctx context.Context) (float64, error) {
	if err := e.waitLoaded(ctx); err != nil {
		return 0, err
	}
	return e.instance.GetDuration()
}

// waitLoaded blocks until the current load is resolved and returns its error
func (e *MPVEngine) waitLoaded(ctx context.Context) error {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if loaded == nil {
		return ErrNothingLoaded
	}

	select {
	case <-loaded:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

func (e *MPVEngine) Position() (float64, error) {
	if loaded, err := e.instance.IsLoaded(); err != nil || !loaded {
		return 0, ErrNothingLoaded
	}
	return e.instance.GetProgress()
}

func (e *MPVEngine) SetMuted(muted bool) error {
	return e.instance.SetMute(muted)
}

func (e *MPVEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *MPVEngine) Ticks() <-chan float64 {
	return e.observer.ch
}

// Close stops the loops and destroys the mpv handle
func (e *MPVEngine) Close() error {
	e.cancel()
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	if e.instance != nil && e.instance.Mpv != nil {
		e.instance.Quit()
	}
	return nil
}

func (e *MPVEngine) setPlaying(playing bool) {
	e.mu.Lock()
	e.playing = playing
	e.mu.Unlock()
}

// sample reads the position for the time observer; at end of file it reports the
// full duration so the sequencer sees the section as finished
func (e *MPVEngine) sample() (float64, bool) {
	if !e.IsPlaying() {
		return 0, false
	}
	if eof, err := e.instance.IsEOF(); err == nil && eof {
		if d, err := e.instance.GetDuration(); err == nil {
			return d, true
		}
	}
	pos, err := e.instance.GetProgress()
	if err != nil || pos < 0 {
		return 0, false
	}
	return pos, true
}

func (e *MPVEngine) handleEvents(ctx context.Context, events <-chan *mpv.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("mpv event handler panic recovered: %v", r)
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			switch event.Event_Id {
			case mpv.EVENT_START_FILE:
				e.mu.Lock()
				e.started = true
				e.mu.Unlock()
			case mpv.EVENT_FILE_LOADED:
				e.finishLoad(nil)
			case mpv.EVENT_END_FILE:
				// replaced files end with reason stop; only an error fails the load
				if endFileFailed(event) {
					e.finishLoad(fmt.Errorf("%w: mpv could not open file", ErrInvalidSource))
				}
			case mpv.EVENT_PLAYBACK_RESTART:
				select {
				case e.seekDone <- struct{}{}:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func endFileFailed(event *mpv.Event) bool {
	ef, ok := event.Data.(mpv.EventEndFile)
	return ok && ef.Reason == mpv.END_FILE_REASON_ERROR
}

func (e *MPVEngine) finishLoad(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded == nil || !e.started {
		return
	}
	select {
	case <-e.loaded:
		return
	default:
	}
	e.loadErr = err
	if err != nil {
		e.playing = false
	}
	close(e.loaded)
}

// createEventListener pumps mpv events into a channel until ctx is done
func createEventListener(ctx context.Context, m *mpv.Mpv) chan *mpv.Event {
	c := make(chan *mpv.Event)
	go func() {
		defer close(c)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				e := m.WaitEvent(1)
				if e == nil || e.Event_Id == mpv.EVENT_NONE {
					time.Sleep(10 * time.Millisecond)
					continue
				}
				select {
				case c <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return c
}
