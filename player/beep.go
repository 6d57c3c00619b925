package player

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	"github.com/spf13/afero"
)

// speakerRate is the fixed output rate; sources are resampled to it
const speakerRate beep.SampleRate = 44100

// audioOutput is the device beep streams are mixed into
type audioOutput interface {
	Init() error
	Lock()
	Unlock()
	Clear()
	Play(s beep.Streamer)
}

// speakerOutput is the default audio device
type speakerOutput struct{}

func (speakerOutput) Init() error {
	return speaker.Init(speakerRate, speakerRate.N(time.Second/10))
}

func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }
func (speakerOutput) Clear()               { speaker.Clear() }
func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

type decodeFunc func(rc io.ReadCloser, name string) (beep.StreamSeekCloser, beep.Format, error)

// BeepEngine implements Engine by decoding local files in-process with beep.
// Rates above or below 1x are applied by resampling, so pitch follows speed.
type BeepEngine struct {
	fs       afero.Fs
	out      audioOutput
	decode   decodeFunc
	rates    *RateList
	observer *timeObserver
	cancel   context.CancelFunc

	mu        sync.Mutex
	outInit   bool
	stream    beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	volume    *effects.Volume
	muted     bool
	playing   bool
	ended     bool
	closed    bool
	gen       int
}

var _ Engine = (*BeepEngine)(nil)

// NewBeepEngine creates an engine reading files from fs and playing on the default audio output
func NewBeepEngine(ctx context.Context, fs afero.Fs, rates []float64, tick time.Duration) *BeepEngine {
	return newBeepEngine(ctx, fs, speakerOutput{}, decode, rates, tick)
}

func newBeepEngine(ctx context.Context, fs afero.Fs, out audioOutput, dec decodeFunc, rates []float64, tick time.Duration) *BeepEngine {
	ctx, cancel := context.WithCancel(ctx)
	e := &BeepEngine{
		fs:       fs,
		out:      out,
		decode:   dec,
		rates:    NewRateList(rates),
		observer: newTimeObserver(tick),
		cancel:   cancel,
	}
	go e.observer.run(ctx, e.sample)
	return e
}

// Load decodes source, replacing whatever is playing, and starts playback.
// A load whose ctx is canceled while decoding never replaces the current stream.
func (e *BeepEngine) Load(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.ensureOutput(); err != nil {
		return err
	}

	f, err := e.fs.Open(source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	stream, format, err := e.decode(f, source)
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrInvalidSource, source, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		stream.Close()
		return ErrNotInitialized
	}
	// decoding can take seconds; a newer load may have superseded this one
	if err := ctx.Err(); err != nil {
		stream.Close()
		return err
	}

	e.out.Clear()
	if e.stream != nil {
		e.stream.Close()
	}
	e.stream = stream
	e.format = format
	e.resampler = beep.Resample(4, format.SampleRate, speakerRate, stream)
	e.resampler.SetRatio(e.baseRatio() * e.rates.Current())
	e.ctrl = &beep.Ctrl{Streamer: e.resampler}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2, Silent: e.muted}
	e.playing = true
	e.ended = false
	e.gen++
	gen := e.gen

	// the callback runs under the speaker lock, so finish on another goroutine
	e.out.Play(beep.Seq(e.volume, beep.Callback(func() { go e.onEnd(gen) })))
	return nil
}

func decode(rc io.ReadCloser, name string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return mp3.Decode(rc)
	case ".ogg", ".oga":
		return vorbis.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format %q", filepath.Ext(name))
	}
}

func (e *BeepEngine) ensureOutput() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrNotInitialized
	}
	if e.outInit {
		return nil
	}
	if err := e.out.Init(); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	e.outInit = true
	return nil
}

func (e *BeepEngine) onEnd(gen int) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.ended = true
	e.playing = false
	d := e.durationLocked()
	e.mu.Unlock()
	e.observer.publish(d)
}

func (e *BeepEngine) Play() error {
	return e.setPaused(false)
}

func (e *BeepEngine) Pause() error {
	return e.setPaused(true)
}

func (e *BeepEngine) setPaused(paused bool) error {
	e.mu.Lock()
	ctrl := e.ctrl
	e.mu.Unlock()
	if ctrl == nil {
		return ErrNothingLoaded
	}

	e.out.Lock()
	ctrl.Paused = paused
	e.out.Unlock()

	e.mu.Lock()
	e.playing = !paused && !e.ended
	e.mu.Unlock()
	return nil
}

// Seek is synchronous for beep: the position is set under the speaker lock
func (e *BeepEngine) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.seekTo(seconds)
}

func (e *BeepEngine) SkipForward(seconds float64) error {
	pos, err := e.Position()
	if err != nil {
		return err
	}
	return e.seekTo(pos + seconds)
}

func (e *BeepEngine) SkipBackward(seconds float64) error {
	pos, err := e.Position()
	if err != nil {
		return err
	}
	return e.seekTo(pos - seconds)
}

func (e *BeepEngine) seekTo(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return ErrNothingLoaded
	}

	target := clamp(seconds, 0, e.durationLocked())
	sample := e.format.SampleRate.N(time.Duration(target * float64(time.Second)))
	if sample >= e.stream.Len() {
		sample = e.stream.Len() - 1
	}
	if sample < 0 {
		sample = 0
	}

	e.out.Lock()
	err := e.stream.Seek(sample)
	e.out.Unlock()
	return err
}

func (e *BeepEngine) NextPlaybackRate() (float64, error) {
	return e.applyRate(e.rates.Next())
}

func (e *BeepEngine) ResetPlaybackRate() (float64, error) {
	return e.applyRate(e.rates.Reset())
}

func (e *BeepEngine) applyRate(rate float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resampler != nil {
		e.out.Lock()
		e.resampler.SetRatio(e.baseRatio() * rate)
		e.out.Unlock()
	}
	return rate, nil
}

func (e *BeepEngine) baseRatio() float64 {
	if e.format.SampleRate == 0 {
		return 1
	}
	return float64(e.format.SampleRate) / float64(speakerRate)
}

func (e *BeepEngine) Rate() float64 {
	return e.rates.Current()
}

// Duration is known as soon as the decoder is open
func (e *BeepEngine) Duration(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return 0, ErrNothingLoaded
	}
	return e.durationLocked(), nil
}

func (e *BeepEngine) durationLocked() float64 {
	if e.stream == nil {
		return 0
	}
	return e.format.SampleRate.D(e.stream.Len()).Seconds()
}

func (e *BeepEngine) Position() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return 0, ErrNothingLoaded
	}
	e.out.Lock()
	pos := e.stream.Position()
	e.out.Unlock()
	return e.format.SampleRate.D(pos).Seconds(), nil
}

func (e *BeepEngine) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	if e.volume != nil {
		e.out.Lock()
		e.volume.Silent = muted
		e.out.Unlock()
	}
	return nil
}

func (e *BeepEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *BeepEngine) Ticks() <-chan float64 {
	return e.observer.ch
}

// Close stops output and closes the decoder
func (e *BeepEngine) Close() error {
	e.cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.outInit {
		e.out.Clear()
	}
	if e.stream != nil {
		err := e.stream.Close()
		e.stream = nil
		return err
	}
	return nil
}

func (e *BeepEngine) sample() (float64, bool) {
	if !e.IsPlaying() {
		return 0, false
	}
	pos, err := e.Position()
	if err != nil {
		return 0, false
	}
	return pos, true
}
