package mpvplayer

import (
	"fmt"

	"github.com/wildeyedskies/go-mpv/mpv"
)

// Mpvplayer is a thin typed layer over the libmpv handle
type Mpvplayer struct {
	*mpv.Mpv
}

// CreateMPVInstance creates an audio-only mpv handle that stays open at end of file,
// so the final position can still be read when a section finishes.
func CreateMPVInstance() (*Mpvplayer, error) {
	m := mpv.Create()

	m.SetOptionString("audio-display", "no")
	m.SetOptionString("video", "no")
	m.SetOptionString("idle", "yes")
	m.SetOptionString("keep-open", "yes")
	m.SetOptionString("force-seekable", "yes")
	m.SetOptionString("terminal", "no")

	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, fmt.Errorf("error initializing mpv: %w", err)
	}
	return &Mpvplayer{Mpv: m}, nil
}

// Load replaces the playlist with url
func (m *Mpvplayer) Load(url string) error {
	return m.Command([]string{"loadfile", url, "replace"})
}

func (m *Mpvplayer) GetProgress() (float64, error) {
	return m.getDouble("time-pos")
}

func (m *Mpvplayer) GetDuration() (float64, error) {
	return m.getDouble("duration")
}

// IsLoaded reports whether mpv has a file open
func (m *Mpvplayer) IsLoaded() (bool, error) {
	idle, err := m.getFlag("idle-active")
	return !idle, err
}

// IsEOF reports whether playback reached the end of the file
func (m *Mpvplayer) IsEOF() (bool, error) {
	return m.getFlag("eof-reached")
}

func (m *Mpvplayer) SetPaused(paused bool) error {
	return m.SetProperty("pause", mpv.FORMAT_FLAG, paused)
}

func (m *Mpvplayer) SetSpeed(rate float64) error {
	return m.SetProperty("speed", mpv.FORMAT_DOUBLE, rate)
}

func (m *Mpvplayer) SetMute(muted bool) error {
	return m.SetProperty("mute", mpv.FORMAT_FLAG, muted)
}

// SeekAbsolute jumps to secs from the start of the file
func (m *Mpvplayer) SeekAbsolute(secs float64) error {
	return m.Command([]string{"seek", fmt.Sprintf("%0.1f", secs), "absolute"})
}

// Quit stops mpv and frees the handle
func (m *Mpvplayer) Quit() {
	m.Command([]string{"quit"})
	m.TerminateDestroy()
}

func (m *Mpvplayer) getDouble(name string) (float64, error) {
	v, err := m.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: unexpected type %T", name, v)
	}
	return f, nil
}

func (m *Mpvplayer) getFlag(name string) (bool, error) {
	v, err := m.GetProperty(name, mpv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("property %s: unexpected type %T", name, v)
	}
	return b, nil
}
