package remote

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/yhkl-dev/nibble/sequencer"
)

const (
	dbusTrackIDPrefix = "/nibble/Section/"
	noTrackObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

var (
	_ types.OrgMprisMediaPlayer2Adapter       = (*MPRISHandler)(nil)
	_ types.OrgMprisMediaPlayer2PlayerAdapter = (*MPRISHandler)(nil)
)

var (
	errNotSupported   = errors.New("not supported")
	errAlreadyPlaying = errors.New("already playing")
	errAlreadyPaused  = errors.New("already paused")
	errNoSection      = errors.New("no section loaded")
)

// Controller is the part of the store the remote surface drives
type Controller interface {
	Send(a sequencer.Action)
	State() sequencer.State
}

// MPRISHandler exposes transport commands and now-playing metadata over D-Bus
type MPRISHandler struct {
	// Function called if the player is requested to quit through MPRIS.
	// Should start shutdown asynchronously and return immediately.
	OnQuit func() error

	// Current playback rate, reported through the Rate property
	RateLookup func() float64

	playerName string
	ctl        Controller
	minRate    float64
	maxRate    float64
	s          *server.Server
	evt        *events.EventHandler

	mu           sync.Mutex
	connErr      error
	curTrackPath string // empty for no section
	last         sequencer.State
}

// NewMPRISHandler creates a handler for ctl; rates bound the reported rate range
func NewMPRISHandler(playerName string, ctl Controller, rates []float64) *MPRISHandler {
	m := &MPRISHandler{
		playerName: playerName,
		ctl:        ctl,
		minRate:    1,
		maxRate:    1,
		connErr:    errors.New("not started"),
	}
	for i, r := range rates {
		if i == 0 || r < m.minRate {
			m.minRate = r
		}
		if i == 0 || r > m.maxRate {
			m.maxRate = r
		}
	}
	m.s = server.NewServer(playerName, m, m)
	m.evt = events.NewEventHandler(m.s)
	return m
}

// Start begins listening for MPRIS requests
func (m *MPRISHandler) Start() {
	m.setConnErr(nil)
	go func() {
		// exits early with err if unable to establish D-Bus connection
		if err := m.s.Listen(); err != nil {
			log.Printf("MPRIS unavailable: %v", err)
			m.setConnErr(err)
		}
	}()
}

// Shutdown stops listening and releases D-Bus resources
func (m *MPRISHandler) Shutdown() {
	if m.connected() {
		m.s.Stop()
		m.setConnErr(errors.New("stopped"))
	}
}

func (m *MPRISHandler) setConnErr(err error) {
	m.mu.Lock()
	m.connErr = err
	m.mu.Unlock()
}

func (m *MPRISHandler) connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connErr == nil
}

// Update publishes property changes for a new state. It is registered as a store subscriber.
func (m *MPRISHandler) Update(st sequencer.State) {
	m.mu.Lock()
	last := m.last
	m.last = st
	sectionChanged := st.Generation != last.Generation
	if sectionChanged {
		if st.Section.Number == 0 {
			m.curTrackPath = ""
		} else {
			m.curTrackPath = dbusTrackIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
		}
	}
	connected := m.connErr == nil
	m.mu.Unlock()

	if !connected {
		return
	}
	if sectionChanged || st.Duration != last.Duration {
		m.evt.Player.OnTitle()
	}
	if st.IsPaused != last.IsPaused {
		m.evt.Player.OnPlayPause()
	}
	if st.IsSoundOn != last.IsSoundOn {
		m.evt.Player.OnVolume()
	}
	if last.IsTimelineEditing && !st.IsTimelineEditing {
		m.evt.Player.OnSeek(secondsToMicroseconds(st.CurrentTime))
	}
}

func (m *MPRISHandler) trackPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curTrackPath
}

// OrgMprisMediaPlayer2Adapter implementation

func (m *MPRISHandler) Identity() (string, error) {
	return m.playerName, nil
}

func (m *MPRISHandler) CanQuit() (bool, error) {
	return m.OnQuit != nil, nil
}

func (m *MPRISHandler) Quit() error {
	if m.OnQuit != nil {
		return m.OnQuit()
	}
	return errors.New("no quit handler added")
}

func (m *MPRISHandler) CanRaise() (bool, error) {
	return false, nil
}

func (m *MPRISHandler) Raise() error {
	return errNotSupported
}

func (m *MPRISHandler) HasTrackList() (bool, error) {
	return false, nil
}

func (m *MPRISHandler) SupportedUriSchemes() ([]string, error) {
	return nil, nil
}

func (m *MPRISHandler) SupportedMimeTypes() ([]string, error) {
	return nil, nil
}

// OrgMprisMediaPlayer2PlayerAdapter implementation

func (m *MPRISHandler) Next() error {
	m.ctl.Send(sequencer.NextTapped{})
	return nil
}

func (m *MPRISHandler) Previous() error {
	m.ctl.Send(sequencer.PreviousTapped{})
	return nil
}

// Pause fails when playback is already paused
func (m *MPRISHandler) Pause() error {
	if m.ctl.State().IsPaused {
		return errAlreadyPaused
	}
	m.ctl.Send(sequencer.Pause{})
	return nil
}

func (m *MPRISHandler) PlayPause() error {
	m.ctl.Send(sequencer.PauseTapped{})
	return nil
}

// Stop pauses; an audio book keeps its place
func (m *MPRISHandler) Stop() error {
	m.ctl.Send(sequencer.Pause{})
	return nil
}

// Play fails when playback is already running
func (m *MPRISHandler) Play() error {
	if !m.ctl.State().IsPaused {
		return errAlreadyPlaying
	}
	m.ctl.Send(sequencer.Play{})
	return nil
}

func (m *MPRISHandler) Seek(offset types.Microseconds) error {
	st := m.ctl.State()
	if st.Section.Number == 0 {
		return errNoSection
	}
	// MPRIS seek command is relative to current position
	m.ctl.Send(sequencer.SeekTo{Seconds: st.CurrentTime + microsecondsToSeconds(offset)})
	return nil
}

func (m *MPRISHandler) SetPosition(trackId string, position types.Microseconds) error {
	if path := m.trackPath(); path != "" && path == trackId {
		m.ctl.Send(sequencer.SeekTo{Seconds: microsecondsToSeconds(position)})
	}
	return nil
}

func (m *MPRISHandler) OpenUri(uri string) error {
	return errNotSupported
}

func (m *MPRISHandler) PlaybackStatus() (types.PlaybackStatus, error) {
	st := m.ctl.State()
	switch {
	case st.Section.Number == 0:
		return types.PlaybackStatusStopped, nil
	case st.IsPaused:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusPlaying, nil
}

func (m *MPRISHandler) Rate() (float64, error) {
	if m.RateLookup == nil {
		return 1, nil
	}
	return m.RateLookup(), nil
}

// SetRate is unsupported; speed only cycles through the configured list
func (m *MPRISHandler) SetRate(float64) error {
	return errNotSupported
}

func (m *MPRISHandler) Metadata() (types.Metadata, error) {
	st := m.ctl.State()
	trackObjPath := noTrackObjectPath
	if path := m.trackPath(); path != "" {
		trackObjPath = path
	}
	return types.Metadata{
		TrackId:     dbus.ObjectPath(trackObjPath),
		Length:      secondsToMicroseconds(st.Duration),
		Title:       st.Section.Title,
		Album:       st.Book.Name,
		TrackNumber: st.Section.Number,
		ArtUrl:      artURL(st.Book.Cover),
	}, nil
}

// artURL turns a cover reference into a URL; bare asset names have none
func artURL(cover string) string {
	switch {
	case cover == "":
		return ""
	case strings.HasPrefix(cover, "http://"), strings.HasPrefix(cover, "https://"), strings.HasPrefix(cover, "file://"):
		return cover
	case filepath.IsAbs(cover):
		return "file://" + cover
	}
	return ""
}

func (m *MPRISHandler) Volume() (float64, error) {
	if m.ctl.State().IsSoundOn {
		return 1, nil
	}
	return 0, nil
}

// SetVolume maps to the sound mode: zero mutes, anything else unmutes
func (m *MPRISHandler) SetVolume(v float64) error {
	m.ctl.Send(sequencer.SetSoundMode{On: v > 0})
	return nil
}

func (m *MPRISHandler) Position() (int64, error) {
	return int64(secondsToMicroseconds(m.ctl.State().CurrentTime)), nil
}

func (m *MPRISHandler) MinimumRate() (float64, error) {
	return m.minRate, nil
}

func (m *MPRISHandler) MaximumRate() (float64, error) {
	return m.maxRate, nil
}

func (m *MPRISHandler) CanGoNext() (bool, error) {
	st := m.ctl.State()
	return st.Section.Number != 0 && !st.IsLastSection(), nil
}

func (m *MPRISHandler) CanGoPrevious() (bool, error) {
	st := m.ctl.State()
	return st.Section.Number != 0 && !st.IsFirstSection(), nil
}

func (m *MPRISHandler) CanPlay() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanPause() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanSeek() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanControl() (bool, error) {
	return true, nil
}

func microsecondsToSeconds(m types.Microseconds) float64 {
	return float64(m) / 1_000_000
}

func secondsToMicroseconds(s float64) types.Microseconds {
	return types.Microseconds(s * 1_000_000)
}
