package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrSessionActivation is returned when no audio output can be found.
// Callers log it and keep playing.
var ErrSessionActivation = errors.New("audio session activation failed")

type OutputType int

const (
	OutputUnknown    OutputType = iota
	OutputBuiltIn               // Built-in speakers
	OutputBluetooth             // Bluetooth audio device
	OutputUSB                   // USB audio device
	OutputHDMI                  // HDMI audio
	OutputHeadphones            // Wired headphones
)

func (t OutputType) String() string {
	switch t {
	case OutputBuiltIn:
		return "built-in"
	case OutputBluetooth:
		return "bluetooth"
	case OutputUSB:
		return "usb"
	case OutputHDMI:
		return "hdmi"
	case OutputHeadphones:
		return "headphones"
	}
	return "unknown"
}

// External reports whether the output can be unplugged or disconnected
func (t OutputType) External() bool {
	return t == OutputBluetooth || t == OutputUSB || t == OutputHDMI || t == OutputHeadphones
}

// Output is one audio output reported by the platform
type Output struct {
	Name      string
	Transport string
	Default   bool
	Connected bool
}

func (o Output) Type() OutputType {
	return detectOutputType(o.Name, o.Transport)
}

// ProbeFunc lists the current audio outputs
type ProbeFunc func(ctx context.Context) ([]Output, error)

// Session activates audio output and watches for external outputs going away,
// the way headphones being unplugged pause a phone
type Session struct {
	probe        ProbeFunc
	interval     time.Duration
	onDisconnect func()

	mu       sync.Mutex
	current  *Output
	external bool
}

// NewSession creates a session using the platform probe
func NewSession(interval time.Duration, onDisconnect func()) *Session {
	return NewSessionWithProbe(platformProbe(), interval, onDisconnect)
}

// NewSessionWithProbe creates a session with a custom probe; a nil probe disables monitoring
func NewSessionWithProbe(probe ProbeFunc, interval time.Duration, onDisconnect func()) *Session {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Session{probe: probe, interval: interval, onDisconnect: onDisconnect}
}

// Activate checks that an output is available and records it as current
func (s *Session) Activate(ctx context.Context) error {
	if s.probe == nil {
		return fmt.Errorf("%w: unsupported platform", ErrSessionActivation)
	}
	outputs, err := s.probe(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionActivation, err)
	}
	out := selectCurrentOutput(outputs)
	if out == nil {
		return fmt.Errorf("%w: no audio output", ErrSessionActivation)
	}

	s.mu.Lock()
	s.current = out
	s.external = out.Type().External()
	s.mu.Unlock()
	log.Printf("Audio output: %s (type: %v)", out.Name, out.Type())
	return nil
}

// Current returns the output seen by the last probe
func (s *Session) Current() (Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Output{}, false
	}
	return *s.current, true
}

// Monitor probes periodically until ctx is done
func (s *Session) Monitor(ctx context.Context) {
	if s.probe == nil {
		log.Println("Audio monitor disabled: unsupported platform")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			outputs, err := s.probe(ctx)
			if err != nil {
				continue
			}
			if s.observe(outputs) && s.onDisconnect != nil {
				s.onDisconnect()
			}
		case <-ctx.Done():
			log.Println("Audio monitor stopped")
			return
		}
	}
}

// observe records the latest outputs and reports whether an external output disconnected
func (s *Session) observe(outputs []Output) bool {
	current := selectCurrentOutput(outputs)
	if current == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, wasExternal := s.current, s.external
	s.current = current
	s.external = current.Type().External()

	if last == nil || !wasExternal {
		return false
	}
	// switched from an external output to a built-in one
	if !s.external {
		return true
	}
	// still external but the previous device is gone
	if !nameMatches(current.Name, last.Name) && !connectedExternal(outputs)[normalizeName(last.Name)] {
		return true
	}
	return false
}

func selectCurrentOutput(outputs []Output) *Output {
	var fallback *Output

	for i := range outputs {
		out := &outputs[i]
		if out.Default && out.Connected {
			return out
		}
		if out.Default && fallback == nil {
			fallback = out
			continue
		}
		if fallback == nil && out.Connected {
			fallback = out
		}
	}

	return fallback
}

func connectedExternal(outputs []Output) map[string]bool {
	names := make(map[string]bool)
	for _, out := range outputs {
		if out.Connected && out.Type().External() {
			names[normalizeName(out.Name)] = true
		}
	}
	return names
}

var (
	bluetoothNames = []string{"bluetooth", "airpods", "beats", "sony wh", "sony wf", "bose",
		"jabra", "sennheiser", "jbl", "marshall", "b&o", "bang & olufsen", "bluez"}
	builtInNames   = []string{"built-in", "internal", "macbook", "imac", "mac mini", "mac pro", "speakers", "analog stereo"}
	usbNames       = []string{"usb", "dac", "audio interface"}
	hdmiNames      = []string{"hdmi", "displayport", "display audio"}
	headphoneNames = []string{"headphone", "headset"}
)

func detectOutputType(name, transport string) OutputType {
	switch strings.ToLower(strings.TrimSpace(transport)) {
	case "bluetooth", "wireless", "ble":
		return OutputBluetooth
	case "usb", "usb audio", "usb audio device", "usbaudio":
		return OutputUSB
	case "hdmi", "displayport", "display port", "thunderbolt":
		return OutputHDMI
	case "built-in", "internal", "pci":
		return OutputBuiltIn
	case "headphone", "headset", "line out", "3.5mm", "analog":
		return OutputHeadphones
	}

	nameLower := normalizeName(name)
	switch {
	case containsAny(nameLower, bluetoothNames):
		return OutputBluetooth
	case containsAny(nameLower, usbNames):
		return OutputUSB
	case containsAny(nameLower, hdmiNames):
		return OutputHDMI
	case containsAny(nameLower, headphoneNames):
		return OutputHeadphones
	case containsAny(nameLower, builtInNames):
		return OutputBuiltIn
	}
	return OutputUnknown
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nameMatches(a, b string) bool {
	a, b = normalizeName(a), normalizeName(b)
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
