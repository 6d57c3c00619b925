package device

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cast"
)

func platformProbe() ProbeFunc {
	switch runtime.GOOS {
	case "darwin":
		return probeSystemProfiler
	case "linux":
		if _, err := exec.LookPath("pactl"); err == nil {
			return probePactl
		}
	}
	return nil
}

func probeSystemProfiler(ctx context.Context) ([]Output, error) {
	output, err := exec.CommandContext(ctx, "system_profiler", "SPAudioDataType", "-json").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get audio devices: %w", err)
	}
	return parseSystemProfiler(output)
}

func probePactl(ctx context.Context) ([]Output, error) {
	sinks, err := exec.CommandContext(ctx, "pactl", "--format=json", "list", "sinks").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list sinks: %w", err)
	}
	def, err := exec.CommandContext(ctx, "pactl", "get-default-sink").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get default sink: %w", err)
	}
	return parsePactlSinks(sinks, strings.TrimSpace(string(def)))
}

// parseSystemProfiler reads the output of `system_profiler SPAudioDataType -json`
func parseSystemProfiler(data []byte) ([]Output, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var outputs []Output
	for _, entry := range cast.ToSlice(root["SPAudioDataType"]) {
		for _, item := range cast.ToSlice(cast.ToStringMap(entry)["_items"]) {
			fields := cast.ToStringMap(item)

			name := firstString(fields, "_name", "name")
			if name == "" {
				continue
			}

			_, isDefault := truthy(fields,
				"coreaudio_device_is_default_output",
				"coreaudio_default_audio_output_device",
				"coreaudio_default_output_device",
				"default_output_device",
			)
			found, connected := truthy(fields,
				"coreaudio_device_is_alive",
				"device_is_alive",
				"device_is_connected",
				"connected",
			)
			if !found {
				connected = true
			}

			outputs = append(outputs, Output{
				Name: name,
				Transport: firstString(fields,
					"coreaudio_device_transport",
					"coreaudio_transport",
					"transport",
				),
				Default:   isDefault,
				Connected: connected,
			})
		}
	}
	return outputs, nil
}

// parsePactlSinks reads the output of `pactl --format=json list sinks`
func parsePactlSinks(data []byte, defaultSink string) ([]Output, error) {
	var sinks []map[string]any
	if err := json.Unmarshal(data, &sinks); err != nil {
		return nil, err
	}

	outputs := make([]Output, 0, len(sinks))
	for _, sink := range sinks {
		props := cast.ToStringMap(sink["properties"])
		id := cast.ToString(sink["name"])
		name := firstString(sink, "description")
		if name == "" {
			name = id
		}
		outputs = append(outputs, Output{
			Name:      name,
			Transport: firstString(props, "device.bus"),
			Default:   id == defaultSink,
			Connected: !strings.EqualFold(cast.ToString(sink["state"]), "unavailable"),
		})
	}
	return outputs, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(cast.ToString(m[key])); s != "" {
			return s
		}
	}
	return ""
}

// truthy reports whether any key is present and, for the first one found, its boolean value.
// system_profiler uses values like "spaudio_yes".
func truthy(m map[string]any, keys ...string) (found bool, value bool) {
	for _, key := range keys {
		val, ok := m[key]
		if !ok {
			continue
		}
		if s, isString := val.(string); isString {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "yes", "on", "spaudio_yes", "enabled":
				return true, true
			case "no", "off", "spaudio_no", "disabled":
				return true, false
			}
		}
		if b, err := cast.ToBoolE(val); err == nil {
			return true, b
		}
	}
	return false, false
}
