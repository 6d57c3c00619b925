package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"book":   "book.path",
	"engine": "player.engine",
	"mode":   "player.mode",
	"assets": "player.assets_dir",
	"log":    "log.file",
}

// Flags returns the command line flag set understood by Load
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("nibble", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to config.toml")
	fs.StringP("book", "b", "", "book file path or URL (default: bundled demo book)")
	fs.StringP("engine", "e", "", "playback engine: mpv or beep")
	fs.StringP("mode", "m", "", "source mode: local or remote")
	fs.String("assets", "", "directory holding bundled section audio")
	fs.String("log", "", "log file path")
	return fs
}

// Load reads config.toml (if present), environment and flags into a Config
func Load(fs afero.Fs, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("toml")
	v.SetEnvPrefix("NIBBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := ""
	if flags != nil {
		explicit, _ = flags.GetString("config")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME/.config/nibble/")
		v.AddConfigPath(".")
	}

	setDefaults(v, DefaultConfig())

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	rates, err := parseRates(v.Get("player.rates"))
	if err != nil {
		return nil, err
	}
	v.Set("player.rates", rates)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("player.engine", defaults.Player.Engine)
	v.SetDefault("player.mode", defaults.Player.Mode)
	v.SetDefault("player.assets_dir", defaults.Player.AssetsDir)
	v.SetDefault("player.rates", defaults.Player.Rates)
	v.SetDefault("player.skip_forward", defaults.Player.SkipForward)
	v.SetDefault("player.skip_backward", defaults.Player.SkipBackward)
	v.SetDefault("player.tick_interval", defaults.Player.TickInterval)
	v.SetDefault("player.end_tolerance", defaults.Player.EndTolerance)
	v.SetDefault("ui.progress_bar_width", defaults.UI.ProgressBarWidth)
	v.SetDefault("remote.enabled", defaults.Remote.Enabled)
	v.SetDefault("remote.name", defaults.Remote.Name)
	v.SetDefault("device.monitor", defaults.Device.Monitor)
	v.SetDefault("device.check_interval", defaults.Device.CheckInterval)
	v.SetDefault("book.path", defaults.Book.Path)
	v.SetDefault("log.file", defaults.Log.File)
}

// parseRates accepts a toml array or a comma separated string ("0.5,1,2" from env)
func parseRates(raw any) ([]float64, error) {
	var items []any
	switch v := raw.(type) {
	case []float64:
		return append([]float64(nil), v...), nil
	case []any:
		items = v
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
	default:
		strs, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid player.rates: %w", err)
		}
		for _, s := range strs {
			items = append(items, s)
		}
	}

	rates := make([]float64, 0, len(items))
	for _, item := range items {
		r, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, fmt.Errorf("invalid player.rates entry %v: %w", item, err)
		}
		rates = append(rates, r)
	}
	return rates, nil
}
