// Package config loads the demo's TOML configuration.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// ErrInvalid marks every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	appName    = "guidemo"
	configFile = "config.toml"
)

type Window struct {
	Title   string `toml:"title"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	HighDPI bool   `toml:"high_dpi"`
}

type GPU struct {
	Validation      bool   `toml:"validation"`
	PowerPreference string `toml:"power_preference"`
	PresentMode     string `toml:"present_mode"`
	MaxFrameLatency int    `toml:"max_frame_latency"`
}

type Render struct {
	// OnSurfaceError is "skip" (drop the frame and retry) or "fatal".
	OnSurfaceError string `toml:"on_surface_error"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Window Window `toml:"window"`
	GPU    GPU    `toml:"gpu"`
	Render Render `toml:"render"`
	Log    Log    `toml:"log"`
}

func Default() Config {
	return Config{
		Window: Window{
			Title:   "sdl2/imgui/vulkan sample",
			Width:   1280,
			Height:  720,
			HighDPI: true,
		},
		GPU: GPU{
			PowerPreference: "balanced",
			PresentMode:     "fifo",
			MaxFrameLatency: 2,
		},
		Render: Render{OnSurfaceError: "skip"},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// Load reads the configuration at path on top of the defaults. An empty path
// means the per-user default file, which may be absent.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrap(err, "config")
	}

	cfg, err = Parse(string(data))
	return cfg, errors.Wrapf(err, "config: %s", path)
}

// Parse decodes TOML text on top of the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "config: decode")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return cfg, errors.Mark(errors.Newf("config: unknown keys %s", strings.Join(keys, ", ")), ErrInvalid)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, errors.Newf(format, args...).Error())
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	check(oneOf(c.GPU.PowerPreference, "balanced", "low-power", "high-performance"), "unknown power_preference %q", c.GPU.PowerPreference)
	check(oneOf(c.GPU.PresentMode, "fifo", "mailbox", "immediate"), "unknown present_mode %q", c.GPU.PresentMode)
	check(c.GPU.MaxFrameLatency >= 1 && c.GPU.MaxFrameLatency <= 2, "max_frame_latency %d outside 1..2", c.GPU.MaxFrameLatency)
	check(oneOf(c.Render.OnSurfaceError, "skip", "fatal"), "unknown on_surface_error %q", c.Render.OnSurfaceError)
	check(oneOf(c.Log.Format, "text", "json"), "unknown log format %q", c.Log.Format)
	_, err := ParseLevel(c.Log.Level)
	check(err == nil, "unknown log level %q", c.Log.Level)

	if len(problems) == 0 {
		return nil
	}
	return errors.Mark(errors.Newf("config: %s", strings.Join(problems, "; ")), ErrInvalid)
}

// ParseLevel maps a level name onto slog.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, errors.Wrapf(err, "log level %q", name)
	}
	return level, nil
}

// DefaultPath is guidemo/config.toml under the XDG config directory.
func DefaultPath() string {
	return filepath.Join(configDir(), configFile)
}

func configDir() string {
	return filepath.Join(xdgOrFallback("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), appName)
}

func xdgOrFallback(xdg string, fallback string) string {
	dir := os.Getenv(xdg)
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return fallback
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
