package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.GPU.MaxFrameLatency)
	assert.Equal(t, "skip", cfg.Render.OnSurfaceError)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(`
[window]
width = 800
height = 600

[gpu]
present_mode = "mailbox"
validation = true
`)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "mailbox", cfg.GPU.PresentMode)
	assert.True(t, cfg.GPU.Validation)
	assert.Equal(t, Default().Window.Title, cfg.Window.Title)
}

func TestParseRejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"unknown key", "[window]\ncolour = \"red\"\n"},
		{"unknown section", "[audio]\nvolume = 3\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"latency above two", "[gpu]\nmax_frame_latency = 3\n"},
		{"latency zero", "[gpu]\nmax_frame_latency = 0\n"},
		{"present mode", "[gpu]\npresent_mode = \"vsync\"\n"},
		{"power", "[gpu]\npower_preference = \"turbo\"\n"},
		{"surface policy", "[render]\non_surface_error = \"retry\"\n"},
		{"log level", "[log]\nlevel = \"chatty\"\n"},
		{"log format", "[log]\nformat = \"xml\"\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "%v", err)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse("[window\n")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load("")
	require.NoError(t, err, "missing default file means defaults")
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err, "missing explicit file is an error")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guidemo"), 0o700))
	require.NoError(t, os.WriteFile(DefaultPath(), []byte("[log]\nlevel = \"debug\"\n"), 0o600))
	assert.Equal(t, filepath.Join(dir, "guidemo", "config.toml"), DefaultPath())

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
