// Command guidemo opens an SDL2 window and draws a Dear ImGui panel into it
// with Vulkan every frame.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/guidemo/app"
	"github.com/vkngwrapper/guidemo/config"
	"github.com/vkngwrapper/guidemo/gpu"
	"github.com/vkngwrapper/guidemo/gui"
	"github.com/vkngwrapper/guidemo/platform"
	"github.com/vkngwrapper/guidemo/renderer"
)

func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("session", uuid.New().String()), nil
}

func loadConfig() (config.Config, error) {
	configPath := flag.String("config", "", "path to a TOML config file (default: per-user config dir)")
	validation := flag.Bool("validation", false, "enable the Vulkan validation layer")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "validation":
			cfg.GPU.Validation = *validation
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	return cfg, errors.Wrap(cfg.Validate(), "command line")
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	power, err := gpu.ParsePowerPreference(cfg.GPU.PowerPreference)
	if err != nil {
		return err
	}
	policy, err := app.ParseSurfacePolicy(cfg.Render.OnSurfaceError)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	window, err := platform.NewWindow(platform.Options{
		Title:   cfg.Window.Title,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
		HighDPI: cfg.Window.HighDPI,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer window.Release()

	width, height := window.InnerSize()
	gpuContext, err := gpu.New(ctx, window, width, height, gpu.Options{
		ApplicationName: cfg.Window.Title,
		Validation:      cfg.GPU.Validation,
		PowerPreference: power,
		PresentMode:     cfg.GPU.PresentMode,
		MaxFrameLatency: cfg.GPU.MaxFrameLatency,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer gpuContext.Destroy()

	frameRenderer, err := renderer.New(gpuContext)
	if err != nil {
		return err
	}
	defer frameRenderer.Destroy()

	adapter := gui.New(window, gui.Options{
		PixelsPerPoint: window.ScaleFactor(),
		Logger:         logger,
	})
	defer adapter.Destroy()

	loop := app.New(window, adapter, frameRenderer, gui.Widgets{}, app.Options{
		SurfaceErrors: policy,
		Transient: func(err error) bool {
			return errors.Is(err, gpu.ErrSurfaceOutdated)
		},
		Logger: logger,
	})
	logger.Info("starting", "width", width, "height", height, "scale", window.ScaleFactor())

	err = loop.Run(ctx, window)
	stats := frameRenderer.Stats()
	logger.Info("stopped", "window", window.Title(), "frames", stats.Frames,
		"surface_lost", stats.Skipped, "last_frame", stats.LastFrame)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	runtime.LockOSThread()

	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
