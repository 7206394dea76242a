// Package config loads engine configuration from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/plus3/scenery/ecs"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Window    WindowConfig   `toml:"window" yaml:"window"`
	Engine    EngineConfig   `toml:"engine" yaml:"engine"`
	Workloads WorkloadConfig `toml:"workloads" yaml:"workloads"`
	Logging   LoggingConfig  `toml:"logging" yaml:"logging"`
	Debug     DebugConfig    `toml:"debug" yaml:"debug"`
}

type WindowConfig struct {
	Title     string `toml:"title" yaml:"title"`
	Width     int    `toml:"width" yaml:"width"`
	Height    int    `toml:"height" yaml:"height"`
	Resizable bool   `toml:"resizable" yaml:"resizable"`
}

type EngineConfig struct {
	// UpdateWorkers bounds concurrent component updates per scene. Zero means unbounded.
	UpdateWorkers int `toml:"update_workers" yaml:"update_workers"`
	// FrameInterval is the tick of headless runs.
	FrameInterval Duration `toml:"frame_interval" yaml:"frame_interval"`
}

type WorkloadConfig struct {
	Workers          int `toml:"workers" yaml:"workers"`
	RequestBuffer    int `toml:"request_buffer" yaml:"request_buffer"`
	CompletionBuffer int `toml:"completion_buffer" yaml:"completion_buffer"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error or off.
	Level string `toml:"level" yaml:"level"`
}

type DebugConfig struct {
	Enabled         bool `toml:"enabled" yaml:"enabled"`
	EntitiesPerPage int  `toml:"entities_per_page" yaml:"entities_per_page"`
	HistoryFrames   int  `toml:"history_frames" yaml:"history_frames"`
}

// Duration is a time.Duration written as a string such as "16ms" in both formats.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	return d.UnmarshalText([]byte(node.Value))
}

var (
	ErrUnknownFormat = errors.New("config: unknown file format")
	ErrInvalid       = errors.New("config: invalid")
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     "scenery",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Engine: EngineConfig{
			UpdateWorkers: 0,
			FrameInterval: Duration(time.Second / 60),
		},
		Workloads: WorkloadConfig{
			Workers:          4,
			RequestBuffer:    64,
			CompletionBuffer: 64,
		},
		Logging: LoggingConfig{Level: "info"},
		Debug: DebugConfig{
			Enabled:         true,
			EntitiesPerPage: 50,
			HistoryFrames:   120,
		},
	}
}

// Load reads path over the defaults. The format is chosen by extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("%w (%s)", err, path)
	}
	return cfg, nil
}

// Parse decodes data over the defaults. ext selects the format the same way Load does.
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decoding toml: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: decoding yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg in the format selected by ext.
func Encode(cfg Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.Marshal(cfg)
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height))
	}
	if c.Engine.UpdateWorkers < 0 {
		errs = append(errs, fmt.Errorf("%w: engine.update_workers %d", ErrInvalid, c.Engine.UpdateWorkers))
	}
	if c.Engine.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: engine.frame_interval %s", ErrInvalid, c.Engine.FrameInterval.Std()))
	}
	if c.Workloads.Workers < 0 || c.Workloads.RequestBuffer < 0 || c.Workloads.CompletionBuffer < 0 {
		errs = append(errs, fmt.Errorf("%w: workloads must not be negative", ErrInvalid))
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Debug.EntitiesPerPage < 0 || c.Debug.HistoryFrames < 0 {
		errs = append(errs, fmt.Errorf("%w: debug sizes must not be negative", ErrInvalid))
	}
	return errors.Join(errs...)
}

// LogOff is above every level slog emits, so a handler at this level drops everything.
const LogOff = slog.Level(100)

// SlogLevel returns the configured level. An invalid level falls back to info.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off", "none":
		return LogOff, nil
	}
	return 0, fmt.Errorf("%w: logging.level %q", ErrInvalid, s)
}

// EngineOptions converts the engine and workload sections. The renderer fills Text and Device.
func (c Config) EngineOptions() ecs.EngineOptions {
	return ecs.EngineOptions{
		UpdateWorkers: c.Engine.UpdateWorkers,
		Lane: ecs.LaneOptions{
			Workers:          c.Workloads.Workers,
			RequestBuffer:    c.Workloads.RequestBuffer,
			CompletionBuffer: c.Workloads.CompletionBuffer,
		},
	}
}

// NewLogger returns a text logger writing to stderr at the configured level.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
