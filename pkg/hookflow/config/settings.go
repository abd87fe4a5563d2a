package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
)

// ErrInvalidSettings indicates a setting outside its allowed values.
var ErrInvalidSettings = errors.New("invalid settings")

// Log formats accepted by Settings.LogFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Settings configures engines and the hookflow CLI.
type Settings struct {
	Name       string `yaml:"name" json:"name" env:"HOOKFLOW_NAME"`
	LogLevel   string `yaml:"log_level" json:"log_level" env:"HOOKFLOW_LOG_LEVEL"`
	LogFormat  string `yaml:"log_format" json:"log_format" env:"HOOKFLOW_LOG_FORMAT"`
	DebugTrace bool   `yaml:"debug_trace" json:"debug_trace" env:"HOOKFLOW_DEBUG_TRACE"`
	Metrics    bool   `yaml:"metrics" json:"metrics" env:"HOOKFLOW_METRICS"`
	Tracing    bool   `yaml:"tracing" json:"tracing" env:"HOOKFLOW_TRACING"`
	ExitHook   bool   `yaml:"exit_hook" json:"exit_hook" env:"HOOKFLOW_EXIT_HOOK"`

	Simulation Simulation `yaml:"simulation" json:"simulation"`
}

// Simulation sizes the simulated training loop.
type Simulation struct {
	Epochs    int `yaml:"epochs" json:"epochs" env:"HOOKFLOW_SIM_EPOCHS"`
	Batches   int `yaml:"batches" json:"batches" env:"HOOKFLOW_SIM_BATCHES"`
	EvalEvery int `yaml:"eval_every" json:"eval_every" env:"HOOKFLOW_SIM_EVAL_EVERY"`

	// Algorithms selects demo algorithms by name, in list order.
	// Empty means the full demo set.
	Algorithms []string `yaml:"algorithms" json:"algorithms" env:"HOOKFLOW_SIM_ALGORITHMS" envSeparator:","`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Name:      "hookflow",
		LogLevel:  "info",
		LogFormat: FormatText,
		ExitHook:  true,
		Simulation: Simulation{
			Epochs:    2,
			Batches:   3,
			EvalEvery: 1,
		},
	}
}

// ApplyEnv overrides settings from HOOKFLOW_* environment variables.
func (s *Settings) ApplyEnv() error {
	if err := env.Parse(s); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks enumerated and numeric fields.
func (s Settings) Validate() error {
	if _, err := parseLevel(s.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(s.LogFormat) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log_format %q (want text or json)", ErrInvalidSettings, s.LogFormat)
	}
	if s.Simulation.Epochs < 0 || s.Simulation.Batches < 0 || s.Simulation.EvalEvery < 0 {
		return fmt.Errorf("%w: simulation sizes must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Level returns the parsed log level. Invalid levels fall back to info.
func (s Settings) Level() slog.Level {
	level, err := parseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger builds a text or JSON logger writing to w at the configured level.
// A non-empty Name is attached as the "service" attribute.
func (s Settings) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.Level()}

	var handler slog.Handler
	if strings.EqualFold(s.LogFormat, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if s.Name != "" {
		logger = logger.With(slog.String("service", s.Name))
	}
	return logger
}

// Options converts the settings into engine options. logger may be nil.
func (s Settings) Options(logger *slog.Logger) []hookflow.Option {
	opts := []hookflow.Option{
		hookflow.WithLogger(logger),
		hookflow.WithDebugTrace(s.DebugTrace),
		hookflow.WithMetrics(s.Metrics),
		hookflow.WithTracing(s.Tracing),
	}
	if !s.ExitHook {
		opts = append(opts, hookflow.WithoutExitHook())
	}
	return opts
}

func parseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidSettings, name)
	}
	return level, nil
}
