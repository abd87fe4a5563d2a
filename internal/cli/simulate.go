package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/hookflow/internal/sim"
	"github.com/randalmurphal/hookflow/pkg/hookflow"
	"github.com/randalmurphal/hookflow/pkg/hookflow/config"
	"github.com/randalmurphal/hookflow/pkg/hookflow/shutdown"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Epochs     int
	Batches    int
	EvalEvery  int
	Algorithms []string
	Trace      bool
	Metrics    bool
	Tracing    bool
}

// simulateOutput is the JSON form of a simulation result.
type simulateOutput struct {
	EngineID     string           `json:"engine_id"`
	Epochs       int              `json:"epochs"`
	Steps        int              `json:"steps"`
	Evaluations  int              `json:"evaluations"`
	Events       int              `json:"events"`
	Applications int              `json:"applications"`
	Stopped      bool             `json:"stopped"`
	FinalLoss    float64          `json:"final_loss"`
	FinalLR      float64          `json:"final_lr"`
	Counts       map[string]int   `json:"counts"`
	Telemetry    *TelemetryReport `json:"telemetry,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated training loop",
		Long: `Run a simulated training loop through a hookflow engine.

The loop emits every lifecycle event in order with a set of demo algorithms
(nested loss scalers, scope trackers, a prioritized warmup, step decay) and
callbacks (an event counter and a loss threshold stopper). Flags override the
settings file and HOOKFLOW_* environment variables.

Example:
  hookflow simulate --epochs 3 --batches 5
  hookflow simulate --config hookflow.yaml --trace
  hookflow simulate --algorithms warmup,outer_scale,inner_scale
  hookflow simulate --metrics --tracing --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Epochs, "epochs", 0, "number of epochs (default from settings)")
	cmd.Flags().IntVar(&opts.Batches, "batches", 0, "batches per epoch (default from settings)")
	cmd.Flags().IntVar(&opts.EvalEvery, "eval-every", 0, "evaluate every N epochs, 0 disables (default from settings)")
	cmd.Flags().StringSliceVar(&opts.Algorithms, "algorithms", nil,
		fmt.Sprintf("demo algorithms in list order (known: %s)", strings.Join(sim.AlgorithmNames(), ", ")))
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the algorithm trace of every event")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "record OpenTelemetry metrics and report totals")
	cmd.Flags().BoolVar(&opts.Tracing, "tracing", false, "record OpenTelemetry spans and report the count")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts *SimulateOptions) error {
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}

	logger := settings.Logger(cmd.ErrOrStderr())
	out := cmd.OutOrStdout()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Open engines are closed by the exit hooks if a signal arrives mid-run.
	stop := shutdown.Default.HandleSignals(ctx)
	defer stop()

	tel := setupTelemetry(settings.Metrics, settings.Tracing)
	defer func() {
		if err := tel.shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	var loopOpts []sim.LoopOption
	if opts.Trace && opts.Format == "text" {
		loopOpts = append(loopOpts, sim.WithTraceHook(func(t *hookflow.Trace) {
			printTrace(out, t)
		}))
	}

	logger.Debug("simulation starting",
		slog.Int("epochs", settings.Simulation.Epochs),
		slog.Int("batches", settings.Simulation.Batches),
		slog.Int("eval_every", settings.Simulation.EvalEvery),
	)
	result, err := sim.Simulate(ctx, settings, logger, loopOpts...)
	if errors.Is(err, sim.ErrUnknownAlgorithm) {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	var report *TelemetryReport
	if tel.enabled() {
		r, err := tel.report(ctx)
		if err != nil {
			logger.Warn("telemetry collection failed", slog.String("error", err.Error()))
		}
		report = &r
	}

	output := toOutput(result, report)
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}
	printSummary(out, output)
	return nil
}

// loadSettings resolves settings: defaults, then file, then environment,
// then explicitly set flags.
func loadSettings(cmd *cobra.Command, opts *SimulateOptions) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, WrapExitError(ExitCommandError, "failed to load settings", err)
	}

	flags := cmd.Flags()
	if flags.Changed("epochs") {
		settings.Simulation.Epochs = opts.Epochs
	}
	if flags.Changed("batches") {
		settings.Simulation.Batches = opts.Batches
	}
	if flags.Changed("eval-every") {
		settings.Simulation.EvalEvery = opts.EvalEvery
	}
	if flags.Changed("algorithms") {
		settings.Simulation.Algorithms = opts.Algorithms
	}
	if opts.Trace {
		settings.DebugTrace = true
	}
	if opts.Metrics {
		settings.Metrics = true
	}
	if opts.Tracing {
		settings.Tracing = true
	}
	if opts.Verbose {
		settings.LogLevel = "debug"
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	return settings, nil
}

func toOutput(r sim.Result, report *TelemetryReport) simulateOutput {
	counts := make(map[string]int, len(r.Counts))
	for e, n := range r.Counts {
		counts[e.String()] = n
	}
	return simulateOutput{
		EngineID:     r.EngineID,
		Epochs:       r.Epochs,
		Steps:        r.Steps,
		Evaluations:  r.Evaluations,
		Events:       r.Events,
		Applications: r.Applications,
		Stopped:      r.Stopped,
		FinalLoss:    r.FinalLoss,
		FinalLR:      r.FinalLR,
		Counts:       counts,
		Telemetry:    report,
	}
}

func printTrace(w io.Writer, t *hookflow.Trace) {
	if t.Len() == 0 {
		fmt.Fprintf(w, "%-20s -\n", t.Event())
		return
	}
	parts := make([]string, 0, t.Len())
	for _, e := range t.Entries() {
		if e.Ran {
			parts = append(parts, fmt.Sprintf("%s=%d", e.Name, e.Order))
		} else {
			parts = append(parts, e.Name+"=skip")
		}
	}
	fmt.Fprintf(w, "%-20s %s\n", t.Event(), strings.Join(parts, " "))
}

func printSummary(w io.Writer, o simulateOutput) {
	fmt.Fprintf(w, "engine:        %s\n", o.EngineID)
	fmt.Fprintf(w, "epochs:        %d\n", o.Epochs)
	fmt.Fprintf(w, "steps:         %d\n", o.Steps)
	fmt.Fprintf(w, "evaluations:   %d\n", o.Evaluations)
	fmt.Fprintf(w, "events:        %d\n", o.Events)
	fmt.Fprintf(w, "applications:  %d\n", o.Applications)
	fmt.Fprintf(w, "stopped early: %t\n", o.Stopped)
	fmt.Fprintf(w, "final loss:    %.4f\n", o.FinalLoss)
	fmt.Fprintf(w, "final lr:      %.4f\n", o.FinalLR)
	if o.Telemetry != nil {
		fmt.Fprintf(w, "telemetry:     dispatches=%d applications=%d spans=%d\n",
			o.Telemetry.Dispatches, o.Telemetry.Applications, o.Telemetry.Spans)
	}
}
