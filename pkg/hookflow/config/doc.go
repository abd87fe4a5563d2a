/*
Package config loads engine settings from files and the environment.

# Overview

Settings collects the knobs a training program usually wants to control
without recompiling: logging, debug traces, metrics, tracing, the process-exit
hook, and the size of the simulated loop used by the hookflow CLI.

# Basic Usage

Load a file, overlay the environment, then build engine options:

	s, err := config.FromFile("hookflow.yaml")
	if err != nil {
	    return err
	}
	if err := s.ApplyEnv(); err != nil {
	    return err
	}

	engine, err := hookflow.New(state, s.Options(s.Logger(os.Stderr))...)

# File Formats

FromFile picks the parser by extension: .yaml and .yml use gopkg.in/yaml.v3,
.json uses encoding/json. Missing keys keep the values from Default.

# Environment

ApplyEnv overrides fields whose HOOKFLOW_* variable is set:

	HOOKFLOW_NAME            service name attached to every log line
	HOOKFLOW_LOG_LEVEL       debug, info, warn, error
	HOOKFLOW_LOG_FORMAT      text, json
	HOOKFLOW_DEBUG_TRACE     log every dispatch trace
	HOOKFLOW_METRICS         enable OpenTelemetry metrics
	HOOKFLOW_TRACING         enable OpenTelemetry spans
	HOOKFLOW_EXIT_HOOK       register engines with the process-exit registry
	HOOKFLOW_SIM_EPOCHS      simulated epochs
	HOOKFLOW_SIM_BATCHES     simulated batches per epoch
	HOOKFLOW_SIM_EVAL_EVERY  run evaluation every N epochs (0 disables)
	HOOKFLOW_SIM_ALGORITHMS  comma-separated demo algorithm names

Unset variables leave the current value alone.
*/
package config
