package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()
	simCmd, _, err := cmd.Find([]string{"simulate"})
	require.NoError(t, err)

	for _, name := range []string{"epochs", "batches", "eval-every", "trace", "metrics", "tracing"} {
		assert.NotNil(t, simCmd.Flags().Lookup(name), name)
	}
}

func TestSimulateCommand_Text(t *testing.T) {
	out, err := execute(t, "simulate", "--epochs", "1", "--batches", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "epochs:        1")
	assert.Contains(t, out, "steps:         2")
	assert.Contains(t, out, "stopped early: false")
	assert.NotContains(t, out, "telemetry:")
}

func TestSimulateCommand_TracePrintsEveryEvent(t *testing.T) {
	out, err := execute(t, "simulate", "--epochs", "1", "--batches", "1", "--eval-every", "0", "--trace")
	require.NoError(t, err)

	assert.Regexp(t, `(?m)^before_loss\s+.*outer_scale=0 .*inner_scale=1`, out)
	assert.Regexp(t, `(?m)^after_loss\s+.*inner_scale=0 .*outer_scale=1`, out)
	assert.Regexp(t, `(?m)^batch_start\s+warmup=0 `, out)
	assert.NotContains(t, out, "eval_start")
}

func TestSimulateCommand_JSONWithTelemetry(t *testing.T) {
	out, err := execute(t, "simulate", "--format", "json", "--epochs", "1", "--batches", "1",
		"--eval-every", "0", "--metrics", "--tracing")
	require.NoError(t, err)

	var got simulateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Epochs)
	assert.Equal(t, 1, got.Steps)
	assert.Equal(t, 17, got.Events)
	assert.Equal(t, 1, got.Counts["init"])
	assert.NotEmpty(t, got.EngineID)

	require.NotNil(t, got.Telemetry)
	assert.Equal(t, int64(17), got.Telemetry.Dispatches)
	assert.Equal(t, int64(got.Applications), got.Telemetry.Applications)
	// One span per dispatch plus the close span.
	assert.Equal(t, int64(18), got.Telemetry.Spans)
}

func TestSimulateCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hookflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exit_hook: false\nsimulation:\n  epochs: 1\n  batches: 4\n  eval_every: 0\n"), 0o600))

	out, err := execute(t, "simulate", "--config", path, "--format", "json")
	require.NoError(t, err)

	var got simulateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Steps)
	assert.Equal(t, 0, got.Evaluations)

	// Flags win over the file.
	out, err = execute(t, "simulate", "--config", path, "--format", "json", "--batches", "2")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Steps)
}

func TestSimulateCommand_BadSettings(t *testing.T) {
	_, err := execute(t, "simulate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "simulate", "--epochs", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulateCommand_Algorithms(t *testing.T) {
	out, err := execute(t, "simulate", "--format", "json", "--epochs", "1", "--batches", "1",
		"--algorithms", "warmup,step_decay")
	require.NoError(t, err)

	var got simulateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Applications)

	_, err = execute(t, "simulate", "--algorithms", "mixup")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
