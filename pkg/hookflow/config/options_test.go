package config_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
	"github.com/randalmurphal/hookflow/pkg/hookflow/config"
	"github.com/randalmurphal/hookflow/pkg/hookflow/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOptions_ConfigureEngine verifies settings reach a real engine.
func TestOptions_ConfigureEngine(t *testing.T) {
	var buf bytes.Buffer
	s := config.Default()
	s.LogLevel = "debug"
	s.DebugTrace = true
	s.ExitHook = false

	state := hookflow.NewMemoryState(&hookflow.AlgorithmFuncs{ID: "noop"})
	engine, err := hookflow.New(state, s.Options(s.Logger(&buf))...)
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.RunEvent(context.Background(), hookflow.Init)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "algorithm trace")
	assert.Contains(t, out, "trace.noop=0")
	assert.False(t, shutdown.Default.Has(engine.ID()))
}
