package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsCommand_Text(t *testing.T) {
	out, err := execute(t, "events")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 24)
	assert.Contains(t, lines[0], "EVENT")
	assert.Regexp(t, `^init\s+forward\s+-$`, lines[1])
	assert.Contains(t, out, "after_loss")
	assert.Regexp(t, `after_loss\s+reverse\s+before_loss`, out)
}

func TestEventsCommand_JSON(t *testing.T) {
	out, err := execute(t, "events", "--format", "json")
	require.NoError(t, err)

	var rows []eventRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 23)
	assert.Equal(t, eventRow{Name: "init", Direction: "forward"}, rows[0])
	assert.Equal(t, eventRow{Name: "batch_end", Direction: "reverse", Counterpart: "batch_start"}, rows[13])
}
