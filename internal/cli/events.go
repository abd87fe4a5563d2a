package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
)

// eventRow is one catalog entry as printed by the events command.
type eventRow struct {
	Name        string `json:"name"`
	Direction   string `json:"direction"`
	Counterpart string `json:"counterpart,omitempty"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List lifecycle events",
		Long: `List every lifecycle event in emission order with its traversal direction
and paired event.

Example:
  hookflow events
  hookflow events --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := eventRows()
			out := cmd.OutOrStdout()

			if rootOpts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tDIRECTION\tPAIRED WITH")
			for _, r := range rows {
				paired := r.Counterpart
				if paired == "" {
					paired = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Direction, paired)
			}
			return w.Flush()
		},
	}
}

func eventRows() []eventRow {
	events := hookflow.Events()
	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		row := eventRow{Name: e.String(), Direction: e.Direction().String()}
		if other, ok := e.Counterpart(); ok {
			row.Counterpart = other.String()
		}
		rows = append(rows, row)
	}
	return rows
}
