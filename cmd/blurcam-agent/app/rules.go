package app

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/blurcam/internal/blurcam/dispatch"
	"github.com/autopeer-io/blurcam/internal/blurcam/slot"
)

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print which commands may run concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), rulesTable())
			return nil
		},
	}
}

func rulesTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("COMMAND", "SLOT", "REQUIRES FREE")
	for _, r := range dispatch.Rules {
		table.AddRow(r.Command, r.Slot, joinSlots(r.Requires))
	}
	return table
}

func joinSlots(ids []slot.ID) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.String())
	}
	return strings.Join(names, ", ")
}
