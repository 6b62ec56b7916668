package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/go-go-golems/handoff/pkg/inference/tools/fstools"
	"github.com/spf13/cobra"
)

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools each stage may call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := fstools.OpenWorkspace(settings.Workspace)
			if err != nil {
				return err
			}
			defer func() {
				_ = ws.Close()
			}()
			planner, executor, err := registries(ws, settings.DraftsDir)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tTOOL\tMUTABILITY\tDESCRIPTION")
			for _, stage := range []struct {
				name string
				reg  *tools.Registry
			}{{"planner", planner}, {"executor", executor}} {
				for _, t := range stage.reg.List() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stage.name, t.Name, t.Mutability, t.Description)
				}
			}
			return tw.Flush()
		},
	}
}
