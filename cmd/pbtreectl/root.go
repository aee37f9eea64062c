package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pbtreectl",
		Short:         "Build, inspect, and query PBTree files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newLevelsCmd())
	cmd.AddCommand(newDumpCmd())
	return cmd
}
