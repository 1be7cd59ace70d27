package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "basis-admin",
		Short: "Operational tools for the election master-data core",
	}
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newTreeCmd())
	return cmd
}

func execute() {
	_ = newRootCmd().Execute()
}
