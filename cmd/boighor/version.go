package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "boighor %s (%s)\n", version.GitRelease, version.GoInfo)
		if version.GitCommit != "unknown" {
			fmt.Fprintf(out, "commit %s, %s\n", version.GitCommit, version.GitCommitDate)
		}
	},
}
