package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/turnstack"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of turnstack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "turnstack version %s\n", strings.TrimSpace(turnstack.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
