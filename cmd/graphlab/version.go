package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/graphlab"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of graphlab",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "graphlab version %s\n", strings.TrimSpace(graphlab.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
