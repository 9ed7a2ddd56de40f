package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/firestream"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of firestream",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "firestream version %s\n", strings.TrimSpace(firestream.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
