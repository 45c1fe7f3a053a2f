package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/triangulator"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of triangulator",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "triangulator version %s\n", strings.TrimSpace(triangulator.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
