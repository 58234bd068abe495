package cmd

import (
	"github.com/spf13/cobra"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Work with registries and artifact repositories",
}

func init() {
	rootCmd.AddCommand(targetCmd)
}
