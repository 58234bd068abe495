package cmd

import (
	"github.com/spf13/cobra"
)

var variantPackage string

var variantCmd = &cobra.Command{
	Use:   "variant",
	Short: "Inspect build variants",
	Long:  "List the build variants defined under build.variant and show their resolved values.",
}

func init() {
	variantCmd.PersistentFlags().StringVar(&variantPackage, "package", "", "package name to bind while resolving variants")

	rootCmd.AddCommand(variantCmd)
}
