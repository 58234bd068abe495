package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bytehawks/distillery/src/output"
	"github.com/bytehawks/distillery/src/variant"
)

var variantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List build variants",
	Args:  cobra.NoArgs,
	RunE:  runVariantList,
}

func init() {
	variantCmd.AddCommand(variantListCmd)
}

func newSelector() *variant.Selector {
	var opts []variant.Option
	if variantPackage != "" {
		opts = append(opts, variant.WithPackage(map[string]any{"name": variantPackage}))
	}
	return variant.NewSelector(doc.Config, opts...)
}

func runVariantList(cmd *cobra.Command, args []string) error {
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	sel := newSelector()
	names := sel.List()
	def := sel.Default()

	type row struct {
		name, detail, status string
	}
	rows := make([]row, 0, len(names))
	for _, name := range names {
		label := name
		if name == def {
			label += " (default)"
		}
		v, err := sel.Select(name)
		switch {
		case err != nil:
			rows = append(rows, row{label, err.Error(), "failed"})
		case v.Expired():
			rows = append(rows, row{label, v.Image, "warning"})
		default:
			rows = append(rows, row{label, v.Image, "success"})
		}
	}

	output.SectionStart(w, "distillery_variants", "Variants")
	sec := output.NewSection(w, "Variants", time.Since(start), color)
	for _, r := range rows {
		output.RowStatus(sec, r.name, r.detail, r.status, color)
	}
	if len(rows) == 0 {
		sec.Row("no variants defined under build.variant")
	}
	sec.Close()
	output.SectionEnd(w, "distillery_variants")
	return nil
}
