package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bytehawks/distillery/src/config"
	"github.com/bytehawks/distillery/src/output"
	"github.com/bytehawks/distillery/src/registry"
	"github.com/bytehawks/distillery/src/target"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration document",
	Long: `Resolve the configuration statically and check its structure.

Values that depend on the package namespace are reported as open; they are
resolved at build time and are not an error.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	resolvedDoc := *doc
	resolvedDoc.Config = static.Tree
	warnings, verr := config.Validate(&resolvedDoc)

	var errs []string
	if verr != nil {
		errs = strings.Split(verr.Error(), "; ")
	}
	if settings != nil {
		for _, c := range []target.Candidates{
			target.RegistryCandidates(settings.Registry),
			target.RepositoryCandidates(settings.Repository),
		} {
			for _, t := range c.All() {
				for _, e := range registry.Validate(t) {
					errs = append(errs, fmt.Sprintf("%s: %v", t.ID(), e))
				}
			}
		}
	}
	elapsed := time.Since(start)

	output.SectionStart(w, "distillery_validate", "Validate")
	sec := output.NewSection(w, "Validate", elapsed, color)
	sec.KV("file", doc.Path)
	sec.KV("version", doc.Version)
	sec.KV("schema", doc.Schema)
	sec.Separator()
	for _, e := range errs {
		sec.Row("%s %s", output.StatusIcon("failed", color), e)
	}
	output.SectionWarnings(sec, warnings, color)
	if len(errs) == 0 && len(warnings) == 0 {
		sec.Row("%s no issues", output.StatusIcon("success", color))
	}
	sec.Close()
	output.SectionEnd(w, "distillery_validate")

	if len(static.Open) > 0 {
		output.SectionStart(w, "distillery_open", "Open placeholders")
		oSec := output.NewSection(w, "Open placeholders", 0, color)
		for _, o := range static.Open {
			oSec.Row("%-40s %s", o.Node, output.Dimmed(o.Ref, color))
		}
		oSec.Close()
		output.SectionEnd(w, "distillery_open")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %d error(s)", doc.Path, len(errs))
	}
	return nil
}
