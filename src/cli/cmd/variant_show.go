package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bytehawks/distillery/src/config"
	"github.com/bytehawks/distillery/src/output"
)

var variantShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one resolved build variant",
	Long:  "Resolve and print a build variant. Without a name the default variant is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVariantShow,
}

func init() {
	variantCmd.AddCommand(variantShowCmd)
}

func runVariantShow(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) == 1 {
		name = args[0]
	}

	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	v, err := newSelector().Select(name)
	if err != nil {
		return err
	}
	for _, warn := range v.Warnings {
		logger.Warn("variant support expired", "variant", v.Name, "detail", warn.Error())
	}

	output.SectionStart(w, "distillery_variant", "Variant")
	sec := output.NewSection(w, "Variant "+v.Name, time.Since(start), color)
	sec.KV("image", v.Image)
	sec.KV("arch", v.Arch)
	if v.Description != "" {
		sec.KV("description", v.Description)
	}
	if v.SupportUntil != "" {
		sec.KV("support_until", v.SupportUntil)
	}
	if len(v.Metadata) > 0 {
		sec.Separator()
		config.Walk(v.Metadata, func(path string, value any) {
			sec.KV("metadata."+path, config.ScalarString(value))
		})
	}
	if len(v.Warnings) > 0 {
		sec.Separator()
		warnings := make([]string, 0, len(v.Warnings))
		for _, warn := range v.Warnings {
			warnings = append(warnings, warn.Error())
		}
		output.SectionWarnings(sec, warnings, color)
	}
	sec.Close()
	output.SectionEnd(w, "distillery_variant")
	return nil
}
