package cmd

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bytehawks/distillery/src/config"
	"github.com/bytehawks/distillery/src/gitver"
	"github.com/bytehawks/distillery/src/output"
	"github.com/bytehawks/distillery/src/template"
)

var (
	resolvePackage string
	resolveSet     []string
	resolveSource  string
)

var resolveCmd = &cobra.Command{
	Use:     "resolve [node]",
	Aliases: []string{"paths"},
	Short:   "Print resolved configuration values",
	Long: `Resolve a configuration subtree and print its values (default: path).

Without --package, --set or --source the package namespace stays unbound and
values that depend on it are printed as open. With any of them the tree is
resolved as at build time and every reference must resolve.

--source reads revision, branch and, when HEAD is tagged, version,
full_version, major_minor and tag from the git checkout. --set overrides them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolvePackage, "package", "", "package name (binds package.name)")
	resolveCmd.Flags().StringArrayVar(&resolveSet, "set", nil, "package binding key=value (repeatable, dotted keys nest)")
	resolveCmd.Flags().StringVar(&resolveSource, "source", "", "package source checkout to read version bindings from")

	rootCmd.AddCommand(resolveCmd)
}

// packageBindings assembles the package namespace from the resolve flags.
// It returns nil when nothing was bound.
func packageBindings() (map[string]any, error) {
	if resolvePackage == "" && resolveSource == "" && len(resolveSet) == 0 {
		return nil, nil
	}
	pkg := map[string]any{}
	if resolveSource != "" {
		v, err := gitver.DetectVersion(resolveSource)
		if err != nil {
			return nil, err
		}
		maps.Copy(pkg, v.Bindings())
		logger.Debug("source version detected", "dir", resolveSource, "revision", v.SHA, "version", v.Version)
	}
	if resolvePackage != "" {
		pkg["name"] = resolvePackage
	}
	for _, kv := range resolveSet {
		if err := gitver.ParseBinding(pkg, kv); err != nil {
			return nil, err
		}
	}
	return pkg, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	node := "path"
	if len(args) == 1 {
		node = args[0]
	}

	pkg, err := packageBindings()
	if err != nil {
		return err
	}
	ctx := template.Static()
	if pkg != nil {
		ctx = template.BuildTime(pkg)
	}

	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	res, err := template.ResolveSubtree(doc.Config, ctx, node)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", node, err)
	}
	elapsed := time.Since(start)

	output.SectionStart(w, "distillery_resolve", "Resolve")
	sec := output.NewSection(w, "Resolve "+node, elapsed, color)
	var expandErr error
	config.Walk(res.Tree, func(rel string, _ any) {
		full := node + "." + rel
		s, concrete := res.String(full)
		if !concrete {
			sec.Row("%-32s %s %s", full, s, output.Dimmed("(open)", color))
			return
		}
		if isPathNode(full) {
			expanded, err := config.ExpandHome(s)
			if err != nil && expandErr == nil {
				expandErr = fmt.Errorf("%s: %w", full, err)
			}
			if err == nil {
				s = expanded
			}
		}
		sec.Row("%-32s %s", full, s)
	})
	sec.Close()
	output.SectionEnd(w, "distillery_resolve")
	return expandErr
}

func isPathNode(p string) bool {
	return p == "path" || strings.HasPrefix(p, "path.")
}
