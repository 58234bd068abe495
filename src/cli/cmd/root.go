package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bytehawks/distillery/src/config"
	"github.com/bytehawks/distillery/src/logging"
	"github.com/bytehawks/distillery/src/template"
)

var (
	cfgFile string
	verbose bool

	doc      *config.Document
	static   *template.Result
	settings *config.Settings
	logger   *slog.Logger
	logClose io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "distillery",
	Short: "Package-build orchestrator configuration tool",
	Long: `distillery resolves the templated build configuration, selects build
variants and checks that registries and artifact repositories are reachable.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		doc, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		static, err = template.Resolve(doc.Config, template.Static())
		if err != nil {
			return fmt.Errorf("resolving %s: %w", doc.Path, err)
		}
		settings, err = config.Decode(static.Tree)
		if err == nil {
			logger, logClose, err = logging.New(settings.Logging, verbose)
		}
		if err != nil {
			// validate reports these together with every other problem.
			if cmd != validateCmd {
				return fmt.Errorf("%s: %w", doc.Path, err)
			}
			logger = logging.Fallback(os.Stderr, verbose)
		}
		logger.Debug("config loaded", "path", doc.Path, "version", doc.Version, "open", len(static.Open))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logClose != nil {
			return logClose.Close()
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (forces DEBUG logging)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
