package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bytehawks/distillery/src/credential"
	"github.com/bytehawks/distillery/src/output"
	"github.com/bytehawks/distillery/src/registry"
	"github.com/bytehawks/distillery/src/target"
)

var (
	probeKind     string
	probeStrategy string
)

var targetProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Find the active registry and repository",
	Long: `Probe the configured targets in strategy order and report which one is active.

Each target is attempted up to retry+1 times with exponential backoff. A
target whose credentials reference an unset environment variable is skipped
without retrying. Registries and repositories are probed concurrently.`,
	Args: cobra.NoArgs,
	RunE: runTargetProbe,
}

func init() {
	targetProbeCmd.Flags().StringVar(&probeKind, "kind", "all", "which targets to probe: registry, repository or all")
	targetProbeCmd.Flags().StringVar(&probeStrategy, "strategy", "", "override the configured strategy")

	targetCmd.AddCommand(targetProbeCmd)
}

type probeJob struct {
	kind       target.Kind
	strategy   target.Strategy
	candidates target.Candidates

	active  *target.ActiveTarget
	log     *target.AttemptLog
	err     error
	elapsed time.Duration
}

func probeJobs() ([]*probeJob, error) {
	var jobs []*probeJob
	if probeKind == "all" || probeKind == string(target.KindRegistry) {
		jobs = append(jobs, &probeJob{
			kind:       target.KindRegistry,
			strategy:   settings.Registry.Strategy,
			candidates: target.RegistryCandidates(settings.Registry),
		})
	}
	if probeKind == "all" || probeKind == string(target.KindRepository) {
		jobs = append(jobs, &probeJob{
			kind:       target.KindRepository,
			strategy:   settings.Repository.Strategy,
			candidates: target.RepositoryCandidates(settings.Repository),
		})
	}
	if probeKind == "all" {
		jobs = slices.DeleteFunc(jobs, func(j *probeJob) bool { return len(j.candidates.All()) == 0 })
	}
	if len(jobs) == 0 && probeKind != "all" {
		return nil, fmt.Errorf("unknown --kind %q (expected registry, repository or all)", probeKind)
	}
	if probeStrategy != "" {
		for _, j := range jobs {
			j.strategy = target.Strategy(probeStrategy)
		}
	}
	return jobs, nil
}

func runTargetProbe(cmd *cobra.Command, args []string) error {
	jobs, err := probeJobs()
	if err != nil {
		return err
	}

	var invalid []error
	for _, j := range jobs {
		for _, t := range j.candidates.All() {
			for _, e := range registry.Validate(t) {
				invalid = append(invalid, fmt.Errorf("%s: %w", t.ID(), e))
			}
		}
	}
	if len(invalid) > 0 {
		return errors.Join(invalid...)
	}

	resolver := target.NewResolver(registry.NewProber(),
		target.WithLogger(logger),
		target.WithCredentials(credential.NewProvider(nil)),
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	for _, j := range jobs {
		g.Go(func() error {
			start := time.Now()
			j.active, j.log, j.err = resolver.Resolve(ctx, j.strategy, j.candidates)
			j.elapsed = time.Since(start)
			// Exhaustion of one kind must not cancel the other.
			var cancelled *target.CancelledError
			if errors.As(j.err, &cancelled) {
				return j.err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	color := output.UseColor()
	w := os.Stdout
	var failed []error
	for _, j := range jobs {
		id := "distillery_probe_" + string(j.kind)
		output.SectionStart(w, id, "Probe "+string(j.kind))
		sec := output.NewSection(w, "Probe "+string(j.kind), j.elapsed, color)
		sec.KV("strategy", string(j.strategy))
		if j.log != nil {
			sec.KV("resolution", j.log.ID)
		}
		sec.Separator()
		output.SectionAttempts(sec, j.log, color)
		sec.Separator()
		if j.err != nil {
			failed = append(failed, j.err)
			output.RowStatus(sec, "active", j.err.Error(), "failed", color)
		} else {
			output.RowStatus(sec, "active", j.active.Location(), "success", color)
		}
		sec.Close()
		output.SectionEnd(w, id)
	}
	return errors.Join(failed...)
}
