package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retag-io/retag/internal/engine"
	"github.com/retag-io/retag/internal/ir"
	"github.com/spf13/pflag"
)

var (
	applyAutoApprove bool
	applyDryRun      bool
	applyTags        map[string]string
	applyPatterns    []string
	applyMode        string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile tags on matched resources",
	Long: `Discover resources matching the configured patterns, diff their tags
against the desired set, and apply the changes after confirmation.`,
	RunE: runApply,
}

func init() {
	addRunFlags(applyCmd.Flags(), &applyTags, &applyPatterns, &applyMode)
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval before applying")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Compute and show changes without applying them")
}

// addRunFlags wires the flags shared by apply and plan.
func addRunFlags(flags *pflag.FlagSet, tags *map[string]string, patterns *[]string, mode *string) {
	flags.StringToStringVarP(tags, "tag", "t", nil, "Desired tag (format: key=value, repeatable)")
	flags.StringSliceVarP(patterns, "pattern", "p", nil, "Name substring to match (repeatable)")
	flags.StringVarP(mode, "mode", "m", "", "Tag write mode: merge or replace")
}

func runApply(cmd *cobra.Command, args []string) error {
	return runReconcile(cmd, reconcileParams{
		autoApprove: applyAutoApprove,
		dryRun:      applyDryRun,
		tags:        applyTags,
		patterns:    applyPatterns,
		mode:        applyMode,
		op:          engine.OpApply,
	})
}

type reconcileParams struct {
	autoApprove bool
	dryRun      bool
	tags        map[string]string
	patterns    []string
	mode        string
	op          engine.Op
	removeKeys  []string
}

func runReconcile(cmd *cobra.Command, params reconcileParams) error {
	ctx := cmd.Context()

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	// Flag values override the file spec.
	desired := ir.TagMap(cfg.Tags).Clone()
	for k, v := range params.tags {
		desired[k] = v
	}
	patterns := cfg.Patterns
	if len(params.patterns) > 0 {
		patterns = params.patterns
	}
	mode := ir.Mode(cfg.Mode)
	if params.mode != "" {
		if mode, err = parseMode(params.mode); err != nil {
			return err
		}
	}

	if params.op == engine.OpApply && len(desired) == 0 {
		return fmt.Errorf("no desired tags: set tags in the config or pass --tag")
	}

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	sink, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}

	runner := engine.NewRunner(registry, cfg.ResolvedKinds(), engine.Options{
		Patterns:    patterns,
		Desired:     desired,
		Mode:        mode,
		Op:          params.op,
		RemoveKeys:  params.removeKeys,
		DryRun:      params.dryRun,
		Concurrency: cfg.Concurrency,
		Policy:      cfg.RetryPolicy(),
		Confirmer:   pickConfirmer(params.autoApprove),
		Backup:      sink,
		RenderPlans: renderPlans,
		OnEvent:     progressPrinter,
	})

	result, err := runner.Run(ctx)
	if result != nil {
		renderResult(result)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d resource(s) failed", result.Failed)
	}
	return nil
}
