package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/retag-io/retag/internal/backup"
	"github.com/retag-io/retag/internal/config"
	"github.com/retag-io/retag/internal/engine"
	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/logging"
	"github.com/retag-io/retag/internal/provider"
	awsprovider "github.com/retag-io/retag/providers/aws"
)

var (
	addLine    = color.New(color.FgGreen)
	removeLine = color.New(color.FgRed)
	updateLine = color.New(color.FgYellow)
	dimLine    = color.New(color.Faint)
)

// loadRunConfig reads the YAML spec and layers flag overrides on top.
func loadRunConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if region != "" {
		cfg.Region = region
	}
	if profile != "" {
		cfg.Profile = profile
	}
	return cfg, nil
}

// buildRegistry loads the AWS providers for every configured kind and
// logs the caller identity so runs against the wrong account are
// visible before anything mutates.
func buildRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, error) {
	awsCfg, err := awsprovider.LoadConfig(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		return nil, err
	}

	account, arn, err := awsprovider.CallerIdentity(ctx, awsCfg)
	if err != nil {
		return nil, err
	}
	logging.Info("resolved caller identity", "account", account, "arn", arn, "region", cfg.Region)

	registry := provider.NewRegistry()
	for _, kind := range cfg.ResolvedKinds() {
		p, err := awsprovider.New(awsCfg, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to load provider for %s: %w", kind, err)
		}
		registry.Register(p)
	}
	return registry, nil
}

// buildSink picks the snapshot sink from config: disabled, S3, or a
// local directory.
func buildSink(ctx context.Context, cfg *config.Config) (backup.Sink, error) {
	if cfg.Backup.Disabled {
		return backup.NopSink{}, nil
	}
	if cfg.Backup.S3.Bucket != "" {
		awsCfg, err := awsprovider.LoadConfig(ctx, cfg.Region, cfg.Profile)
		if err != nil {
			return nil, err
		}
		return backup.NewS3Sink(s3.NewFromConfig(awsCfg), cfg.Backup.S3.Bucket, cfg.Backup.S3.Prefix)
	}
	return backup.NewDirSink(cfg.Backup.Dir), nil
}

// renderPlans prints the per-resource tag diff for review.
func renderPlans(plans []ir.Plan) {
	for _, p := range plans {
		fmt.Printf("\n--- %s (%s) ---\n", p.Resource.Name, p.Resource.Kind)

		if !p.Resource.TaggingSupported {
			dimLine.Println("  tagging not supported")
			continue
		}
		if p.Delta.Empty() {
			dimLine.Println("  no changes required")
			continue
		}

		for _, c := range p.Delta {
			switch c.Kind {
			case ir.ChangeAdd:
				addLine.Printf("  + %s: %s\n", c.Key, c.New)
			case ir.ChangeRemove:
				removeLine.Printf("  - %s: %s\n", c.Key, c.Old)
			case ir.ChangeUpdate:
				updateLine.Printf("  ~ %s: %s -> %s\n", c.Key, c.Old, c.New)
			}
		}
	}
	fmt.Println()
}

// renderResult prints the run summary counts.
func renderResult(result *ir.RunResult) {
	fmt.Println("\nRun Summary:")
	fmt.Printf("  Matched:     %d\n", result.Matched)
	fmt.Printf("  Taggable:    %d\n", result.Taggable)
	fmt.Printf("  Unsupported: %d\n", result.Unsupported)
	fmt.Printf("  Applied:     %d\n", result.Applied)
	fmt.Printf("  Skipped:     %d\n", result.Skipped)
	fmt.Printf("  Failed:      %d\n", result.Failed)

	for id, outcome := range result.Outcomes {
		if outcome.Kind == ir.OutcomeFailed {
			removeLine.Printf("  failed: %s: %s: %v\n", id, outcome.Failure, outcome.Err)
		}
	}
}

// progressPrinter streams apply progress to stdout.
func progressPrinter(event engine.Event) {
	if event.Phase != "apply-finished" {
		return
	}
	switch event.Outcome.Kind {
	case ir.OutcomeApplied:
		addLine.Printf("applied  %s (%s)\n", event.Resource.Name, event.Duration.Round(1e6))
	case ir.OutcomeFailed:
		removeLine.Printf("failed   %s: %v\n", event.Resource.Name, event.Outcome.Err)
	default:
		dimLine.Printf("skipped  %s\n", event.Resource.Name)
	}
}

// nonInteractive reports whether the run has no terminal to prompt on:
// a recognized CI environment or a non-tty stdin.
func nonInteractive() bool {
	if os.Getenv("CI") == "true" {
		return true
	}
	return !isatty.IsTerminal(os.Stdin.Fd())
}

// promptConfirmer asks the user for an explicit yes before mutating.
type promptConfirmer struct{}

func (promptConfirmer) Confirm(taggable int) (bool, error) {
	fmt.Printf("\nProceed with tagging %d resource(s)? (yes/no): ", taggable)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y", nil
}

// pickConfirmer selects the confirmation strategy for a mutating run.
func pickConfirmer(autoApprove bool) engine.Confirmer {
	if autoApprove || nonInteractive() {
		return engine.AutoApprove{}
	}
	return promptConfirmer{}
}

// parseMode validates a --mode flag value.
func parseMode(raw string) (ir.Mode, error) {
	switch ir.Mode(raw) {
	case ir.ModeMerge, ir.ModeReplace:
		return ir.Mode(raw), nil
	default:
		return "", fmt.Errorf("mode must be %q or %q, got %q", ir.ModeMerge, ir.ModeReplace, raw)
	}
}
