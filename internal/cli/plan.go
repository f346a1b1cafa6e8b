package cli

import (
	"github.com/spf13/cobra"

	"github.com/retag-io/retag/internal/engine"
)

var (
	planTags     map[string]string
	planPatterns []string
	planMode     string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview tag changes without applying them",
	Long: `Discover resources, fetch their current tags, and print the delta the
apply command would perform. Never mutates remote state.`,
	RunE: runPlan,
}

func init() {
	addRunFlags(planCmd.Flags(), &planTags, &planPatterns, &planMode)
}

func runPlan(cmd *cobra.Command, args []string) error {
	return runReconcile(cmd, reconcileParams{
		dryRun:   true,
		tags:     planTags,
		patterns: planPatterns,
		mode:     planMode,
		op:       engine.OpApply,
	})
}
