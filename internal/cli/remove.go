package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retag-io/retag/internal/engine"
)

var (
	removeKeys        []string
	removePatterns    []string
	removeAutoApprove bool
	removeDryRun      bool
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove tag keys from matched resources",
	Long: `Strip the listed tag keys from every matched resource. Unrelated tags
are preserved; a resource left with zero tags has its tag set deleted
entirely.`,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringSliceVarP(&removeKeys, "key", "k", nil, "Tag key to remove (repeatable)")
	removeCmd.Flags().StringSliceVarP(&removePatterns, "pattern", "p", nil, "Name substring to match (repeatable)")
	removeCmd.Flags().BoolVar(&removeAutoApprove, "auto-approve", false, "Skip interactive approval before applying")
	removeCmd.Flags().BoolVar(&removeDryRun, "dry-run", false, "Compute and show removals without applying them")
}

func runRemove(cmd *cobra.Command, args []string) error {
	if len(removeKeys) == 0 {
		return fmt.Errorf("no tag keys: pass at least one --key")
	}
	return runReconcile(cmd, reconcileParams{
		autoApprove: removeAutoApprove,
		dryRun:      removeDryRun,
		patterns:    removePatterns,
		op:          engine.OpRemove,
		removeKeys:  removeKeys,
	})
}
