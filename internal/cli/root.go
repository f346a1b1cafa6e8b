package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/retag-io/retag/internal/logging"
)

var (
	cfgFile   string
	region    string
	profile   string
	logLevel  string
	logFormat string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "retag",
	Short: "Reconcile tags on cloud resources",
	Long: `Retag converges the tags on AWS resources (EventBridge rules, S3
buckets) toward a desired tag set, account/region wide.

It discovers resources by name pattern, diffs their current tags against
the desired state, shows the plan, and applies it with backups, bounded
retries and rate-limit pacing.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel, logFormat)
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to the YAML run spec")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region (overrides config)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS shared-config profile (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(versionCmd)
}
