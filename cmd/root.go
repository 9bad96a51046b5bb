// Package cmd provides the command-line interface for the kanban tool.
package cmd

import (
	"io"
	"os"

	"github.com/danielolaszy/kanban/internal/common"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/spf13/cobra"
)

const appName = "kanban"

// NewRootCmd builds the command tree with every report command attached.
func NewRootCmd() *cobra.Command {
	var logFile *os.File

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Kanban flow metrics from issue tracker history",
		Long: `Kanban computes cycle times from the status history of resolved issues
and reports flow metrics over them: cycle time distribution, percentiles,
pull rate and work in progress.

Issues are fetched from JIRA projects, GitHub repositories or Trello boards.
Use -p/--project multiple times to combine several projects in one report.

Example:
  kanban basic -t jira -p BACKEND -p MOBILE --history-age 90`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return err
			}
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}

			toFile, err := cmd.Flags().GetBool("log-file")
			if err != nil {
				return err
			}

			var w io.Writer = os.Stderr
			if toFile {
				logFile, err = common.OpenLogFile(appName)
				if err != nil {
					return err
				}
				w = io.MultiWriter(os.Stderr, logFile)
			}
			logging.SetupLogger(w, logging.ParseLevel(level))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
	}

	// Add persistent flags that will be available to all commands
	flags := rootCmd.PersistentFlags()
	flags.StringP("tracker", "t", "jira", "Issue tracker to read from: jira, github or trello")
	flags.StringArrayP("project", "p", nil, "JIRA project key, GitHub 'owner/repo' or Trello board name (repeatable)")
	flags.Int("history-age", 90, "Number of days of resolved issues to report on")
	flags.String("history-from", "", "Report on issues resolved since this date (YYYY-MM-DD), overrides --history-age")
	flags.String("cache-dir", "", "Directory of the fetch cache (default from KANBAN_CACHE_DIR)")
	flags.Int("cache-age", -1, "Days fetched issues are reused (default from KANBAN_CACHE_AGE_DAYS)")
	flags.Bool("no-cache", false, "Always fetch from the tracker")
	flags.StringP("output", "o", "text", "Output format: text or json")
	flags.String("log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
	flags.Bool("log-file", false, "Also write logs to ~/.kanban/logs")
	flags.String("config", "", "Optional YAML config file")

	rootCmd.AddCommand(
		newBasicCmd(),
		newMetricsCmd(),
		newPercentileCmd(),
		newHistogramCmd(),
		newControlCmd(),
	)
	return rootCmd
}

// Execute runs the command tree.
func Execute() error {
	return NewRootCmd().Execute()
}
