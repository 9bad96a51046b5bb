package cmd

import (
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/spf13/cobra"
)

func newBasicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "basic",
		Short: "Summarise cycle times and flow rates",
		Long: `Print the timespan, the number of finished and started issues, the issues
with the shortest, median and longest cycle times, the mean cycle time, the
mean work in progress and the pull rate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}

			stats, err := metrics.Compute(s.set, s.cfg.Kanban.Percentiles...)
			if err != nil {
				return err
			}
			return s.reporter.Basic(stats)
		},
	}
}
