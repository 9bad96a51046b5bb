package cmd

import (
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/spf13/cobra"
)

func newPercentileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "percentile",
		Short: "Show the cycle time at each percentile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}

			stats, err := metrics.Compute(s.set, s.cfg.Kanban.Percentiles...)
			if err != nil {
				return err
			}
			return s.reporter.Percentile(stats)
		},
	}
}
