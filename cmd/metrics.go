package cmd

import (
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List issues by cycle time percentile",
		Long: `Print every configured percentile of the cycle time distribution followed by
the issues whose cycle time falls under it and under no lower percentile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}

			buckets, err := metrics.PercentileBuckets(s.set, s.cfg.Kanban.Percentiles...)
			if err != nil {
				return err
			}
			return s.reporter.Metrics(buckets)
		},
	}
}
