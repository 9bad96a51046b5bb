package cmd

import (
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/spf13/cobra"
)

func newHistogramCmd() *cobra.Command {
	histogramCmd := &cobra.Command{
		Use:   "histogram",
		Short: "Show the cycle time distribution as a histogram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bins, err := cmd.Flags().GetInt("bins")
			if err != nil {
				return err
			}

			s, err := load(cmd)
			if err != nil {
				return err
			}

			histogram, err := metrics.Histogram(s.set, bins)
			if err != nil {
				return err
			}
			return s.reporter.Histogram(histogram)
		},
	}
	histogramCmd.Flags().Int("bins", 10, "Number of equal width bins")
	return histogramCmd
}
