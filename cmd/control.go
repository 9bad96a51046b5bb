package cmd

import (
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/spf13/cobra"
)

func newControlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "control",
		Short: "Show each issue's cycle time against its resolution date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			if s.set.Len() == 0 {
				return metrics.ErrEmptyDataset
			}
			return s.reporter.Control(metrics.ControlChart(s.set))
		},
	}
}
