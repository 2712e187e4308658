package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/casetag/internal/domain/cost"
)

func newEstimateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate SIZE...",
		Short: "Estimate the oracle cost of a plan of iteration sizes",
		Long: `Prices each planned iteration with the configured per-1K token rates.
Schema discovery is only charged to the first iteration.

Example:
  casetag estimate 100 500 2000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes := make([]int, len(args))
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("iteration size %q: %w", a, err)
				}
				sizes[i] = n
			}
			rates := cost.DefaultRates()
			rates.InputPer1K = c.cfg.InputCostPer1K
			rates.OutputPer1K = c.cfg.OutputCostPer1K

			plan, err := cost.Estimate(sizes, rates)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return err
		},
	}
}
