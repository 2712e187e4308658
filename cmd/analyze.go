package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/casetag/internal/adapters/artifacts"
	"github.com/okian/casetag/internal/domain/aggregate"
	"github.com/okian/casetag/pkg/logger"
)

type analyzeOptions struct {
	totalCases int
	output     string
	perFile    bool
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [classified.csv...]",
		Short: "Report tag frequencies across classified outputs",
		Long: `Counts, per category, how many distinct cases carry each tag across the
given classified outputs. Percentages are taken against --total-cases, which
must be the number of distinct processed cases the outputs cover.

With --per-file every output is also summarized on its own, using its
processed rows as the denominator.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.analyze(cmd, o, args)
		},
	}
	cmd.Flags().IntVar(&o.totalCases, "total-cases", 0, "distinct processed cases across all outputs")
	cmd.Flags().StringVar(&o.output, "output", "", "write the report JSON here instead of stdout")
	cmd.Flags().BoolVar(&o.perFile, "per-file", false, "also summarize each output on its own")
	_ = cmd.MarkFlagRequired("total-cases")
	return cmd
}

func (c *cli) analyze(cmd *cobra.Command, o *analyzeOptions, files []string) error {
	store := artifacts.NewStore(c.fs)
	datasets := make([]aggregate.Dataset, 0, len(files))
	for _, f := range files {
		p, err := c.path(f)
		if err != nil {
			return err
		}
		table, ok, err := store.ReadTable(p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", artifacts.ErrNotFound, f)
		}
		datasets = append(datasets, aggregate.Dataset{Name: filepath.Base(f), Table: table})
	}

	out := cmd.OutOrStdout()
	if o.perFile {
		for _, ds := range datasets {
			r, err := aggregate.AnalyzeDataset(ds)
			if err != nil {
				return fmt.Errorf("%s: %w", ds.Name, err)
			}
			data, err := r.Encode()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "== %s (%d cases)\n%s", ds.Name, aggregate.DistinctCases([]aggregate.Dataset{ds}), data)
		}
	}

	if distinct := aggregate.DistinctCases(datasets); distinct != o.totalCases {
		c.log.Named("analyze").Warn(cmd.Context(), "total-cases differs from the distinct processed cases in the outputs",
			logger.Int("total_cases", o.totalCases),
			logger.Int("distinct_cases", distinct),
		)
	}
	report, err := aggregate.Aggregate(datasets, o.totalCases)
	if err != nil {
		return err
	}
	data, err := report.Encode()
	if err != nil {
		return err
	}
	if o.output == "" {
		_, err = out.Write(data)
		return err
	}
	p, err := c.path(o.output)
	if err != nil {
		return err
	}
	if err := artifacts.WriteFileAtomic(c.fs, p, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "report written to %s\n", p)
	return nil
}
