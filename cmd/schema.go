package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/casetag/internal/adapters/artifacts"
	"github.com/okian/casetag/internal/domain/merge"
	"github.com/okian/casetag/pkg/logger"
)

var errNoSchema = errors.New("no schema file: pass --schema or set schema_file")

func newUpdateSchemaCmd(c *cli) *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "update-schema [classified.csv...]",
		Short: "Fold tags observed in classified outputs into the taxonomy",
		Long: `Collects every tag used in the given classified outputs and adds the ones
the taxonomy lacks to the "other" subcategory of their category.

The previous taxonomy is saved as <schema>_backup.json first. When no tag
is new, nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schema == "" {
				schema = c.cfg.SchemaFile
			}
			if schema == "" {
				return errNoSchema
			}
			return c.updateSchema(cmd, schema, args)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "taxonomy file to update (default: schema_file from config)")
	return cmd
}

func (c *cli) updateSchema(cmd *cobra.Command, schema string, files []string) error {
	log := c.log.Named("update-schema")
	store := artifacts.NewStore(c.fs)

	observed := map[string][]string{}
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
		for cat, tags := range merge.ObservedTags(table) {
			observed[cat] = append(observed[cat], tags...)
		}
	}

	p, err := c.path(schema)
	if err != nil {
		return err
	}
	ss := artifacts.NewSchemaStore(c.fs, p)
	changes, err := ss.Merge(observed)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if changes.Empty() {
		fmt.Fprintln(out, "taxonomy already covers every observed tag")
		return nil
	}
	log.Info(cmd.Context(), "taxonomy updated",
		logger.String("schema", ss.Path()),
		logger.String("backup", ss.BackupPath()),
		logger.Int("tags_added", changes.Total()),
	)
	for _, cat := range slices.Sorted(maps.Keys(changes)) {
		fmt.Fprintf(out, "%s: %s\n", cat, strings.Join(changes[cat], ", "))
	}
	return nil
}
