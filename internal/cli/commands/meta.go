package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/meta"
	"github.com/nonibytes/crmquery/internal/cliutil"
)

func NewMetaCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Inspect and maintain the metadata cache",
	}
	cmd.AddCommand(
		newMetaMergeCommand(env),
		newMetaShowCommand(env),
		newMetaValidateCommand(env),
		newMetaRemoveCommand(env),
	)
	return cmd
}

func readJSON(cmd *cobra.Command, arg string, v any) error {
	data, err := cliutil.ReadInput(cmd.InOrStdin(), arg)
	if err != nil {
		return cqerrors.Wrap(cqerrors.ErrIO, "read "+arg, err)
	}
	if err := gojson.Unmarshal(data, v); err != nil {
		return cqerrors.Wrap(cqerrors.ErrUsage, "decode "+arg, err)
	}
	return nil
}

func newMetaMergeCommand(env *Env) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "merge [--entity <entity>] <file.json|->",
		Short: "Merge a metadata response into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp meta.Schema
			if err := readJSON(cmd, args[0], &resp); err != nil {
				return err
			}
			if entity == "" {
				entity = resp.Entity
			}
			if entity == "" {
				return cqerrors.NewError(cqerrors.ErrUsage, "no --entity given and the response names none")
			}

			ctx := cmd.Context()
			cache, err := env.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Store().Close()

			snap, err := cache.Merge(ctx, entity, &resp)
			if err != nil {
				return err
			}
			if env.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), snap)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "merged %d fields into %s (%d known)\n",
				len(resp.Fields), entity, len(snap.Fields))
			return err
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "entity type (defaults to the response's entity)")
	return cmd
}

func newMetaShowCommand(env *Env) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "show [--entity <entity>]",
		Short: "Print a cached snapshot, or list cached entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, err := env.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Store().Close()

			w := cmd.OutOrStdout()
			if entity == "" {
				names, err := cache.Entities(ctx)
				if err != nil {
					return err
				}
				if env.format() == cliutil.FormatJSON {
					return cliutil.PrintJSON(w, names)
				}
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
				return nil
			}

			s, err := cache.Get(ctx, entity)
			if err != nil {
				return err
			}
			if s == nil {
				return cqerrors.WrapEntity(cqerrors.ErrNotFound, entity, "no cached metadata", nil)
			}
			if env.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(w, s)
			}
			return printSchema(w, s, cache.Fresh(ctx, entity))
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "entity type")
	return cmd
}

func printSchema(w io.Writer, s *meta.Schema, fresh bool) error {
	fmt.Fprintf(w, "entity: %s", s.Entity)
	if s.Label != "" {
		fmt.Fprintf(w, " (%s)", s.Label)
	}
	fmt.Fprintf(w, "\nfresh: %t\n", fresh)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDATA TYPE\tLABEL\tASSOCIATED")
	for _, f := range s.Fields {
		assoc := ""
		if f.AssociatedEntity != nil {
			assoc = f.AssociatedEntity.Entity
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.Type, f.DataType, f.Label, assoc)
	}
	return tw.Flush()
}

func newMetaValidateCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <versions.json|->",
		Short: "Evict snapshots whose server timestamp changed",
		Long: "Reads a JSON array of {\"entity\", \"dateLastModified\"} objects and evicts every\n" +
			"cached entity whose timestamp differs or is missing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var versions []meta.Version
			if err := readJSON(cmd, args[0], &versions); err != nil {
				return err
			}

			ctx := cmd.Context()
			cache, err := env.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Store().Close()

			evicted, err := cache.Validate(ctx, versions)
			if err != nil {
				return err
			}
			if evicted == nil {
				evicted = []string{}
			}
			if env.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]any{"evicted": evicted})
			}
			for _, e := range evicted {
				fmt.Fprintln(cmd.OutOrStdout(), "evicted", e)
			}
			return nil
		},
	}
}

func newMetaRemoveCommand(env *Env) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "remove --entity <entity>",
		Short: "Drop an entity's cached snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, err := env.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Store().Close()
			return cache.Remove(ctx, entity)
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "entity type")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}
