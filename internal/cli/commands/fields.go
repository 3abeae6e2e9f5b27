package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/crmquery/crmquery/fields"
	"github.com/nonibytes/crmquery/crmquery/meta"
	"github.com/nonibytes/crmquery/internal/cliutil"
)

func NewFieldsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Parse field selections and diff them against cached metadata",
	}
	cmd.AddCommand(newFieldsParseCommand(env), newFieldsMissingCommand(env))
	return cmd
}

func newFieldsParseCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <spec>",
		Short: "Print the canonical form of a field selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes := fields.Parse(args[0])
			if env.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), tree(nodes))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fields.String(nodes))
			return err
		},
	}
}

// tree renders leaves as names and branches as {"name": [children]}
func tree(nodes []fields.Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		switch x := n.(type) {
		case fields.Leaf:
			out = append(out, x.Name)
		case fields.Branch:
			out = append(out, map[string]any{x.Name: tree(x.Children)})
		}
	}
	return out
}

func newFieldsMissingCommand(env *Env) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "missing --entity <entity> <spec>",
		Short: "Print the part of a field selection the cache does not know",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, err := env.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Store().Close()

			svc := meta.NewService(cache, nil)
			svc.Logger = env.logger()
			residual, err := svc.Missing(ctx, entity, []string{args[0]})
			if err != nil {
				return err
			}
			if env.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]string{
					"entity":   entity,
					"residual": residual,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), residual)
			return err
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "entity type")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}
