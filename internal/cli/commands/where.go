package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/where"
	"github.com/nonibytes/crmquery/internal/cliutil"
)

func NewWhereCommand(env *Env) *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "where <json|->",
		Short: "Compile a JSON filter into a search or query expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := where.ParseDialect(dialect)
			if err != nil {
				return err
			}
			data := []byte(args[0])
			if args[0] == "-" {
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return cqerrors.Wrap(cqerrors.ErrIO, "read filter", err)
				}
			}
			var spec where.Spec
			if err := spec.UnmarshalJSON(data); err != nil {
				return cqerrors.Wrap(cqerrors.ErrUsage, "parse filter", err)
			}
			out := where.Compile(spec, d)
			if env.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]string{
					"dialect": d.String(),
					"where":   out,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&dialect, "dialect", "d", "query", "target dialect: search|query")
	return cmd
}
