package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/internal/cli/commands"
	"github.com/nonibytes/crmquery/internal/cliopt"
	"github.com/nonibytes/crmquery/internal/config"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	return Run(context.Background(), argv, os.Stdin, os.Stdout, os.Stderr)
}

// Run executes one CLI invocation against the given streams.
// Exit codes: 0 success, 1 failure, 2 usage error.
func Run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	g := cliopt.DefaultGlobalOptions()
	if err := config.Load(config.EnvPrefix, &g); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	env := &commands.Env{Opts: &g}
	root := newRootCommand(env, stderr)
	root.SetArgs(argv)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if cqerrors.IsCode(err, cqerrors.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCommand(env *commands.Env, logOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "crmquery",
		Short: "Compile CRM filters and field selections, and manage the metadata cache",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logOut, env.Opts.LogLevel)
			if err != nil {
				return err
			}
			env.Logger = logger
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cqerrors.Wrap(cqerrors.ErrUsage, cmd.CommandPath(), err)
	})
	cliopt.BindGlobalFlags(root.PersistentFlags(), env.Opts)

	root.AddCommand(
		commands.NewWhereCommand(env),
		commands.NewFieldsCommand(env),
		commands.NewMetaCommand(env),
	)
	return root
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, cqerrors.Wrap(cqerrors.ErrUsage, "log level", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
