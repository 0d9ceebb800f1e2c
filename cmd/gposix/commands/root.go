//go:build unix

// Package commands implements the gposix command-line tool.
package commands

import (
	"context"
	"io"

	"github.com/Giulio2002/gposix/internal/config"
	"github.com/Giulio2002/gposix/internal/logx"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
)

// examples:
// ./gposix cat /etc/hosts
// ./gposix append ./journal "started" --output=json
// ./gposix serve-fd /etc/hosts --socket /tmp/gposix.sock
// ./gposix recv-fd --socket /tmp/gposix.sock
// ./gposix errno 2 9 12

type sessionKey struct{}

// WithSessionID attaches the per-invocation session id to ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id attached to ctx.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// options holds the flags shared by every subcommand.
type options struct {
	config   string
	output   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           "gposix",
		Short:         "Exercise POSIX descriptors, mappings and descriptor passing",
		Long:          "gposix - mapped file access, locked appends and Unix-domain descriptor passing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.initConfig(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	mustFlags(
		FlagConfig.SetVarP(rootCmd, &o.config),
		FlagOutput.SetVarP(rootCmd, &o.output),
		FlagLogLevel.SetVarP(rootCmd, &o.logLevel),
	)

	// disable command sorting to keep the order of commands as added
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		newCatCmd(o),
		newAppendCmd(o),
		newServeFdCmd(o),
		newRecvFdCmd(o),
		newErrnoCmd(o),
		newVersionCmd(o),
	)
	return rootCmd
}

// Execute runs the command line given in args.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, nil)
}

// run executes args with output sent to out, or to stdout when out is nil.
func run(ctx context.Context, args []string, out io.Writer) error {
	if ctx == nil {
		return errorx.IllegalArgument.New("context is required")
	}

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	if out != nil {
		rootCmd.SetOut(out)
	}
	if _, err := rootCmd.ExecuteContextC(ctx); err != nil {
		return errorx.IllegalState.Wrap(err, "failed to execute command")
	}
	return nil
}

func (o *options) initConfig(ctx context.Context) error {
	if err := config.Initialize(o.config); err != nil {
		return err
	}

	logConfig := config.Get().Log
	if o.logLevel != "" {
		logConfig.Level = o.logLevel
	}

	fields := map[string]string{}
	if id := SessionID(ctx); id != "" {
		fields["session"] = id
	}
	if err := logx.WithConfig(&logConfig, fields); err != nil {
		return errorx.IllegalArgument.Wrap(err, "invalid logging configuration").
			WithProperty(errorx.PropertyPayload(), logConfig.Level)
	}

	logx.As().Debug().Str("config", o.config).Msg("configuration loaded")
	return nil
}
