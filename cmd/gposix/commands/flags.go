//go:build unix

package commands

import (
	"time"

	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagDefinition defines a command-line flag typed by T.
type FlagDefinition[T any] struct {
	Name        string
	ShortName   string
	Description string
	Default     T
}

var (
	FlagConfig = FlagDefinition[string]{
		Name:        "config",
		ShortName:   "c",
		Description: "config file path",
	}

	FlagOutput = FlagDefinition[string]{
		Name:        "output",
		ShortName:   "o",
		Description: "Output format (yaml|json)",
		Default:     FormatYAML,
	}

	FlagLogLevel = FlagDefinition[string]{
		Name:        "log-level",
		Description: "Override the configured log level",
	}

	FlagSocket = FlagDefinition[string]{
		Name:        "socket",
		ShortName:   "s",
		Description: "Unix-domain socket path (defaults to socket.path)",
	}

	FlagUnique = FlagDefinition[bool]{
		Name:        "unique",
		ShortName:   "u",
		Description: "Print the distinct lines in sorted order",
	}

	FlagNewline = FlagDefinition[bool]{
		Name:        "newline",
		ShortName:   "n",
		Description: "Terminate the appended text with a newline",
		Default:     true,
	}

	FlagLockTimeout = FlagDefinition[time.Duration]{
		Name:        "lock-timeout",
		Description: "How long to wait for the append lock",
		Default:     10 * time.Second,
	}
)

// SetVarP registers a persistent flag on cmd.
func (fp *FlagDefinition[T]) SetVarP(cmd *cobra.Command, p *T) error {
	return fp.setFlagVar(cmd.PersistentFlags(), cmd, p)
}

// SetVar registers a local flag on cmd.
func (fp *FlagDefinition[T]) SetVar(cmd *cobra.Command, p *T) error {
	return fp.setFlagVar(cmd.Flags(), cmd, p)
}

func (fp *FlagDefinition[T]) setFlagVar(flags *pflag.FlagSet, cmd *cobra.Command, p *T) error {
	if p == nil {
		return errorx.IllegalArgument.New("pointer for flag %s is nil", fp.Name)
	}
	if cmd == nil {
		return errorx.IllegalArgument.New("command for flag %s is nil", fp.Name)
	}

	switch ptr := any(p).(type) {
	case *string:
		flags.StringVarP(ptr, fp.Name, fp.ShortName, any(fp.Default).(string), fp.Description)
	case *bool:
		flags.BoolVarP(ptr, fp.Name, fp.ShortName, any(fp.Default).(bool), fp.Description)
	case *int:
		flags.IntVarP(ptr, fp.Name, fp.ShortName, any(fp.Default).(int), fp.Description)
	case *time.Duration:
		flags.DurationVarP(ptr, fp.Name, fp.ShortName, any(fp.Default).(time.Duration), fp.Description)
	default:
		return errorx.IllegalArgument.New("unsupported flag type %T for flag %s", p, fp.Name)
	}
	return nil
}

// mustFlags registers flags while building a command. Failures are
// programming errors.
func mustFlags(errs ...error) {
	for _, err := range errs {
		if err != nil {
			panic(err)
		}
	}
}
