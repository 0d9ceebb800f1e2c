//go:build unix

package commands

import (
	"context"
	"time"

	"github.com/Giulio2002/gposix"
	"github.com/Giulio2002/gposix/internal/logx"
	"github.com/gofrs/flock"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// lockRetryDelay is the polling interval while waiting for the append lock.
const lockRetryDelay = 50 * time.Millisecond

// AppendResult is printed by the append command.
type AppendResult struct {
	Path   string `yaml:"path" json:"path"`
	Offset int64  `yaml:"offset" json:"offset"`
	Bytes  int    `yaml:"bytes" json:"bytes"`
	Size   int64  `yaml:"size" json:"size"`
}

func newAppendCmd(o *options) *cobra.Command {
	var (
		newline     bool
		lockTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "append FILE TEXT",
		Short: "Append text under a cross-process lock and print where it landed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[1]
			if newline {
				text += "\n"
			}
			res, err := appendLocked(cmd.Context(), args[0], text, lockTimeout)
			if err != nil {
				return err
			}
			return o.print(cmd, res)
		},
	}

	mustFlags(
		FlagNewline.SetVar(cmd, &newline),
		FlagLockTimeout.SetVar(cmd, &lockTimeout),
	)
	return cmd
}

func appendLocked(ctx context.Context, path, text string, timeout time.Duration) (*AppendResult, error) {
	fileLock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to acquire file lock for %q", path)
	}
	if !locked {
		return nil, errorx.IllegalState.New("timed out acquiring file lock for %q", path)
	}
	defer func() {
		if e := fileLock.Unlock(); e != nil {
			logx.As().Warn().Err(e).Str("path", path).Msg("failed to release file lock")
		}
	}()

	af, err := gposix.OpenAppendable(path, unix.O_RDWR|unix.O_CREAT, 0o644)
	if err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to open %s", path)
	}
	defer af.Close()

	off, err := af.AppendString(text)
	if err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to append to %s", path)
	}
	if err := af.Sync(); err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to sync %s", path)
	}

	logx.As().Debug().Str("path", path).Int64("offset", off).Int("bytes", len(text)).Msg("appended")
	return &AppendResult{Path: path, Offset: off, Bytes: len(text), Size: af.Size()}, nil
}
