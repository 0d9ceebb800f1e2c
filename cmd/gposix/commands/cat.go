//go:build unix

package commands

import (
	"strings"

	"github.com/Giulio2002/gposix"
	"github.com/Giulio2002/gposix/internal/logx"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newCatCmd(o *options) *cobra.Command {
	var unique bool

	cmd := &cobra.Command{
		Use:   "cat FILE...",
		Short: "Print files through a shared memory mapping",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := dataOut(cmd)
			for _, path := range args {
				data, err := readMapped(path, unique)
				if err != nil {
					return errorx.IllegalState.Wrap(err, "failed to read %s", path)
				}
				if _, err := out.Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}

	mustFlags(FlagUnique.SetVar(cmd, &unique))
	return cmd
}

func readMapped(path string, unique bool) ([]byte, error) {
	mf, err := gposix.OpenMapped(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer mf.Close()

	if err := mf.Mapping().Advise(unix.MADV_SEQUENTIAL); err != nil {
		logx.As().Debug().Err(err).Str("path", path).Msg("madvise ignored")
	}

	logx.As().Debug().Str("path", path).Int64("size", mf.Size()).Msg("mapped")
	if !unique {
		return mf.ReadRest(), nil
	}

	lines, _, err := mf.ReadLines()
	if err != nil || len(lines) == 0 {
		return nil, err
	}
	return []byte(strings.Join(lines, "\n") + "\n"), nil
}
