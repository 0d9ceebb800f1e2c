//go:build unix

package commands

import (
	"strconv"
	"strings"

	"github.com/Giulio2002/gposix"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// maxErrno bounds the search for symbolic names.
const maxErrno = 255

// ErrnoInfo describes how an OS error code is classified.
type ErrnoInfo struct {
	Code     int    `yaml:"code" json:"code"`
	Name     string `yaml:"name" json:"name"`
	Message  string `yaml:"message" json:"message"`
	Type     string `yaml:"type" json:"type"`
	Category string `yaml:"category" json:"category"`
}

func describeErrno(code unix.Errno) ErrnoInfo {
	err := gposix.NewError(code, "errno")
	return ErrnoInfo{
		Code:     int(code),
		Name:     unix.ErrnoName(code),
		Message:  code.Error(),
		Type:     gposix.Classify(code).FullName(),
		Category: gposix.CategoryOf(err).String(),
	}
}

func newErrnoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "errno CODE...",
		Short: "Show how OS error codes are classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := make([]ErrnoInfo, 0, len(args))
			for _, arg := range args {
				code, err := parseErrno(arg)
				if err != nil {
					return err
				}
				infos = append(infos, describeErrno(code))
			}
			return o.print(cmd, infos)
		},
	}
}

// parseErrno accepts a number or a symbolic name such as ENOENT.
func parseErrno(arg string) (unix.Errno, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n <= 0 {
			return 0, errorx.IllegalArgument.New("errno must be positive, got %d", n).
				WithProperty(errorx.PropertyPayload(), arg)
		}
		return unix.Errno(n), nil
	}
	name := strings.ToUpper(arg)
	for n := 1; n <= maxErrno; n++ {
		if unix.ErrnoName(unix.Errno(n)) == name {
			return unix.Errno(n), nil
		}
	}
	return 0, errorx.IllegalArgument.New("unknown errno %q", arg).
		WithProperty(errorx.PropertyPayload(), arg)
}
