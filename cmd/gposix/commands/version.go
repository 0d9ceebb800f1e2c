//go:build unix

package commands

import (
	"runtime"

	"github.com/Giulio2002/gposix"
	"github.com/spf13/cobra"
)

// VersionInfo is printed by the version command.
type VersionInfo struct {
	Number    string `yaml:"version" json:"version"`
	GoVersion string `yaml:"go" json:"go"`
	Platform  string `yaml:"platform" json:"platform"`
}

func newVersionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Long:  "Show the current version of the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.print(cmd, VersionInfo{
				Number:    gposix.Version(),
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}
