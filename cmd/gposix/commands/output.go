//go:build unix

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Giulio2002/gposix"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Format renders v in the requested output format.
func Format(v any, format string) (string, error) {
	var output []byte
	var err error
	switch strings.ToLower(format) {
	case FormatJSON:
		output, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", errorx.IllegalFormat.Wrap(err, "error marshaling output to JSON")
		}
	case FormatYAML:
		output, err = yaml.Marshal(v)
		if err != nil {
			return "", errorx.IllegalFormat.Wrap(err, "error marshaling output to YAML")
		}
	default:
		return "", errorx.IllegalArgument.New("unsupported format: %s", format)
	}

	return strings.TrimRight(string(output), "\n"), nil
}

func (o *options) print(cmd *cobra.Command, v any) error {
	out, err := Format(v, o.output)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// dataOut is where raw file bytes are copied. When the command writes to
// the process stdout it goes through the shared descriptor.
func dataOut(cmd *cobra.Command) io.Writer {
	if w := cmd.OutOrStdout(); w != os.Stdout {
		return w
	}
	return gposix.Stdout()
}
