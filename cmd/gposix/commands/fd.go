//go:build unix

package commands

import (
	"errors"
	"io/fs"
	"os"

	"github.com/Giulio2002/gposix"
	"github.com/Giulio2002/gposix/internal/config"
	"github.com/Giulio2002/gposix/internal/logx"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func socketPath(flag string) string {
	if flag != "" {
		return flag
	}
	return config.Get().Socket.Path
}

func newServeFdCmd(o *options) *cobra.Command {
	var socket string

	cmd := &cobra.Command{
		Use:   "serve-fd FILE",
		Short: "Open FILE and pass its descriptor to the first client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveFd(args[0], socketPath(socket), config.Get().Socket.Backlog)
		},
	}

	mustFlags(FlagSocket.SetVar(cmd, &socket))
	return cmd
}

func serveFd(file, path string, backlog int) error {
	f, err := gposix.Open(file, unix.O_RDONLY, 0)
	if err != nil {
		return errorx.IllegalArgument.Wrap(err, "failed to open %s", file).
			WithProperty(errorx.PropertyPayload(), file)
	}
	defer f.Close()

	// A socket file left behind by an earlier run makes bind fail.
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errorx.IllegalState.Wrap(err, "failed to remove stale socket %s", path)
	}

	ln, err := gposix.Bind(path)
	if err != nil {
		return errorx.IllegalState.Wrap(err, "failed to bind %s", path)
	}
	defer func() {
		ln.Close()
		_ = os.Remove(path)
	}()

	if err := ln.Listen(backlog); err != nil {
		return errorx.IllegalState.Wrap(err, "failed to listen on %s", path)
	}
	logx.As().Info().Str("socket", path).Str("file", file).Msg("waiting for a client")

	conn, err := ln.Accept()
	if err != nil {
		return errorx.IllegalState.Wrap(err, "failed to accept on %s", path)
	}
	defer conn.Close()

	if err := conn.SendDescriptor(f); err != nil {
		return errorx.IllegalState.Wrap(err, "failed to send descriptor")
	}
	return nil
}

func newRecvFdCmd(o *options) *cobra.Command {
	var socket string

	cmd := &cobra.Command{
		Use:   "recv-fd",
		Short: "Receive a descriptor and copy what it refers to to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := recvFd(socketPath(socket))
			if err != nil {
				return err
			}
			_, err = dataOut(cmd).Write(data)
			return err
		},
	}

	mustFlags(FlagSocket.SetVar(cmd, &socket))
	return cmd
}

func recvFd(path string) ([]byte, error) {
	conn, err := gposix.Connect(path)
	if err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to connect to %s", path)
	}
	defer conn.Close()

	d, err := conn.RecvDescriptor()
	if err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to receive descriptor")
	}
	defer d.Close()

	if !d.Valid() {
		return nil, errorx.IllegalState.New("peer at %s sent no descriptor", path)
	}

	data, err := d.ReadAll()
	if err != nil {
		return nil, errorx.IllegalState.Wrap(err, "failed to read received descriptor")
	}
	return data, nil
}
