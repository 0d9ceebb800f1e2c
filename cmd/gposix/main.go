//go:build unix

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Giulio2002/gposix/cmd/gposix/commands"
	"github.com/google/uuid"
)

func main() {
	ctx := commands.WithSessionID(context.Background(), uuid.NewString())
	if err := commands.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
