package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/cfgsync/internal/cli"
)

// main is the entrypoint for the cfgsync CLI.
func main() {
	// Use a minimal logger until a command configures the full one.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW, errW io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	cmd.SetOut(outW)
	cmd.SetErr(errW)
	cmd.SetArgs(args)
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(ctx)
	// Commands report their own errors; only argument and flag errors
	// reach here unreported.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(errW, "Error:", err)
		return cli.WrapExitError(cli.ExitCommandError, "usage", err)
	}
	return err
}
