// Package main is the sorter command: it watches a directory and moves new
// files into destination folders by content type and name.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/koloyyee/java-sorter/internal/errors"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the root command and maps its error to an exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, "sorter:", err)

	if errors.Is(err, errors.ErrUsage) || errors.Is(err, errors.ErrValidation) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return errors.CodeOf(err).ExitCode()
}
