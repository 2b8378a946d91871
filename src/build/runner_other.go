//go:build !unix

package build

import (
	"context"
	"io"
)

// execute lets os/exec copy both pipes on its own goroutines. Lines are still
// logged per stream; only the multiplexing differs from the unix runner.
func (r *Runner) execute(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	cmd := r.command(ctx, command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &LaunchError{Command: command, Err: err}
	}
	return cmd.Wait()
}
