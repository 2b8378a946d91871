package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// pollInterval bounds how long the runner waits for output before it
// checks again whether the child has exited.
const pollInterval = 100 * time.Millisecond

// Runner executes external commands with stdout and stderr captured and
// forwards every output line to the logger at debug level.
//
// Both pipes are read without blocking, so a child that fills one pipe while
// the other is idle cannot deadlock the runner.
type Runner struct {
	Log     zerolog.Logger
	Timeout time.Duration // kill the child after this long; zero = no bound
	Dir     string        // working directory; empty = current
	Env     []string      // child environment; nil = inherit
}

// NewRunner creates a Runner logging to log.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{Log: log}
}

// Run executes command and reports whether it exited with status zero.
//
// A non-zero exit is not an error: Run returns false, nil and logs the exit
// code. Errors are reserved for commands that could not be started
// (*LaunchError) and for runs aborted by ctx or the Timeout.
func (r *Runner) Run(ctx context.Context, command []string) (bool, error) {
	if len(command) == 0 {
		return false, &LaunchError{Err: errors.New("empty command")}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	name := filepath.Base(command[0])
	log := r.Log.With().Str("cmd", name).Logger()
	log.Debug().Strs("argv", command).Msg("exec")

	stdout := &lineWriter{log: log, stream: "stdout"}
	stderr := &lineWriter{log: log, stream: "stderr"}

	err := r.execute(ctx, command, stdout, stderr)
	stdout.flush()
	stderr.flush()

	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return false, err
	}
	return exitResult(ctx, log, name, err)
}

// exitResult maps the error returned by Wait onto Run's contract.
func exitResult(ctx context.Context, log zerolog.Logger, name string, waitErr error) (bool, error) {
	if waitErr == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, fmt.Errorf("%s aborted: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		log.Debug().Int("exit_code", exitErr.ExitCode()).Msg("command failed")
		return false, nil
	}
	return false, fmt.Errorf("waiting for %s: %w", name, waitErr)
}

func (r *Runner) command(ctx context.Context, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	return cmd
}

// lineWriter splits a byte stream into lines and logs each complete line.
type lineWriter struct {
	log    zerolog.Logger
	stream string
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// flush logs a trailing line that was not newline-terminated.
func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	w.log.Debug().Str("stream", w.stream).Msg(strings.TrimRight(string(line), "\r"))
}
