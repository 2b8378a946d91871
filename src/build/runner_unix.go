//go:build unix

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// pipeStream is the parent's read end of one child output pipe.
type pipeStream struct {
	file *os.File
	fd   int
	sink io.Writer
	eof  bool
}

// drain reads until the pipe would block or reaches EOF. It never waits.
func (s *pipeStream) drain(buf []byte) {
	for !s.eof {
		n, err := unix.Read(s.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return
		case err != nil, n == 0:
			s.eof = true
			return
		}
		s.sink.Write(buf[:n])
	}
}

// execute starts the child on two pipes switched to non-blocking mode and
// multiplexes them with poll(2) until the child exits.
func (r *Runner) execute(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	outR, outW, err := os.Pipe()
	if err != nil {
		return &LaunchError{Command: command, Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return &LaunchError{Command: command, Err: err}
	}
	defer outR.Close()
	defer errR.Close()

	cmd := r.command(ctx, command)
	cmd.Stdout = outW
	cmd.Stderr = errW

	startErr := cmd.Start()
	// The child owns the write ends now; keeping ours open would hide EOF.
	outW.Close()
	errW.Close()
	if startErr != nil {
		return &LaunchError{Command: command, Err: startErr}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// Fd puts the descriptor in blocking mode, so switch it back afterwards.
	streams := []*pipeStream{
		{file: outR, fd: int(outR.Fd()), sink: stdout},
		{file: errR, fd: int(errR.Fd()), sink: stderr},
	}
	for _, s := range streams {
		if err := unix.SetNonblock(s.fd, true); err != nil {
			cmd.Process.Kill()
			<-done
			return fmt.Errorf("setting %s output non-blocking: %w", command[0], err)
		}
	}

	buf := make([]byte, 32*1024)
	fds := make([]unix.PollFd, 0, len(streams))
	timeout := int(pollInterval.Milliseconds())

	for {
		select {
		case waitErr := <-done:
			for _, s := range streams {
				s.drain(buf)
			}
			return waitErr
		default:
		}

		fds = fds[:0]
		open := make([]*pipeStream, 0, len(streams))
		for _, s := range streams {
			if !s.eof {
				fds = append(fds, unix.PollFd{Fd: int32(s.fd), Events: unix.POLLIN})
				open = append(open, s)
			}
		}

		// Both pipes closed: nothing left to read, only the exit to wait for.
		if len(open) == 0 {
			return <-done
		}

		n, err := unix.Poll(fds, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			cmd.Process.Kill()
			<-done
			return fmt.Errorf("polling %s output: %w", command[0], err)
		}
		if n == 0 {
			continue
		}
		for i, pfd := range fds {
			if pfd.Revents != 0 {
				open[i].drain(buf)
			}
		}
	}
}
