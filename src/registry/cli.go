package registry

import "context"

// CLIProber asks an external, already authenticated tool about a reference,
// e.g. `docker manifest inspect <ref>`. Exit zero means present; any other
// exit means absent, because the tool does not tell "not found" apart from
// "could not reach the registry".
type CLIProber struct {
	Runner  CommandRunner
	Command []string // the reference is appended as the last argument
}

// NewCLIProber creates a CLIProber running command through runner.
func NewCLIProber(runner CommandRunner, command []string) *CLIProber {
	return &CLIProber{Runner: runner, Command: command}
}

func (p *CLIProber) Probe(ctx context.Context, ref string) (ProbeResult, error) {
	argv := make([]string, 0, len(p.Command)+1)
	argv = append(argv, p.Command...)
	argv = append(argv, ref)

	ok, err := p.Runner.Run(ctx, argv)
	if err != nil {
		return ProbeResult{}, err
	}
	if !ok {
		return ProbeResult{State: TagAbsent, Detail: "manifest lookup failed"}, nil
	}
	return ProbeResult{State: TagPresent}, nil
}
