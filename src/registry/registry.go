// Package registry answers one question for the planner: does a fully
// qualified image reference resolve in its registry? Probers implement the
// lookup (an external CLI or the OCI distribution HTTP API) and the Differ
// folds their answers into the list of tags that still have to be built.
package registry

import (
	"context"
	"fmt"
)

// TagState is the outcome of probing one reference.
type TagState int

const (
	TagPresent TagState = iota
	TagAbsent
	TagProbeError // the registry could not be asked; treated as absent unless strict
)

func (s TagState) String() string {
	switch s {
	case TagPresent:
		return "present"
	case TagAbsent:
		return "absent"
	case TagProbeError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProbeResult is what a Prober learned about a reference.
type ProbeResult struct {
	State  TagState
	Detail string // digest when present, failure description otherwise
}

// TagCheckResult records the probe of one declared tag.
type TagCheckResult struct {
	Tag    string
	Ref    string
	State  TagState
	Detail string
}

// Prober checks whether a fully qualified reference exists.
//
// A returned error means the probe could not be carried out at all (the
// probe command is missing, ctx was cancelled) and aborts the run. Registry
// side failures are reported as TagProbeError results instead.
type Prober interface {
	Probe(ctx context.Context, ref string) (ProbeResult, error)
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context, ref string) (ProbeResult, error)

func (f ProbeFunc) Probe(ctx context.Context, ref string) (ProbeResult, error) {
	return f(ctx, ref)
}

// CommandRunner runs an external command and reports whether it exited zero.
type CommandRunner interface {
	Run(ctx context.Context, command []string) (bool, error)
}
