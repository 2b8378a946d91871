package build

import (
	"fmt"
	"strings"
	"time"

	"github.com/petrows/github-linters/src/config"
	"github.com/petrows/github-linters/src/output"
)

const scriptHeader = "#!/usr/bin/env bash\nset -euo pipefail\n"

// Emitter renders build plans as bash scripts. It never runs anything:
// the script is written out and executed by the CI job.
type Emitter struct {
	Source string        // org.opencontainers.image.source label value
	Flavor output.Flavor // log group markers
	Now    func() time.Time
}

// NewEmitter creates an Emitter stamping images with the wall clock.
func NewEmitter(source string, flavor output.Flavor) *Emitter {
	return &Emitter{Source: source, Flavor: flavor, Now: time.Now}
}

// Emit renders plan. With push unset every missing tag is built; with push
// set every missing tag is pushed. One foldable group per tag, in order.
func (e *Emitter) Emit(plan *BuildPlan, reg config.RegistryConfig, push bool) string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	var b strings.Builder
	b.WriteString(scriptHeader)

	for _, step := range Steps(plan, reg, e.Source, now(), push) {
		b.WriteString("\n")
		b.WriteString(e.groupStart(step.Name))

		if step.Push {
			for _, argv := range pushArgs(step) {
				b.WriteString(shellQuoteArgs(argv) + "\n")
			}
		} else {
			fmt.Fprintf(&b, "( cd %s && %s )\n", shellQuote(step.Dir), shellQuoteArgs(buildArgs(step)))
		}

		b.WriteString(e.groupEnd(step.Name))
	}

	return b.String()
}

func (e *Emitter) groupStart(title string) string {
	switch e.Flavor {
	case output.FlavorGitHub:
		return "echo " + shellQuote("::group::"+title) + "\n"
	case output.FlavorGitLab:
		return fmt.Sprintf("printf '\\033[0Ksection_start:%%s:%%s[collapsed=true]\\r\\033[0K%%s\\n' \"$(date +%%s)\" %s %s\n",
			shellQuote(output.SectionID(title)), shellQuote(title))
	default:
		return "echo " + shellQuote(">>> "+title) + "\n"
	}
}

func (e *Emitter) groupEnd(title string) string {
	switch e.Flavor {
	case output.FlavorGitHub:
		return "echo '::endgroup::'\n"
	case output.FlavorGitLab:
		return fmt.Sprintf("printf '\\033[0Ksection_end:%%s:%%s\\r\\033[0K\\n' \"$(date +%%s)\" %s\n",
			shellQuote(output.SectionID(title)))
	default:
		return "echo " + shellQuote("<<< "+title) + "\n"
	}
}
