package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/petrows/github-linters/src/build"
	"github.com/petrows/github-linters/src/config"
	"github.com/petrows/github-linters/src/registry"
)

var dockerStrict bool

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Docker image commands",
	Long:  "Detect outdated images and generate their build and push scripts.",
}

func init() {
	dockerCmd.PersistentFlags().BoolVar(&dockerStrict, "strict", false, "fail when a registry cannot be asked instead of treating the tag as missing")
	rootCmd.AddCommand(dockerCmd)
}

// newPlanner wires the configured prober into a Planner.
func newPlanner() (*build.Planner, error) {
	timeout, err := cfg.Probe.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	var prober registry.Prober
	switch cfg.Probe.Method {
	case config.ProbeHTTP:
		prober = registry.NewHTTPProber(&http.Client{Timeout: timeout}, cfg.Probe.PlainHTTP)
	case config.ProbeCLI, "":
		if dockerStrict {
			logger.Warn().Msg(config.StrictCLIWarning)
		}
		runner := build.NewRunner(logger)
		runner.Timeout = timeout
		prober = registry.NewCLIProber(runner, cfg.Probe.Command)
	default:
		return nil, fmt.Errorf("unknown probe method %q", cfg.Probe.Method)
	}

	differ := registry.NewDiffer(prober, logger)
	differ.Strict = cfg.Probe.Strict || dockerStrict

	return build.NewPlanner(cfg, differ, logger), nil
}
