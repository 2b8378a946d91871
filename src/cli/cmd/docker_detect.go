package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrows/github-linters/src/build"
	"github.com/petrows/github-linters/src/output"
	"github.com/petrows/github-linters/src/registry"
)

var dockerDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List images with tags missing from the registry",
	Long: `Probe every declared tag and print the images that need a build as
a single line, images=["a","b"], suitable for a CI step output.

Exits non-zero when every tag already exists.`,
	Args: cobra.NoArgs,
	RunE: runDockerDetect,
}

func init() {
	dockerCmd.AddCommand(dockerDetectCmd)
}

func runDockerDetect(cmd *cobra.Command, args []string) error {
	planner, err := newPlanner()
	if err != nil {
		return err
	}

	start := time.Now()
	statuses, err := planner.Survey(cmd.Context())
	if err != nil {
		return err
	}
	if !quiet {
		renderSurvey(cmd.ErrOrStderr(), statuses, time.Since(start))
	}

	names := build.Outdated(statuses)
	if len(names) == 0 {
		return &build.NothingToDoError{}
	}

	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encoding image list: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "images=%s\n", data)
	return nil
}

// renderSurvey writes the per-tag registry report.
func renderSurvey(w io.Writer, statuses []build.ImageStatus, elapsed time.Duration) {
	flavor, err := output.ParseFlavor(cfg.CI)
	if err != nil {
		flavor = output.FlavorPlain
	}
	output.GroupStart(w, flavor, "registry")
	defer output.GroupEnd(w, flavor, "registry")

	sec := output.NewSection(w, "Registry", elapsed, output.UseColor(w))
	for i, st := range statuses {
		if i > 0 {
			sec.Separator()
		}
		sec.Row("%s", st.Image.Name)
		for _, r := range st.Results {
			switch r.State {
			case registry.TagPresent:
				sec.StatusRow("  "+r.Tag, output.StatusOK, r.Detail)
			case registry.TagAbsent:
				sec.StatusRow("  "+r.Tag, output.StatusMissing, "missing")
			default:
				sec.StatusRow("  "+r.Tag, output.StatusFailed, r.Detail)
			}
		}
	}
	sec.Close()
}
