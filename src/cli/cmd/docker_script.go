package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrows/github-linters/src/build"
	"github.com/petrows/github-linters/src/output"
)

var dockerScriptPush bool

var dockerScriptCmd = &cobra.Command{
	Use:     "script <image>",
	Aliases: []string{"build", "deploy"},
	Short:   "Print a bash script building the missing tags of an image",
	Long: `Print a bash script that builds every tag of <image> missing from the
registry, or pushes them with --push. Called as "deploy" it implies --push.

Exits non-zero when the image is unknown or all of its tags exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runDockerScript,
}

func init() {
	dockerScriptCmd.Flags().BoolVar(&dockerScriptPush, "push", false, "emit docker push commands instead of builds")
	dockerCmd.AddCommand(dockerScriptCmd)
}

func runDockerScript(cmd *cobra.Command, args []string) error {
	push := dockerScriptPush || cmd.CalledAs() == "deploy"

	flavor, err := output.ParseFlavor(cfg.CI)
	if err != nil {
		return err
	}

	planner, err := newPlanner()
	if err != nil {
		return err
	}
	plan, err := planner.PlanFor(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	checkDockerfile(wd, plan.Image.Name)

	source := cfg.ResolveSource(wd)
	if source == "" {
		logger.Warn().Msg("no source URL configured or detected; org.opencontainers.image.source will be empty")
	}

	emitter := build.NewEmitter(source, flavor)
	fmt.Fprint(cmd.OutOrStdout(), emitter.Emit(plan, cfg.Registry, push))

	logger.Info().Str("image", plan.Image.Name).Strs("tags", plan.MissingTags).Bool("push", push).Msg("script written")
	return nil
}

// checkDockerfile warns about problems the generated build would hit late.
func checkDockerfile(root, image string) {
	path := build.DockerfilePath(root, image)
	info, err := build.ParseDockerfile(path)
	if err != nil {
		logger.Warn().Err(err).Str("image", image).Msg("cannot read dockerfile")
		return
	}
	if len(info.Args) > 0 {
		logger.Info().Str("image", image).Strs("args", info.Args).Msg("dockerfile declares build args; the generated build passes none")
	}
	for _, st := range info.Stages {
		logger.Debug().Str("image", image).Str("base", st.BaseImage).Str("stage", st.Name).Msg("dockerfile stage")
	}
	for _, st := range info.UnpinnedBases() {
		logger.Warn().Str("image", image).Str("base", st.BaseImage).Int("line", st.Line).Msg("base image is not pinned to a tag or digest")
	}
}
