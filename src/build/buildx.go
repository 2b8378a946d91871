package build

import (
	"fmt"
	"time"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/petrows/github-linters/src/config"
)

// Steps expands a plan into one build step per missing tag, in order.
// Every step of one call shares the same creation instant.
func Steps(plan *BuildPlan, reg config.RegistryConfig, source string, created time.Time, push bool) []BuildStep {
	if plan.Empty() {
		return nil
	}

	img := plan.Image
	cache := reg.CacheFor(img.Name)
	labels := [][2]string{
		{v1.AnnotationSource, source},
		{v1.AnnotationDescription, img.Description},
		{v1.AnnotationCreated, created.UTC().Format(time.RFC3339)},
	}

	steps := make([]BuildStep, 0, len(plan.MissingTags))
	for _, tag := range plan.MissingTags {
		step := BuildStep{
			Name:       img.Name + ":" + tag,
			Dir:        img.Name,
			Dockerfile: img.Name + ".dockerfile",
			Context:    ".",
			Tags:       []string{reg.Reference(img.Name, tag)},
			Labels:     labels,
			Push:       push,
		}
		if cache != "" {
			step.CacheFrom = "type=registry,ref=" + cache
			step.CacheTo = "type=registry,ref=" + cache + ",mode=max"
		}
		steps = append(steps, step)
	}
	return steps
}

// buildArgs constructs the docker buildx build argument list.
func buildArgs(step BuildStep) []string {
	args := []string{"docker", "buildx", "build"}

	if step.CacheFrom != "" {
		args = append(args, "--cache-from", step.CacheFrom)
	}
	if step.CacheTo != "" {
		args = append(args, "--cache-to", step.CacheTo)
	}

	for _, kv := range step.Labels {
		args = append(args, "--label", fmt.Sprintf("%s=%s", kv[0], kv[1]))
	}

	for _, tag := range step.Tags {
		args = append(args, "--tag", tag)
	}

	if step.Dockerfile != "" {
		args = append(args, "--file", step.Dockerfile)
	}

	context := step.Context
	if context == "" {
		context = "."
	}
	return append(args, context)
}

// pushArgs constructs one docker push per tag of the step.
func pushArgs(step BuildStep) [][]string {
	cmds := make([][]string, 0, len(step.Tags))
	for _, tag := range step.Tags {
		cmds = append(cmds, []string{"docker", "push", tag})
	}
	return cmds
}
