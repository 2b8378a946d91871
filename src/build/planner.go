package build

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petrows/github-linters/src/config"
	"github.com/petrows/github-linters/src/registry"
)

// Planner decides which images and tags need work by diffing the
// configuration against the registry. Images are checked one at a time in
// declaration order, so equal registry state always yields the same result.
type Planner struct {
	Config *config.Config
	Differ *registry.Differ
	Log    zerolog.Logger
}

// NewPlanner creates a Planner over cfg using differ for registry lookups.
func NewPlanner(cfg *config.Config, differ *registry.Differ, log zerolog.Logger) *Planner {
	return &Planner{Config: cfg, Differ: differ, Log: log}
}

// ImageStatus is the registry state of every declared tag of one image.
type ImageStatus struct {
	Image   config.ImageSpec
	Results []registry.TagCheckResult
}

// Missing returns the tags that still have to be built.
func (s ImageStatus) Missing() []string {
	return registry.Missing(s.Results)
}

// Survey checks every image in declaration order.
func (p *Planner) Survey(ctx context.Context) ([]ImageStatus, error) {
	statuses := make([]ImageStatus, 0, len(p.Config.Images))
	for _, img := range p.Config.Images {
		results, err := p.Differ.Check(ctx, img, p.Config.Registry)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", img.Name, err)
		}

		st := ImageStatus{Image: img, Results: results}
		if missing := st.Missing(); len(missing) > 0 {
			p.Log.Info().Str("image", img.Name).Strs("missing", missing).Msg("needs build")
		} else {
			p.Log.Info().Str("image", img.Name).Msg("up to date")
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Detect returns the names of all images with at least one missing tag, in
// declaration order. An empty result is not an error here; callers decide.
func (p *Planner) Detect(ctx context.Context) ([]string, error) {
	statuses, err := p.Survey(ctx)
	if err != nil {
		return nil, err
	}
	return Outdated(statuses), nil
}

// Outdated returns the names of the surveyed images that need a build.
func Outdated(statuses []ImageStatus) []string {
	names := []string{}
	for _, st := range statuses {
		if len(st.Missing()) > 0 {
			names = append(names, st.Image.Name)
		}
	}
	return names
}

// PlanFor computes the build plan of a single image.
// Returns *UnknownImageError if name is not declared and *NothingToDoError
// if every tag already exists.
func (p *Planner) PlanFor(ctx context.Context, name string) (*BuildPlan, error) {
	img, ok := p.Config.Image(name)
	if !ok {
		return nil, &UnknownImageError{Name: name, Known: p.Config.Images.Names()}
	}

	missing, err := p.Differ.MissingTags(ctx, img, p.Config.Registry)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", img.Name, err)
	}

	plan := &BuildPlan{Image: img, MissingTags: missing}
	if plan.Empty() {
		return nil, &NothingToDoError{Image: img.Name}
	}
	return plan, nil
}
