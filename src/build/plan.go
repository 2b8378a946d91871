package build

import "github.com/petrows/github-linters/src/config"

// BuildPlan is the set of tags of one image that are missing from the
// registry, in declaration order. It is recomputed on every run.
type BuildPlan struct {
	Image       config.ImageSpec
	MissingTags []string
}

// Empty reports whether there is nothing to build or push.
func (p *BuildPlan) Empty() bool {
	return p == nil || len(p.MissingTags) == 0
}

// BuildStep is a single build invocation for one fully qualified reference.
type BuildStep struct {
	Name       string // group key, "{image}:{tag}"
	Dir        string // directory the build runs in
	Dockerfile string
	Context    string
	Tags       []string
	Labels     [][2]string // KEY,VALUE (deterministic)
	CacheFrom  string
	CacheTo    string
	Push       bool
}
