package build

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/distribution/reference"
)

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	// ARG <name>[=<default>]
	argRe = regexp.MustCompile(`(?i)^ARG\s+(\S+?)(?:=.*)?$`)
)

// DockerfileInfo is what the script needs to know about an image's
// Dockerfile before emitting a build for it.
type DockerfileInfo struct {
	Path   string
	Stages []Stage
	Args   []string
}

// Stage describes a single FROM stage in a Dockerfile.
type Stage struct {
	Name      string // alias from "AS name", empty if unnamed
	BaseImage string // the FROM image reference
	Line      int
}

// DockerfilePath returns where the build of image expects its Dockerfile,
// relative to root: <image>/<image>.dockerfile.
func DockerfilePath(root, image string) string {
	return filepath.Join(root, image, image+".dockerfile")
}

// ParseDockerfile extracts FROM stages and ARG names. Regex based, not a full
// parser; line continuations are not joined.
func ParseDockerfile(path string) (*DockerfileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &DockerfileInfo{Path: path}
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := fromRe.FindStringSubmatch(line); m != nil {
			info.Stages = append(info.Stages, Stage{BaseImage: m[1], Name: m[2], Line: lineNum})
			continue
		}
		if m := argRe.FindStringSubmatch(line); m != nil {
			info.Args = append(info.Args, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return info, nil
}

// UnpinnedBases returns external base images that name neither a tag other
// than latest nor a digest. Earlier stage aliases, scratch and images built
// from ARG values are skipped.
func (d *DockerfileInfo) UnpinnedBases() []Stage {
	aliases := map[string]bool{"scratch": true}
	var out []Stage

	for _, st := range d.Stages {
		base := st.BaseImage
		if !aliases[strings.ToLower(base)] && !strings.Contains(base, "$") {
			named, err := reference.ParseNormalizedNamed(base)
			if err == nil && unpinned(named) {
				out = append(out, st)
			}
		}
		if st.Name != "" {
			aliases[strings.ToLower(st.Name)] = true
		}
	}
	return out
}

func unpinned(named reference.Named) bool {
	if _, ok := named.(reference.Digested); ok {
		return false
	}
	tagged, ok := named.(reference.Tagged)
	return !ok || tagged.Tag() == "latest"
}
