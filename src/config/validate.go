package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/petrows/github-linters/src/version"
)

var (
	// imageNameRe matches a single repository path component.
	imageNameRe = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*$`)

	// tagRe is the distribution tag grammar.
	tagRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)
)

var validCIFlavors = map[string]bool{"": true, "github": true, "gitlab": true, "plain": true}

// StrictCLIWarning is reported when strict probing is requested with the cli
// method: a non-zero exit always reads as a missing tag there.
const StrictCLIWarning = "probe.strict: has no effect with method cli; use method http to tell registry errors from missing tags"

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	// ── Version ───────────────────────────────────────────────────────────

	if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Sprintf("version: must be %d, got %d", CurrentVersion, cfg.Version))
	}

	if cfg.Requires != "" {
		if rerr := checkRequires(cfg.Requires, version.Version); rerr != nil {
			errs = append(errs, rerr.Error())
		}
	}

	// ── Registry ──────────────────────────────────────────────────────────

	if cfg.Registry.ImagePrefix == "" {
		errs = append(errs, "registry.prefix: is required")
	} else if strings.ContainsAny(cfg.Registry.ImagePrefix, " \t\n") {
		errs = append(errs, fmt.Sprintf("registry.prefix: %q contains whitespace", cfg.Registry.ImagePrefix))
	}
	if cfg.Registry.Owner == "" {
		warnings = append(warnings, "registry.owner: not set; source label falls back to git remote")
	}
	if cfg.Registry.CacheRef == "" {
		warnings = append(warnings, "registry.cache: not set; builds run without a registry cache")
	}

	// ── Probe ─────────────────────────────────────────────────────────────

	switch cfg.Probe.Method {
	case ProbeCLI:
		if len(cfg.Probe.Command) == 0 {
			errs = append(errs, "probe.command: is required for method cli")
		}
		if cfg.Probe.Strict {
			warnings = append(warnings, StrictCLIWarning)
		}
	case ProbeHTTP:
	default:
		errs = append(errs, fmt.Sprintf("probe.method: unknown method %q (supported: %s, %s)", cfg.Probe.Method, ProbeCLI, ProbeHTTP))
	}
	if _, terr := cfg.Probe.TimeoutDuration(); terr != nil {
		errs = append(errs, terr.Error())
	}

	if !validCIFlavors[cfg.CI] {
		errs = append(errs, fmt.Sprintf("ci: unknown flavor %q (supported: github, gitlab, plain)", cfg.CI))
	}

	// ── Images ────────────────────────────────────────────────────────────

	if len(cfg.Images) == 0 {
		errs = append(errs, "images: at least one image is required")
	}

	names := make(map[string]bool, len(cfg.Images))
	for i, img := range cfg.Images {
		ipath := fmt.Sprintf("images[%d]", i)

		switch {
		case img.Name == "":
			errs = append(errs, fmt.Sprintf("%s: name is required", ipath))
		case names[img.Name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate image name %q", ipath, img.Name))
		case !imageNameRe.MatchString(img.Name):
			errs = append(errs, fmt.Sprintf("%s: image name %q is not a valid repository component", ipath, img.Name))
		}
		names[img.Name] = true

		if len(img.Tags) == 0 {
			errs = append(errs, fmt.Sprintf("%s (%s): at least one tag is required", ipath, img.Name))
		}
		seen := make(map[string]bool, len(img.Tags))
		for _, tag := range img.Tags {
			if !tagRe.MatchString(tag) {
				errs = append(errs, fmt.Sprintf("%s (%s): invalid tag %q", ipath, img.Name, tag))
			}
			if seen[tag] {
				errs = append(errs, fmt.Sprintf("%s (%s): duplicate tag %q", ipath, img.Name, tag))
			}
			seen[tag] = true
		}
		if img.Description == "" {
			warnings = append(warnings, fmt.Sprintf("%s (%s): no description; the OCI description label will be empty", ipath, img.Name))
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}

// checkRequires tests the running tool version against a semver constraint.
// Development builds satisfy every constraint.
func checkRequires(constraint, toolVersion string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("requires: invalid constraint %q: %v", constraint, err)
	}
	if version.IsDev(toolVersion) {
		return nil
	}
	v, err := semver.NewVersion(toolVersion)
	if err != nil {
		return fmt.Errorf("requires: tool version %q is not semver: %v", toolVersion, err)
	}
	if ok, reasons := c.Validate(v); !ok {
		msgs := make([]string, 0, len(reasons))
		for _, r := range reasons {
			msgs = append(msgs, r.Error())
		}
		return fmt.Errorf("requires: build-docker %s does not satisfy %q (%s)", toolVersion, constraint, strings.Join(msgs, ", "))
	}
	return nil
}
