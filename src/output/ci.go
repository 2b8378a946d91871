package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// Flavor selects how foldable log groups are marked.
type Flavor string

const (
	FlavorGitHub Flavor = "github"
	FlavorGitLab Flavor = "gitlab"
	FlavorPlain  Flavor = "plain"
)

// DetectFlavor picks the group flavor of the CI system we run under.
func DetectFlavor() Flavor {
	switch {
	case IsGitHubActions():
		return FlavorGitHub
	case IsGitLabCI():
		return FlavorGitLab
	default:
		return FlavorPlain
	}
}

// ParseFlavor maps a configured name to a Flavor. Empty means DetectFlavor.
func ParseFlavor(s string) (Flavor, error) {
	switch f := Flavor(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return DetectFlavor(), nil
	case FlavorGitHub, FlavorGitLab, FlavorPlain:
		return f, nil
	default:
		return "", fmt.Errorf("unknown CI flavor %q (want github, gitlab or plain)", s)
	}
}

// SectionID turns a group title into a GitLab section identifier.
func SectionID(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// GroupStart opens a foldable log group on w.
func GroupStart(w io.Writer, f Flavor, title string) {
	switch f {
	case FlavorGitHub:
		fmt.Fprintf(w, "::group::%s\n", title)
	case FlavorGitLab:
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=true]\r\033[0K%s\n", time.Now().Unix(), SectionID(title), title)
	}
}

// GroupEnd closes the group opened with the same title.
func GroupEnd(w io.Writer, f Flavor, title string) {
	switch f {
	case FlavorGitHub:
		fmt.Fprintln(w, "::endgroup::")
	case FlavorGitLab:
		fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), SectionID(title))
	}
}
