// Package lint reads the output of external linters into findings that can
// be rendered as CI annotations or a terminal report.
package lint

// Finding represents a single lint result. Every finding is reported at
// warning level.
type Finding struct {
	File    string
	Line    int
	Column  int
	Code    string // linter rule code, e.g. "E501"
	Message string
}
