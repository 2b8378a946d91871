package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/petrows/github-linters/src/lint"
)

var annotationEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// EscapeData escapes a workflow command message.
func EscapeData(s string) string {
	return annotationEscaper.Replace(s)
}

// Annotation writes f as a GitHub Actions workflow command:
//
//	::warning file=app.py,line=3,col=1::E302 expected 2 blank lines
func Annotation(w io.Writer, f lint.Finding) error {
	msg := f.Message
	if f.Code != "" {
		msg = f.Code + " " + msg
	}
	_, err := fmt.Fprintf(w, "::warning file=%s,line=%d,col=%d::%s\n",
		f.File, f.Line, f.Column, EscapeData(msg))
	return err
}
