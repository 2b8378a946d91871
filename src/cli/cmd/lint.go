package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrows/github-linters/src/lint"
	"github.com/petrows/github-linters/src/output"
)

var lintFormat string

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Convert linter output for CI",
}

var lintFlake8Cmd = &cobra.Command{
	Use:   "flake8",
	Short: "Turn flake8 output on stdin into GitHub annotations",
	Long: `Read flake8 output (path:line:col: CODE message) from stdin.

With --format github (default) every finding becomes a ::warning workflow
command and other lines are passed through unchanged. With --format text the
findings are printed grouped by file.

Exits non-zero when any finding was read.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runLintFlake8,
}

func init() {
	lintFlake8Cmd.Flags().StringVar(&lintFormat, "format", "github", "output format: github or text")
	lintCmd.AddCommand(lintFlake8Cmd)
	rootCmd.AddCommand(lintCmd)
}

func runLintFlake8(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var findings []lint.Finding
	var n int
	var err error

	switch lintFormat {
	case "github":
		n, err = lint.ReadFlake8(cmd.InOrStdin(), func(line string, f *lint.Finding) error {
			if f == nil {
				_, werr := fmt.Fprintln(out, line)
				return werr
			}
			return output.Annotation(out, *f)
		})
	case "text":
		n, err = lint.ReadFlake8(cmd.InOrStdin(), func(line string, f *lint.Finding) error {
			if f != nil {
				findings = append(findings, *f)
			}
			return nil
		})
		if err == nil {
			p := output.NewPrinter(out)
			p.Print(findings)
			p.Summary(findings)
		}
	default:
		return fmt.Errorf("unknown format %q (want github or text)", lintFormat)
	}
	if err != nil {
		return err
	}

	if n > 0 {
		return fmt.Errorf("flake8 reported %d finding(s)", n)
	}
	return nil
}
