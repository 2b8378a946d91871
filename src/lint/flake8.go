package lint

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// flake8Re matches flake8's default format: path:LINE:COL: CODE message
var flake8Re = regexp.MustCompile(`^(.*?):(\d+):(\d+):\s(\w\d+)\s(.+)`)

// ParseFlake8 parses one line of flake8 output.
func ParseFlake8(line string) (Finding, bool) {
	m := flake8Re.FindStringSubmatch(line)
	if m == nil {
		return Finding{}, false
	}
	ln, err := strconv.Atoi(m[2])
	if err != nil {
		return Finding{}, false
	}
	col, err := strconv.Atoi(m[3])
	if err != nil {
		return Finding{}, false
	}
	return Finding{
		File:    m[1],
		Line:    ln,
		Column:  col,
		Code:    m[4],
		Message: m[5],
	}, true
}

// ReadFlake8 scans r line by line. Blank lines are skipped. fn receives each
// trimmed line together with its finding, or nil when the line is not
// flake8 output. It returns the number of findings seen.
func ReadFlake8(r io.Reader, fn func(line string, f *Finding) error) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	count := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var fp *Finding
		if f, ok := ParseFlake8(line); ok {
			fp = &f
			count++
		}
		if err := fn(line, fp); err != nil {
			return count, err
		}
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("reading flake8 output: %w", err)
	}
	return count, nil
}
