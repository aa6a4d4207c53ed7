package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var ErrStale = errors.New("reference report is out of date")

// Check compares an existing report with a freshly rendered one. When they
// differ it returns a line diff and ErrStale.
func Check(existing, rendered []byte) (string, error) {
	if string(existing) == string(rendered) {
		return "", nil
	}
	return LineDiff(string(existing), string(rendered)), ErrStale
}

// LineDiff renders a line-oriented diff with "-", "+" and " " prefixes.
func LineDiff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var out strings.Builder
	for _, diff := range diffs {
		prefix := " "
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(diff.Text) {
			fmt.Fprintf(&out, "%s%s\n", prefix, line)
		}
	}
	return out.String()
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
